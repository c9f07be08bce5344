package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) EndedConfirmed(ctx context.Context, now time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockCompleter) Complete(ctx context.Context, id int64) (models.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Booking), args.Error(1)
}

func TestSchedulerService_RunOnce(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		setup func(m *MockCompleter)
		want  int
	}{
		{
			name: "completes every ended booking",
			setup: func(m *MockCompleter) {
				m.On("EndedConfirmed", mock.Anything, now).Return([]models.Booking{{ID: 1}, {ID: 2}}, nil)
				m.On("Complete", mock.Anything, int64(1)).Return(models.Booking{ID: 1, Status: models.BookingCompleted}, nil)
				m.On("Complete", mock.Anything, int64(2)).Return(models.Booking{ID: 2, Status: models.BookingCompleted}, nil)
			},
			want: 2,
		},
		{
			name: "one failure does not stop the pass",
			setup: func(m *MockCompleter) {
				m.On("EndedConfirmed", mock.Anything, now).Return([]models.Booking{{ID: 1}, {ID: 2}}, nil)
				m.On("Complete", mock.Anything, int64(1)).Return(models.Booking{}, models.ErrInvalidTransition)
				m.On("Complete", mock.Anything, int64(2)).Return(models.Booking{ID: 2}, nil)
			},
			want: 1,
		},
		{
			name: "nothing ended",
			setup: func(m *MockCompleter) {
				m.On("EndedConfirmed", mock.Anything, now).Return([]models.Booking{}, nil)
			},
		},
		{
			name: "repository error",
			setup: func(m *MockCompleter) {
				m.On("EndedConfirmed", mock.Anything, now).Return(nil, errors.New("db down"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockCompleter)
			tt.setup(m)
			s := NewSchedulerService(m, time.Minute, sl.Discard())
			s.now = func() time.Time { return now }

			assert.Equal(t, tt.want, s.RunOnce(context.Background()))
			m.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_RunStopsOnCancel(t *testing.T) {
	m := new(MockCompleter)
	m.On("EndedConfirmed", mock.Anything, mock.Anything).Return([]models.Booking{}, nil)
	s := NewSchedulerService(m, 10*time.Millisecond, sl.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, len(m.Calls), 2)
}
