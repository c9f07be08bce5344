package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func TestPublisher_Publish(t *testing.T) {
	booking := models.Booking{ID: 10, SlotID: 3, MentorID: 2, LearnerID: 5, Status: models.BookingConfirmed}
	ev := NewEvent(KindAccepted, booking)

	ch := new(mockChannel)
	ch.On("Publish", "bookings", "booking.accepted", false, false, mock.MatchedBy(func(p amqp.Publishing) bool {
		var got Event
		if err := json.Unmarshal(p.Body, &got); err != nil {
			return false
		}
		return p.ContentType == "application/json" &&
			p.DeliveryMode == amqp.Persistent &&
			got.BookingID == 10 && got.Status == models.BookingConfirmed
	})).Return(nil).Once()

	p := NewPublisher(ch, "bookings", sl.Discard())
	require.NoError(t, p.Publish(context.Background(), ev))
	ch.AssertExpectations(t)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := new(mockChannel)
	ch.On("Publish", "bookings", "booking.created", false, false, mock.Anything).
		Return(errors.New("channel closed")).Once()

	p := NewPublisher(ch, "bookings", sl.Discard())
	err := p.Publish(context.Background(), NewEvent(KindCreated, models.Booking{ID: 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
}

func TestPublisher_CancelledContext(t *testing.T) {
	ch := new(mockChannel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPublisher(ch, "bookings", sl.Discard())
	err := p.Publish(ctx, NewEvent(KindCreated, models.Booking{ID: 1}))
	assert.ErrorIs(t, err, context.Canceled)
	ch.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishMessage_MarshalError(t *testing.T) {
	badMsg := struct {
		Ch chan int `json:"ch"`
	}{Ch: make(chan int)}

	err := PublishMessage(new(mockChannel), "", "q", badMsg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
}

func TestEvent_RoutingKeyAndKind(t *testing.T) {
	tests := []struct {
		ev   models.BookingEvent
		want string
	}{
		{ev: models.EventAccept, want: "booking.accepted"},
		{ev: models.EventReject, want: "booking.rejected"},
		{ev: models.EventCancel, want: "booking.cancelled"},
		{ev: models.EventComplete, want: "booking.completed"},
	}
	for _, tt := range tests {
		t.Run(string(tt.ev), func(t *testing.T) {
			assert.Equal(t, tt.want, NewEvent(KindOf(tt.ev), models.Booking{ID: 1}).RoutingKey())
		})
	}
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a := NewEvent(KindCreated, models.Booking{ID: 1})
	b := NewEvent(KindCreated, models.Booking{ID: 1})
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestDecodeEvent(t *testing.T) {
	body, err := json.Marshal(NewEvent(KindRejected, models.Booking{ID: 4, MentorID: 2}))
	require.NoError(t, err)

	ev, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, KindRejected, ev.Kind)
	assert.Equal(t, int64(2), ev.MentorID)

	_, err = DecodeEvent([]byte(`{"kind":"created"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestBookingQueues(t *testing.T) {
	queues := BookingQueues("portal.cache")

	require.Len(t, queues, 1)
	assert.Equal(t, "portal.cache", queues[0].QueueName)
	assert.Equal(t, "booking.*", queues[0].RoutingKey)
}
