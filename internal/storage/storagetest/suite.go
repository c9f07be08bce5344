// Package storagetest - общий набор проверок для реализаций хранилища sandbox.
// Одни и те же сценарии гоняются и на PostgreSQL, и на хранилище в памяти.
package storagetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/storage"
)

// Repository - методы хранилища, которые проверяет набор.
type Repository interface {
	CreateUser(ctx context.Context, u models.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) (models.User, error)
	SetUserRole(ctx context.Context, id int64, role models.Role) (models.User, error)

	UpsertProfile(ctx context.Context, p models.MentorProfile) (models.MentorProfile, error)
	GetProfile(ctx context.Context, mentorID int64) (models.MentorProfile, error)
	ListProfiles(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error)
	UpdateVerification(ctx context.Context, mentorID int64, from, to models.VerificationStatus) (models.MentorProfile, error)

	CreateSlot(ctx context.Context, slot models.AvailabilitySlot) (models.AvailabilitySlot, error)
	ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error)

	CreateBooking(ctx context.Context, slotID, learnerID int64) (models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus, reason *string) (models.Booking, error)
	ListBookingsByMentor(ctx context.Context, mentorID int64) ([]models.Booking, error)
	ListBookingsByLearner(ctx context.Context, learnerID int64) ([]models.Booking, error)
	ListEndedConfirmed(ctx context.Context, before time.Time) ([]models.Booking, error)
}

// Run прогоняет все сценарии. newRepo должен возвращать пустое хранилище.
func Run(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepo(t)) })
	t.Run("profiles", func(t *testing.T) { testProfiles(t, newRepo(t)) })
	t.Run("slots", func(t *testing.T) { testSlots(t, newRepo(t)) })
	t.Run("booking lifecycle", func(t *testing.T) { testBookingLifecycle(t, newRepo(t)) })
	t.Run("concurrent booking", func(t *testing.T) { testConcurrentBooking(t, newRepo(t)) })
	t.Run("cancelled context", func(t *testing.T) { testCancelledContext(t, newRepo(t)) })
}

func mustUser(t *testing.T, repo Repository, email string, role models.Role) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), models.User{
		Email: email, FullName: email, Role: role, IsActive: true, PasswordHash: "hash",
	})
	require.NoError(t, err)
	return id
}

func testUsers(t *testing.T, repo Repository) {
	ctx := context.Background()
	id := mustUser(t, repo, "Anna@Speakup.dev", models.RoleLearner)

	_, err := repo.CreateUser(ctx, models.User{Email: "anna@speakup.dev", Role: models.RoleMentor, IsActive: true})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)

	u, err := repo.GetUserByEmail(ctx, "ANNA@speakup.dev")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash", u.PasswordHash)

	_, err = repo.GetUserByEmail(ctx, "nobody@speakup.dev")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.GetUserByID(ctx, id+1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	u, err = repo.SetUserActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	u, err = repo.SetUserRole(ctx, id, models.RoleMentor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMentor, u.Role)

	_, err = repo.SetUserRole(ctx, id+1000, models.RoleAdmin)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	second := mustUser(t, repo, "boris@speakup.dev", models.RoleLearner)
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, id, users[0].ID)
	assert.Equal(t, second, users[1].ID)
}

func testProfiles(t *testing.T, repo Repository) {
	ctx := context.Background()
	anna := mustUser(t, repo, "anna@speakup.dev", models.RoleMentor)
	boris := mustUser(t, repo, "boris@speakup.dev", models.RoleMentor)

	p, err := repo.UpsertProfile(ctx, models.MentorProfile{MentorID: anna, DisplayName: "Anna", Skills: "IELTS, Business"})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, p.Verification)
	_, err = repo.UpsertProfile(ctx, models.MentorProfile{MentorID: boris, DisplayName: "Boris", Skills: "Grammar"})
	require.NoError(t, err)

	p, err = repo.UpdateVerification(ctx, anna, models.VerificationPending, models.VerificationVerified)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, p.Verification)

	_, err = repo.UpdateVerification(ctx, anna, models.VerificationPending, models.VerificationRejected)
	assert.ErrorIs(t, err, storage.ErrStatusChanged)
	_, err = repo.UpdateVerification(ctx, boris+1000, models.VerificationPending, models.VerificationVerified)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Обновление профиля не сбрасывает проверку.
	p, err = repo.UpsertProfile(ctx, models.MentorProfile{MentorID: anna, DisplayName: "Anna K", Skills: "IELTS"})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, p.Verification)

	verified, err := repo.ListProfiles(ctx, models.MentorFilter{Status: models.VerificationVerified})
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, "Anna K", verified[0].DisplayName)

	bySkill, err := repo.ListProfiles(ctx, models.MentorFilter{Skill: "gram"})
	require.NoError(t, err)
	require.Len(t, bySkill, 1)
	assert.Equal(t, boris, bySkill[0].MentorID)

	_, err = repo.SetUserActive(ctx, boris, false)
	require.NoError(t, err)
	all, err := repo.ListProfiles(ctx, models.MentorFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1, "inactive mentors are hidden")
	assert.Equal(t, anna, all[0].MentorID)
}

func testSlots(t *testing.T, repo Repository) {
	ctx := context.Background()
	mentor := mustUser(t, repo, "anna@speakup.dev", models.RoleMentor)
	base := time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)

	late, err := repo.CreateSlot(ctx, models.AvailabilitySlot{MentorID: mentor, StartTime: base.Add(2 * time.Hour), EndTime: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	early, err := repo.CreateSlot(ctx, models.AvailabilitySlot{MentorID: mentor, StartTime: base, EndTime: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, early.IsBooked)

	slots, err := repo.ListSlots(ctx, mentor)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, early.ID, slots[0].ID)
	assert.Equal(t, late.ID, slots[1].ID)
	assert.True(t, slots[0].StartTime.Equal(base))

	empty, err := repo.ListSlots(ctx, mentor+1000)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testBookingLifecycle(t *testing.T, repo Repository) {
	ctx := context.Background()
	mentor := mustUser(t, repo, "anna@speakup.dev", models.RoleMentor)
	learner := mustUser(t, repo, "lev@speakup.dev", models.RoleLearner)
	start := time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)
	slot, err := repo.CreateSlot(ctx, models.AvailabilitySlot{MentorID: mentor, StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)

	b, err := repo.CreateBooking(ctx, slot.ID, learner)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, mentor, b.MentorID)
	assert.True(t, b.StartTime.Equal(start))

	_, err = repo.CreateBooking(ctx, slot.ID, learner)
	assert.ErrorIs(t, err, storage.ErrSlotTaken)
	_, err = repo.CreateBooking(ctx, slot.ID+1000, learner)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	slots, err := repo.ListSlots(ctx, mentor)
	require.NoError(t, err)
	assert.True(t, slots[0].IsBooked)

	b, err = repo.UpdateBookingStatus(ctx, b.ID, models.BookingPending, models.BookingConfirmed, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)

	_, err = repo.UpdateBookingStatus(ctx, b.ID, models.BookingPending, models.BookingCancelled, nil)
	assert.ErrorIs(t, err, storage.ErrStatusChanged)
	_, err = repo.UpdateBookingStatus(ctx, b.ID+1000, models.BookingPending, models.BookingCancelled, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ended, err := repo.ListEndedConfirmed(ctx, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, ended, 1)
	notYet, err := repo.ListEndedConfirmed(ctx, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, notYet)

	byMentor, err := repo.ListBookingsByMentor(ctx, mentor)
	require.NoError(t, err)
	require.Len(t, byMentor, 1)
	byLearner, err := repo.ListBookingsByLearner(ctx, learner)
	require.NoError(t, err)
	require.Len(t, byLearner, 1)
	assert.Equal(t, b.ID, byLearner[0].ID)

	// Отказ с причиной на втором слоте.
	slot2, err := repo.CreateSlot(ctx, models.AvailabilitySlot{MentorID: mentor, StartTime: start.Add(24 * time.Hour), EndTime: start.Add(25 * time.Hour)})
	require.NoError(t, err)
	b2, err := repo.CreateBooking(ctx, slot2.ID, learner)
	require.NoError(t, err)
	reason := "busy"
	b2, err = repo.UpdateBookingStatus(ctx, b2.ID, models.BookingPending, models.BookingCancelled, &reason)
	require.NoError(t, err)
	require.NotNil(t, b2.RejectionReason)
	assert.Equal(t, "busy", *b2.RejectionReason)

	// Отменённое бронирование слот не освобождает.
	_, err = repo.CreateBooking(ctx, slot2.ID, learner)
	assert.ErrorIs(t, err, storage.ErrSlotTaken)
}

func testConcurrentBooking(t *testing.T, repo Repository) {
	ctx := context.Background()
	mentor := mustUser(t, repo, "anna@speakup.dev", models.RoleMentor)
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	slot, err := repo.CreateSlot(ctx, models.AvailabilitySlot{MentorID: mentor, StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)

	const learners = 8
	ids := make([]int64, learners)
	for i := range ids {
		ids[i] = mustUser(t, repo, "learner"+string(rune('a'+i))+"@speakup.dev", models.RoleLearner)
	}

	var (
		wg      sync.WaitGroup
		success atomic.Int32
		taken   atomic.Int32
	)
	for _, id := range ids {
		wg.Add(1)
		go func(learnerID int64) {
			defer wg.Done()
			_, err := repo.CreateBooking(ctx, slot.ID, learnerID)
			switch {
			case err == nil:
				success.Add(1)
			case assert.ErrorIs(t, err, storage.ErrSlotTaken):
				taken.Add(1)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
	assert.Equal(t, int32(learners-1), taken.Load())
}

func testCancelledContext(t *testing.T, repo Repository) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.CreateUser(ctx, models.User{Email: "x@speakup.dev", Role: models.RoleLearner})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.ListSlots(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.CreateBooking(ctx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
