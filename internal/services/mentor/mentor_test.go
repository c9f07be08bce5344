package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/storage/memory"
)

func seedMentor(t *testing.T, repo *memory.Storage, email string) models.User {
	t.Helper()
	u := models.User{Email: email, Role: models.RoleMentor, IsActive: true}
	id, err := repo.CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	return u
}

func TestMentorService_Visibility(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := NewMentorService(repo, sl.Discard())

	anna := seedMentor(t, repo, "anna@speakup.dev")
	boris := seedMentor(t, repo, "boris@speakup.dev")
	_, err := svc.UpdateProfile(ctx, anna, models.ProfileUpdate{DisplayName: " Anna ", Skills: "IELTS,, Business "})
	require.NoError(t, err)
	_, err = svc.UpdateProfile(ctx, boris, models.ProfileUpdate{DisplayName: "Boris", Skills: "Grammar"})
	require.NoError(t, err)
	_, err = repo.UpdateVerification(ctx, anna.ID, models.VerificationPending, models.VerificationVerified)
	require.NoError(t, err)

	// Ученик не может запросить непроверенных наставников.
	learnerView, err := svc.ListMentors(ctx, models.RoleLearner, models.MentorFilter{Status: models.VerificationPending})
	require.NoError(t, err)
	require.Len(t, learnerView, 1)
	assert.Equal(t, "Anna", learnerView[0].DisplayName)
	assert.Equal(t, "IELTS, Business", learnerView[0].Skills)

	adminView, err := svc.ListMentors(ctx, models.RoleAdmin, models.MentorFilter{})
	require.NoError(t, err)
	assert.Len(t, adminView, 2)

	bySkill, err := svc.ListMentors(ctx, models.RoleLearner, models.MentorFilter{Skill: "  business "})
	require.NoError(t, err)
	assert.Len(t, bySkill, 1)
}

func TestMentorService_Slots(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := NewMentorService(repo, sl.Discard())
	anna := seedMentor(t, repo, "anna@speakup.dev")
	start := time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.CreateSlot(ctx, anna, models.NewSlot{StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour)})
	require.NoError(t, err)
	first, err := svc.CreateSlot(ctx, anna, models.NewSlot{StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)

	slots, err := svc.ListSlots(ctx, anna.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, first.ID, slots[0].ID)

	learner := models.User{ID: 99, Role: models.RoleLearner, IsActive: true}
	_, err = svc.CreateSlot(ctx, learner, models.NewSlot{StartTime: start, EndTime: start.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrNotMentor)
	_, err = svc.UpdateProfile(ctx, learner, models.ProfileUpdate{DisplayName: "x"})
	assert.ErrorIs(t, err, ErrNotMentor)
}
