package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/booking"
	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/lib/jwt"
	"github.com/magabrotheeeer/speakup/internal/lib/password"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/speakup/internal/services/auth"
	mentorservice "github.com/magabrotheeeer/speakup/internal/services/mentor"
	moderationservice "github.com/magabrotheeeer/speakup/internal/services/moderation"
	reservationservice "github.com/magabrotheeeer/speakup/internal/services/reservation"
	"github.com/magabrotheeeer/speakup/internal/session"
	"github.com/magabrotheeeer/speakup/internal/storage/memory"
)

func init() {
	password.Cost = bcrypt.MinCost
}

const (
	adminEmail = "admin@speakup.dev"
	adminPass  = "admin-pass"
)

// platform - sandbox на памяти процесса, поднятый в httptest.
type platform struct {
	t    *testing.T
	base *apiclient.Client
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	log := sl.Discard()
	repo := memory.New()
	auth := authservice.NewAuthService(repo, jwt.NewJWTMaker("e2e-secret", time.Hour), nil, cache.NewMemory(), log)
	require.NoError(t, auth.SeedAdmin(context.Background(), adminEmail, adminPass))

	r := chi.NewRouter()
	RegisterRoutes(r, log, Services{
		Auth:        auth,
		Mentors:     mentorservice.NewMentorService(repo, log),
		Reservation: reservationservice.NewReservationService(repo, rabbitmq.NopPublisher{}, log),
		Moderation:  moderationservice.NewModerationService(repo, log),
		Health:      repo,
	}, RouteOptions{PortalCallbackURL: "http://portal.test/auth/callback"})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &platform{t: t, base: apiclient.New(srv.URL, 5*time.Second, log)}
}

// actor - пользователь портала со своей сессией и менеджером бронирований.
type actor struct {
	user    models.User
	client  *apiclient.Client
	session *session.Session
	manager *booking.Manager
}

func (p *platform) login(email, pass string) *actor {
	p.t.Helper()
	ctx := context.Background()
	token, err := p.base.Login(ctx, models.Credentials{Email: email, Password: pass})
	require.NoError(p.t, err)

	sess := session.New(session.NewMemoryStore(), p.base, sl.Discard())
	u, err := sess.Login(ctx, token)
	require.NoError(p.t, err)

	client := p.base.WithCredentials(sess)
	return &actor{
		user:    u,
		client:  client,
		session: sess,
		manager: booking.New(client, cache.NewMemory(), time.Minute, u, sl.Discard()),
	}
}

func (p *platform) register(email string, role models.Role) *actor {
	p.t.Helper()
	_, err := p.base.Register(context.Background(), models.Registration{
		Email: email, Password: "secret1", FullName: email, Role: role,
	})
	require.NoError(p.t, err)
	return p.login(email, "secret1")
}

// verifiedMentor регистрирует наставника, заполняет профиль и проводит его через проверку.
func (p *platform) verifiedMentor(admin *actor, email string) *actor {
	p.t.Helper()
	ctx := context.Background()
	m := p.register(email, models.RoleMentor)
	_, err := m.manager.UpdateProfile(ctx, models.ProfileUpdate{DisplayName: email, Skills: "IELTS, Business English"})
	require.NoError(p.t, err)
	_, err = admin.manager.ModerateMentor(ctx, m.user.ID, models.ActionVerify)
	require.NoError(p.t, err)
	return m
}

func (a *actor) openSlot(t *testing.T, start time.Time) models.AvailabilitySlot {
	t.Helper()
	slot, err := a.manager.CreateSlot(context.Background(), models.NewSlot{StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)
	return slot
}

func TestPlatform_BookAcceptConfirmed(t *testing.T) {
	p := newPlatform(t)
	ctx := context.Background()
	admin := p.login(adminEmail, adminPass)
	mentor := p.verifiedMentor(admin, "anna@speakup.dev")
	learner := p.register("lena@speakup.dev", models.RoleLearner)

	slot := mentor.openSlot(t, time.Now().Add(48*time.Hour).Truncate(time.Minute))

	rows, err := learner.manager.ListSlots(ctx, mentor.user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Selectable)

	b, err := learner.manager.CreateBooking(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)

	rows, err = learner.manager.ListSlots(ctx, mentor.user.ID)
	require.NoError(t, err)
	assert.False(t, rows[0].Selectable, "booked slot stays visible but not selectable")

	incoming, err := mentor.manager.ListMentorBookings(ctx)
	require.NoError(t, err)
	require.Len(t, incoming, 1)

	accepted, err := mentor.manager.AcceptBooking(ctx, incoming[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, accepted.Status)

	mine, err := learner.manager.ListLearnerBookings(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.BookingConfirmed, mine[0].Status)

	_, err = mentor.manager.AcceptBooking(ctx, accepted.ID)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	other := p.register("oleg@speakup.dev", models.RoleLearner)
	_, err = other.manager.CreateBooking(ctx, slot.ID)
	assert.ErrorIs(t, err, booking.ErrSlotTaken)
}

func TestPlatform_ConcurrentDoubleBooking(t *testing.T) {
	p := newPlatform(t)
	ctx := context.Background()
	admin := p.login(adminEmail, adminPass)
	mentor := p.verifiedMentor(admin, "anna@speakup.dev")
	slot := mentor.openSlot(t, time.Now().Add(24*time.Hour).Truncate(time.Minute))

	const n = 6
	learners := make([]*actor, n)
	for i := range learners {
		learners[i] = p.register(fmt.Sprintf("learner%d@speakup.dev", i), models.RoleLearner)
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
	)
	for _, l := range learners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := l.manager.CreateBooking(ctx, slot.ID)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, booking.ErrSlotTaken):
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())

	incoming, err := mentor.manager.ListMentorBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)
}

func TestPlatform_VerificationControlsVisibility(t *testing.T) {
	p := newPlatform(t)
	ctx := context.Background()
	admin := p.login(adminEmail, adminPass)
	learner := p.register("lena@speakup.dev", models.RoleLearner)

	mentor := p.register("anna@speakup.dev", models.RoleMentor)
	_, err := mentor.manager.UpdateProfile(ctx, models.ProfileUpdate{DisplayName: "Anna", Skills: "IELTS"})
	require.NoError(t, err)

	visible := func() []models.MentorProfile {
		t.Helper()
		list, err := learner.client.ListMentors(ctx, models.MentorFilter{})
		require.NoError(t, err)
		return list
	}

	assert.Empty(t, visible(), "pending mentor is hidden from learners")

	all, err := admin.manager.AdminMentors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.VerificationPending, all[0].Verification)

	_, err = admin.manager.ModerateMentor(ctx, mentor.user.ID, models.ActionVerify)
	require.NoError(t, err)
	require.Len(t, visible(), 1)

	bySkill, err := learner.client.ListMentors(ctx, models.MentorFilter{Skill: "ielts"})
	require.NoError(t, err)
	assert.Len(t, bySkill, 1)

	_, err = admin.manager.ModerateMentor(ctx, mentor.user.ID, models.ActionUnverify)
	require.NoError(t, err)
	assert.Empty(t, visible())

	_, err = admin.manager.ModerateMentor(ctx, mentor.user.ID, models.ActionUnverify)
	assert.Error(t, err)
}

func TestPlatform_GuardsAndDeactivation(t *testing.T) {
	p := newPlatform(t)
	ctx := context.Background()
	admin := p.login(adminEmail, adminPass)
	learner := p.register("lena@speakup.dev", models.RoleLearner)

	_, err := learner.client.CreateSlot(ctx, models.NewSlot{StartTime: time.Now().Add(time.Hour), EndTime: time.Now().Add(2 * time.Hour)})
	assert.ErrorIs(t, err, apiclient.ErrForbidden)

	_, err = learner.client.AdminListUsers(ctx)
	assert.ErrorIs(t, err, apiclient.ErrForbidden)

	_, err = p.base.ListMyBookings(ctx)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)

	assert.Equal(t, session.Decision{Kind: session.RedirectLanding, Location: "/learner"}, learner.session.Check(models.RoleAdmin))

	_, err = admin.manager.SetUserActive(ctx, learner.user.ID, false)
	require.NoError(t, err)

	_, err = learner.client.ListMyBookings(ctx)
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Equal(t, session.Unauthenticated, learner.session.State(), "401 ends the portal session")

	_, err = p.base.Login(ctx, models.Credentials{Email: "lena@speakup.dev", Password: "secret1"})
	assert.ErrorIs(t, err, apiclient.ErrForbidden)
}

func TestPlatform_RoleChangeTakesEffect(t *testing.T) {
	p := newPlatform(t)
	ctx := context.Background()
	admin := p.login(adminEmail, adminPass)
	user := p.register("lena@speakup.dev", models.RoleLearner)

	_, err := admin.manager.SetUserRole(ctx, user.user.ID, models.RoleMentor)
	require.NoError(t, err)

	_, err = user.client.UpdateProfile(ctx, models.ProfileUpdate{DisplayName: "Lena"})
	assert.NoError(t, err, "mentor routes open without a new login")

	_, err = user.client.ListMyBookings(ctx)
	assert.ErrorIs(t, err, apiclient.ErrForbidden)
}
