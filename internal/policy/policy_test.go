package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/speakup/internal/models"
)

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		required []models.Role
		want     bool
	}{
		{name: "learner in learner area", role: models.RoleLearner, required: []models.Role{models.RoleLearner}, want: true},
		{name: "learner in admin area", role: models.RoleLearner, required: []models.Role{models.RoleAdmin}, want: false},
		{name: "mentor in mentor or admin area", role: models.RoleMentor, required: []models.Role{models.RoleMentor, models.RoleAdmin}, want: true},
		{name: "any authenticated", role: models.RoleAdmin, required: nil, want: true},
		{name: "unknown role denied", role: models.Role("GUEST"), required: nil, want: false},
		{name: "empty role denied", role: "", required: []models.Role{models.RoleLearner}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.role, tt.required))
		})
	}
}

func TestLanding(t *testing.T) {
	assert.Equal(t, LearnerArea, Landing(models.RoleLearner))
	assert.Equal(t, MentorArea, Landing(models.RoleMentor))
	assert.Equal(t, AdminArea, Landing(models.RoleAdmin))
	assert.Equal(t, LoginPath, Landing(models.Role("")))
}

func TestVisibleMentors(t *testing.T) {
	mentors := []models.MentorProfile{
		{MentorID: 1, Verification: models.VerificationVerified},
		{MentorID: 2, Verification: models.VerificationPending},
		{MentorID: 3, Verification: models.VerificationRejected},
	}

	learner := VisibleMentors(models.RoleLearner, mentors)
	assert.Len(t, learner, 1)
	assert.Equal(t, int64(1), learner[0].MentorID)

	mentor := VisibleMentors(models.RoleMentor, mentors)
	assert.Len(t, mentor, 1)

	admin := VisibleMentors(models.RoleAdmin, mentors)
	assert.Len(t, admin, 3)
}

func TestMentorQuery(t *testing.T) {
	f := MentorQuery(models.RoleLearner, models.MentorFilter{Skill: "ielts", Status: models.VerificationPending})
	assert.Equal(t, models.VerificationVerified, f.Status)
	assert.Equal(t, "ielts", f.Skill)

	f = MentorQuery(models.RoleAdmin, models.MentorFilter{Status: models.VerificationPending})
	assert.Equal(t, models.VerificationPending, f.Status)
}
