package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/speakup/internal/models"
)

func TestWrite(t *testing.T) {
	mentors := []models.MentorProfile{
		{MentorID: 2, DisplayName: "Anna", Skills: "IELTS, Business", Verification: models.VerificationVerified},
		{MentorID: 5, DisplayName: "Boris", Skills: "Grammar", Verification: models.VerificationPending},
	}
	users := []models.User{
		{ID: 1, Email: "admin@speakup.dev", FullName: "Admin", Role: models.RoleAdmin, IsActive: true},
		{ID: 9, Email: "l@speakup.dev", FullName: "Learner", Role: models.RoleLearner, IsActive: false},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, mentors, users))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{MentorsSheet, UsersSheet}, f.GetSheetList())

	rows, err := f.GetRows(MentorsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Name", "Skills", "Verification"}, rows[0])
	assert.Equal(t, []string{"2", "Anna", "IELTS, Business", "VERIFIED"}, rows[1])
	assert.Equal(t, "PENDING", rows[2][3])

	rows, err = f.GetRows(UsersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"9", "l@speakup.dev", "Learner", "LEARNER", "false"}, rows[2])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(UsersSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
