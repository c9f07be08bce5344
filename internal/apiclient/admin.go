package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// AdminListMentors возвращает наставников во всех статусах проверки.
func (c *Client) AdminListMentors(ctx context.Context) ([]models.MentorProfile, error) {
	const op = "apiclient.AdminListMentors"
	var out struct {
		Mentors []models.MentorProfile `json:"mentors"`
	}
	err := c.do(ctx, op, call{
		endpoint: "admin.mentors",
		method:   http.MethodGet,
		path:     "/admin/mentors",
		out:      &out,
	})
	return out.Mentors, err
}

// ModerateMentor применяет к наставнику действие verify, unverify или reject.
func (c *Client) ModerateMentor(ctx context.Context, mentorID int64, action models.VerificationAction) (models.MentorProfile, error) {
	const op = "apiclient.ModerateMentor"
	if err := checkID(op, mentorID); err != nil {
		return models.MentorProfile{}, err
	}
	switch action {
	case models.ActionVerify, models.ActionUnverify, models.ActionReject:
	default:
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, &Error{Message: "unknown action " + string(action), kind: ErrValidation})
	}
	var out struct {
		Profile models.MentorProfile `json:"profile"`
	}
	err := c.do(ctx, op, call{
		endpoint: "admin.mentors." + string(action),
		method:   http.MethodPut,
		path:     fmt.Sprintf("/admin/mentors/%d/%s", mentorID, action),
		out:      &out,
	})
	return out.Profile, err
}

// AdminListUsers возвращает всех пользователей платформы.
func (c *Client) AdminListUsers(ctx context.Context) ([]models.User, error) {
	const op = "apiclient.AdminListUsers"
	var out struct {
		Users []models.User `json:"users"`
	}
	err := c.do(ctx, op, call{
		endpoint: "admin.users",
		method:   http.MethodGet,
		path:     "/admin/users",
		out:      &out,
	})
	return out.Users, err
}

// SetUserActive включает или выключает учётную запись пользователя.
func (c *Client) SetUserActive(ctx context.Context, userID int64, active bool) (models.User, error) {
	const op = "apiclient.SetUserActive"
	if err := checkID(op, userID); err != nil {
		return models.User{}, err
	}
	return c.userCall(ctx, op, call{
		endpoint: "admin.users.status",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/admin/users/%d/status", userID),
		body:     models.UserStatusUpdate{IsActive: &active},
	})
}

// SetUserRole меняет роль пользователя.
func (c *Client) SetUserRole(ctx context.Context, userID int64, role models.Role) (models.User, error) {
	const op = "apiclient.SetUserRole"
	if err := checkID(op, userID); err != nil {
		return models.User{}, err
	}
	in := models.UserRoleUpdate{Role: role}
	if err := c.check(op, in); err != nil {
		return models.User{}, err
	}
	return c.userCall(ctx, op, call{
		endpoint: "admin.users.role",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/admin/users/%d/role", userID),
		body:     in,
	})
}

func (c *Client) userCall(ctx context.Context, op string, cl call) (models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	cl.out = &out
	err := c.do(ctx, op, cl)
	return out.User, err
}
