package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/speakup/internal/models"
)

func checkID(op string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%s: %w", op, &Error{Message: "id must be positive", kind: ErrValidation})
	}
	return nil
}

// ListMentors возвращает наставников по фильтру навыка и статуса проверки.
func (c *Client) ListMentors(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error) {
	const op = "apiclient.ListMentors"
	q := url.Values{}
	if f.Skill != "" {
		q.Set("skill", f.Skill)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	var out struct {
		Mentors []models.MentorProfile `json:"mentors"`
	}
	err := c.do(ctx, op, call{
		endpoint: "mentors.list",
		method:   http.MethodGet,
		path:     "/mentors",
		query:    q,
		out:      &out,
	})
	return out.Mentors, err
}

// ListSlots возвращает слоты наставника.
func (c *Client) ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error) {
	const op = "apiclient.ListSlots"
	if err := checkID(op, mentorID); err != nil {
		return nil, err
	}
	var out struct {
		Slots []models.AvailabilitySlot `json:"slots"`
	}
	err := c.do(ctx, op, call{
		endpoint: "mentors.slots",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/mentors/%d/slots", mentorID),
		out:      &out,
	})
	return out.Slots, err
}

// CreateSlot открывает новый слот от имени наставника.
func (c *Client) CreateSlot(ctx context.Context, in models.NewSlot) (models.AvailabilitySlot, error) {
	const op = "apiclient.CreateSlot"
	if err := c.check(op, in); err != nil {
		return models.AvailabilitySlot{}, err
	}
	var out struct {
		Slot models.AvailabilitySlot `json:"slot"`
	}
	err := c.do(ctx, op, call{
		endpoint: "mentors.slots.create",
		method:   http.MethodPost,
		path:     "/mentors/slots",
		body:     in,
		out:      &out,
	})
	return out.Slot, err
}

// UpdateProfile создаёт или обновляет профиль наставника.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (models.MentorProfile, error) {
	const op = "apiclient.UpdateProfile"
	if err := c.check(op, in); err != nil {
		return models.MentorProfile{}, err
	}
	var out struct {
		Profile models.MentorProfile `json:"profile"`
	}
	err := c.do(ctx, op, call{
		endpoint: "mentors.profile",
		method:   http.MethodPut,
		path:     "/mentors/profile",
		body:     in,
		out:      &out,
	})
	return out.Profile, err
}

// ListMentorBookings возвращает бронирования на слоты текущего наставника.
func (c *Client) ListMentorBookings(ctx context.Context) ([]models.Booking, error) {
	const op = "apiclient.ListMentorBookings"
	var out struct {
		Bookings []models.Booking `json:"bookings"`
	}
	err := c.do(ctx, op, call{
		endpoint: "mentors.bookings",
		method:   http.MethodGet,
		path:     "/mentors/bookings",
		out:      &out,
	})
	return out.Bookings, err
}

// AcceptBooking подтверждает бронирование.
func (c *Client) AcceptBooking(ctx context.Context, id int64) (models.Booking, error) {
	const op = "apiclient.AcceptBooking"
	if err := checkID(op, id); err != nil {
		return models.Booking{}, err
	}
	return c.bookingCall(ctx, op, call{
		endpoint: "mentors.bookings.accept",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/mentors/bookings/%d/accept", id),
	})
}

// RejectBooking отклоняет бронирование с необязательной причиной.
func (c *Client) RejectBooking(ctx context.Context, id int64, reason string) (models.Booking, error) {
	const op = "apiclient.RejectBooking"
	if err := checkID(op, id); err != nil {
		return models.Booking{}, err
	}
	in := models.RejectRequest{Reason: reason}
	if err := c.check(op, in); err != nil {
		return models.Booking{}, err
	}
	return c.bookingCall(ctx, op, call{
		endpoint: "mentors.bookings.reject",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/mentors/bookings/%d/reject", id),
		body:     in,
	})
}

func (c *Client) bookingCall(ctx context.Context, op string, cl call) (models.Booking, error) {
	var out struct {
		Booking models.Booking `json:"booking"`
	}
	cl.out = &out
	err := c.do(ctx, op, cl)
	return out.Booking, err
}
