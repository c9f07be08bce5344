package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// CreateBooking бронирует слот от имени ученика.
// Если слот уже занят, бэкенд отвечает 409 и возвращается ErrConflict.
func (c *Client) CreateBooking(ctx context.Context, slotID int64) (models.Booking, error) {
	const op = "apiclient.CreateBooking"
	in := models.BookingRequest{SlotID: slotID}
	if err := c.check(op, in); err != nil {
		return models.Booking{}, err
	}
	return c.bookingCall(ctx, op, call{
		endpoint: "bookings.create",
		method:   http.MethodPost,
		path:     "/bookings/create",
		body:     in,
	})
}

// ListMyBookings возвращает бронирования текущего ученика.
func (c *Client) ListMyBookings(ctx context.Context) ([]models.Booking, error) {
	const op = "apiclient.ListMyBookings"
	var out struct {
		Bookings []models.Booking `json:"bookings"`
	}
	err := c.do(ctx, op, call{
		endpoint: "bookings.me",
		method:   http.MethodGet,
		path:     "/bookings/me",
		out:      &out,
	})
	return out.Bookings, err
}

// CancelBooking отменяет бронирование от имени ученика или наставника.
func (c *Client) CancelBooking(ctx context.Context, id int64) (models.Booking, error) {
	const op = "apiclient.CancelBooking"
	if err := checkID(op, id); err != nil {
		return models.Booking{}, err
	}
	return c.bookingCall(ctx, op, call{
		endpoint: "bookings.cancel",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/bookings/%d/cancel", id),
	})
}
