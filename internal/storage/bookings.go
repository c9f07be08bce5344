package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/speakup/internal/models"
)

const bookingSelect = `SELECT b.id, b.slot_id, b.mentor_id, b.learner_id, b.status, b.rejection_reason,
			  s.start_time, s.end_time, b.created_at
			  FROM bookings b
			  JOIN availability_slots s ON s.id = b.slot_id`

func scanBooking(row scanner) (models.Booking, error) {
	var (
		b      models.Booking
		reason sql.NullString
	)
	if err := row.Scan(&b.ID, &b.SlotID, &b.MentorID, &b.LearnerID, &b.Status, &reason,
		&b.StartTime, &b.EndTime, &b.CreatedAt); err != nil {
		return models.Booking{}, err
	}
	if reason.Valid {
		b.RejectionReason = &reason.String
	}
	return b, nil
}

// CreateBooking занимает слот и создаёт бронирование в статусе PENDING.
// Флаг слота меняется условным UPDATE, поэтому из конкурирующих запросов
// успешен ровно один, остальные получают ErrSlotTaken.
func (s *Storage) CreateBooking(ctx context.Context, slotID, learnerID int64) (models.Booking, error) {
	const op = "storage.CreateBooking"
	if err := checkCtx(ctx, op); err != nil {
		return models.Booking{}, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		mentorID   int64
		start, end time.Time
	)
	err = tx.QueryRowContext(ctx,
		`UPDATE availability_slots SET is_booked = true
		 WHERE id = $1 AND NOT is_booked
		 RETURNING mentor_id, start_time, end_time`, slotID).Scan(&mentorID, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM availability_slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
			return models.Booking{}, fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return models.Booking{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return models.Booking{}, fmt.Errorf("%s: %w", op, ErrSlotTaken)
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	b := models.Booking{
		SlotID:    slotID,
		MentorID:  mentorID,
		LearnerID: learnerID,
		Status:    models.BookingPending,
		StartTime: start,
		EndTime:   end,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO bookings (slot_id, mentor_id, learner_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`, slotID, mentorID, learnerID, b.Status).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Booking{}, fmt.Errorf("%s: %w", op, ErrSlotTaken)
		}
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// GetBooking возвращает бронирование по ID.
func (s *Storage) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	const op = "storage.GetBooking"
	if err := checkCtx(ctx, op); err != nil {
		return models.Booking{}, err
	}
	b, err := scanBooking(s.DB.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return models.Booking{}, notFound(op, err)
	}
	return b, nil
}

// UpdateBookingStatus переводит бронирование из статуса from в to.
// Если статус уже изменился, возвращается ErrStatusChanged. Слот при этом не освобождается.
func (s *Storage) UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus, reason *string) (models.Booking, error) {
	const op = "storage.UpdateBookingStatus"
	if err := checkCtx(ctx, op); err != nil {
		return models.Booking{}, err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE bookings SET status = $3, rejection_reason = COALESCE($4, rejection_reason)
		 WHERE id = $1 AND status = $2`, id, from, to, reason)
	if err != nil {
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		if _, err := s.GetBooking(ctx, id); err != nil {
			return models.Booking{}, fmt.Errorf("%s: %w", op, err)
		}
		return models.Booking{}, fmt.Errorf("%s: %w", op, ErrStatusChanged)
	}
	return s.GetBooking(ctx, id)
}

func (s *Storage) listBookings(ctx context.Context, op, where string, args ...any) ([]models.Booking, error) {
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, bookingSelect+` WHERE `+where+` ORDER BY s.start_time, b.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListBookingsByMentor возвращает бронирования на слоты наставника.
func (s *Storage) ListBookingsByMentor(ctx context.Context, mentorID int64) ([]models.Booking, error) {
	return s.listBookings(ctx, "storage.ListBookingsByMentor", `b.mentor_id = $1`, mentorID)
}

// ListBookingsByLearner возвращает бронирования ученика.
func (s *Storage) ListBookingsByLearner(ctx context.Context, learnerID int64) ([]models.Booking, error) {
	return s.listBookings(ctx, "storage.ListBookingsByLearner", `b.learner_id = $1`, learnerID)
}

// ListEndedConfirmed возвращает подтверждённые бронирования, занятие по которым закончилось до before.
func (s *Storage) ListEndedConfirmed(ctx context.Context, before time.Time) ([]models.Booking, error) {
	return s.listBookings(ctx, "storage.ListEndedConfirmed",
		`b.status = 'CONFIRMED' AND s.end_time <= $1`, before.UTC())
}
