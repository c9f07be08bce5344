package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/speakup/internal/models"
)

const slotColumns = `id, mentor_id, start_time, end_time, is_booked`

func scanSlot(row scanner) (models.AvailabilitySlot, error) {
	var sl models.AvailabilitySlot
	err := row.Scan(&sl.ID, &sl.MentorID, &sl.StartTime, &sl.EndTime, &sl.IsBooked)
	return sl, err
}

// CreateSlot сохраняет новый свободный слот.
func (s *Storage) CreateSlot(ctx context.Context, slot models.AvailabilitySlot) (models.AvailabilitySlot, error) {
	const op = "storage.CreateSlot"
	if err := checkCtx(ctx, op); err != nil {
		return models.AvailabilitySlot{}, err
	}
	out, err := scanSlot(s.DB.QueryRowContext(ctx,
		`INSERT INTO availability_slots (mentor_id, start_time, end_time)
		 VALUES ($1, $2, $3)
		 RETURNING `+slotColumns, slot.MentorID, slot.StartTime.UTC(), slot.EndTime.UTC()))
	if err != nil {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListSlots возвращает слоты наставника по возрастанию времени начала.
func (s *Storage) ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error) {
	const op = "storage.ListSlots"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM availability_slots WHERE mentor_id = $1 ORDER BY start_time, id`, mentorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.AvailabilitySlot, 0)
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
