// Package report строит выгрузку администратора в формате XLSX:
// лист наставников с их статусом проверки и лист пользователей.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// Имена листов выгрузки.
const (
	MentorsSheet = "Mentors"
	UsersSheet   = "Users"
)

// ContentType - MIME-тип выгрузки.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	mentorHeader = []any{"ID", "Name", "Skills", "Verification"}
	userHeader   = []any{"ID", "Email", "Full name", "Role", "Active"}
)

// Build собирает книгу. Вызывающий обязан закрыть её.
func Build(mentors []models.MentorProfile, users []models.User) (*excelize.File, error) {
	const op = "report.Build"

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", MentorsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := f.NewSheet(UsersSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mentorRows := make([][]any, 0, len(mentors))
	for _, m := range mentors {
		mentorRows = append(mentorRows, []any{m.MentorID, m.DisplayName, m.Skills, string(m.Verification)})
	}
	userRows := make([][]any, 0, len(users))
	for _, u := range users {
		userRows = append(userRows, []any{u.ID, u.Email, u.FullName, string(u.Role), strconv.FormatBool(u.IsActive)})
	}

	if err := writeSheet(f, MentorsSheet, mentorHeader, mentorRows); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := writeSheet(f, UsersSheet, userHeader, userRows); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_ = f.SetColWidth(MentorsSheet, "B", "C", 30)
	_ = f.SetColWidth(UsersSheet, "B", "C", 30)
	f.SetActiveSheet(0)
	return f, nil
}

// Write собирает книгу и пишет её в w.
func Write(w io.Writer, mentors []models.MentorProfile, users []models.User) error {
	const op = "report.Write"
	f, err := Build(mentors, users)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
