package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"examprep/internal/model"
	"examprep/internal/store"
	"examprep/internal/validation"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")

var userSheetColumns = []string{"username", "email", "password", "userType", "phone", "preferredLanguage", "board", "isActive", "createdAt"}

type UserImportRowError struct {
	Row      int    `json:"row"`
	Username string `json:"username,omitempty"`
	Error    any    `json:"error"`
}

type UserImportReport struct {
	TotalRows   int                  `json:"totalRows"`
	CreatedRows int                  `json:"createdRows"`
	UpdatedRows int                  `json:"updatedRows"`
	FailedRows  int                  `json:"failedRows"`
	Errors      []UserImportRowError `json:"errors"`
}

// ExportUsersExcel writes the filtered users to a workbook. The password
// column is left empty so the same file can be edited and imported back.
func (s *Service) ExportUsersExcel(ctx context.Context, f model.UserFilter) ([]byte, error) {
	items, err := s.ListUsers(ctx, f)
	if err != nil {
		return nil, err
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()
	sheet := wb.GetSheetName(0)
	for i, h := range userSheetColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(sheet, cell, h)
	}
	for i, u := range items {
		values := []any{
			u.Username,
			u.Email,
			"",
			u.UserType,
			deref(u.Phone),
			deref(u.PreferredLanguage),
			deref(u.Board),
			u.IsActive,
			u.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = wb.SetCellValue(sheet, cell, v)
		}
	}
	_ = wb.SetColWidth(sheet, "A", "I", 22)

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportUsersExcel creates users that do not exist yet and updates the ones
// matched by username. Each row succeeds or fails on its own.
func (s *Service) ImportUsersExcel(ctx context.Context, r io.Reader) (*UserImportReport, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSpreadsheet)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no data rows found", ErrInvalidSpreadsheet)
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := header["username"]; !ok {
		return nil, fmt.Errorf("%w: missing required column username", ErrInvalidSpreadsheet)
	}

	report := &UserImportReport{Errors: make([]UserImportRowError, 0)}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		get := func(key string) string {
			idx, ok := header[strings.ToLower(key)]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		username := get("username")
		if username == "" && strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		report.TotalRows++

		created, err := s.importUserRow(ctx, username, get)
		if err != nil {
			report.FailedRows++
			report.Errors = append(report.Errors, UserImportRowError{Row: i + 1, Username: username, Error: rowMessage(err)})
			continue
		}
		if created {
			report.CreatedRows++
		} else {
			report.UpdatedRows++
		}
	}
	return report, nil
}

func (s *Service) importUserRow(ctx context.Context, username string, get func(string) string) (bool, error) {
	active, err := parseActive(get("isActive"))
	if err != nil {
		return false, err
	}

	existing, err := s.store.FindUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("find user by username: %w", err)
	}

	if existing == nil {
		_, err := s.CreateUser(ctx, model.UserInput{
			Username:          username,
			Password:          get("password"),
			Email:             get("email"),
			Phone:             optional(get("phone")),
			PreferredLanguage: optional(get("preferredLanguage")),
			Board:             optional(get("board")),
			UserType:          get("userType"),
			IsActive:          active,
		})
		return true, err
	}

	in := model.UpdateUserInput{
		Email:             optional(get("email")),
		Password:          optional(get("password")),
		Phone:             optional(get("phone")),
		PreferredLanguage: optional(get("preferredLanguage")),
		Board:             optional(get("board")),
	}
	if _, err := s.UpdateUser(ctx, existing.ID, in); err != nil {
		return false, err
	}
	if userType := get("userType"); userType != "" {
		if _, err := s.ChangeRole(ctx, existing.ID, model.UserRoleInput{UserType: userType}); err != nil {
			return false, err
		}
	}
	if active != nil && *active != existing.IsActive {
		if _, err := s.ToggleActive(ctx, existing.ID); err != nil {
			return false, err
		}
	}
	return false, nil
}

func rowMessage(err error) any {
	if verrs, ok := validation.As(err); ok {
		return verrs
	}
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return "Username already exists"
	case errors.Is(err, errInvalidActive):
		return err.Error()
	}
	log.Printf("user import row: %v", err)
	return "An unexpected error occurred"
}

var errInvalidActive = errors.New(`"isActive" must be true or false`)

func parseActive(v string) (*bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil, nil
	}
	switch v {
	case "yes", "y", "active":
		b := true
		return &b, nil
	case "no", "n", "inactive":
		b := false
		return &b, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, errInvalidActive
	}
	return &b, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
