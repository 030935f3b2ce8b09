package question

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"examprep/internal/model"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")

// Spreadsheet layout: one row per translation. Rows sharing a ref belong to
// the same question; the question columns are read from the first of them.
var sheetColumns = []string{
	"ref", "examId", "subjectId", "topicId", "difficulty",
	"language", "questionText", "optionA", "optionB", "optionC", "optionD", "correctOption", "explanation",
}

var (
	questionColumns    = []string{"examId", "subjectId", "topicId", "difficulty"}
	translationColumns = []string{"language", "questionText", "optionA", "optionB", "optionC", "optionD", "correctOption", "explanation"}
	numericColumns     = map[string]bool{"examId": true, "subjectId": true, "topicId": true}
)

// ImportXLSX groups the rows of the first sheet into question payloads and
// runs them through Import.
func (s *Service) ImportXLSX(ctx context.Context, r io.Reader) ([]ImportResult, error) {
	items, err := parseQuestionSheet(r)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, items), nil
}

func parseQuestionSheet(r io.Reader) ([]json.RawMessage, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrInvalidSpreadsheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no data rows found", ErrInvalidSpreadsheet)
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"subjectid", "topicid", "difficulty", "language"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: missing required column %s", ErrInvalidSpreadsheet, col)
		}
	}

	type group struct {
		question     map[string]any
		translations []map[string]any
	}
	var order []string
	groups := map[string]*group{}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		get := func(col string) string {
			idx, ok := header[strings.ToLower(col)]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if isBlankRow(row) {
			continue
		}

		ref := get("ref")
		if ref == "" {
			ref = "row " + strconv.Itoa(i+1)
		}
		g, ok := groups[ref]
		if !ok {
			g = &group{question: map[string]any{}}
			for _, col := range questionColumns {
				if v := get(col); v != "" {
					g.question[col] = cellValue(col, v)
				}
			}
			groups[ref] = g
			order = append(order, ref)
		}

		t := map[string]any{}
		for _, col := range translationColumns {
			if v := get(col); v != "" {
				t[col] = v
			}
		}
		g.translations = append(g.translations, t)
	}

	items := make([]json.RawMessage, 0, len(order))
	for _, ref := range order {
		g := groups[ref]
		g.question["translations"] = g.translations
		raw, err := json.Marshal(g.question)
		if err != nil {
			return nil, fmt.Errorf("encode question %s: %w", ref, err)
		}
		items = append(items, raw)
	}
	return items, nil
}

// cellValue keeps id columns numeric when they parse, so a malformed id is
// reported by validation as a type error instead of being dropped.
func cellValue(col, v string) any {
	if !numericColumns[col] {
		return v
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return v
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ExportXLSX writes the filtered questions in the import layout, with the
// question id as ref.
func (s *Service) ExportXLSX(ctx context.Context, filter model.QuestionFilter) ([]byte, error) {
	items, err := s.ListQuestions(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, h := range sheetColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, q := range items {
		examID := ""
		if q.ExamID != nil {
			examID = strconv.FormatInt(*q.ExamID, 10)
		}
		base := []any{q.ID, examID, q.SubjectID, q.TopicID, q.Difficulty}
		if len(q.Translations) == 0 {
			writeSheetRow(f, sheet, row, base)
			row++
			continue
		}
		for _, t := range q.Translations {
			explanation := ""
			if t.Explanation != nil {
				explanation = *t.Explanation
			}
			values := append(append([]any{}, base...),
				t.Language, t.QuestionText, t.OptionA, t.OptionB, t.OptionC, t.OptionD, t.CorrectOption, explanation,
			)
			writeSheetRow(f, sheet, row, values)
			row++
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 12)
	_ = f.SetColWidth(sheet, "F", "M", 28)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
