package store

import (
	"context"
	"fmt"

	"examprep/internal/model"
)

const subjectColumns = `id, name, created_at, updated_at`

func (s *Store) CreateSubject(ctx context.Context, name string) (*model.Subject, error) {
	ts := now()
	id, err := s.insert(ctx, `INSERT INTO subjects (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id`, name, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return s.FindSubject(ctx, id)
}

func (s *Store) FindSubject(ctx context.Context, id int64) (*model.Subject, error) {
	var out model.Subject
	if err := s.get(ctx, &out, `SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindSubjectByName(ctx context.Context, name string) (*model.Subject, error) {
	var out model.Subject
	if err := s.get(ctx, &out, `SELECT `+subjectColumns+` FROM subjects WHERE LOWER(name) = LOWER(?)`, name); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	items := []model.Subject{}
	if err := s.selectAll(ctx, &items, `SELECT `+subjectColumns+` FROM subjects ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateSubject(ctx context.Context, id int64, name string) (*model.Subject, error) {
	if err := s.execOne(ctx, `UPDATE subjects SET name = ?, updated_at = ? WHERE id = ?`, name, now(), id); err != nil {
		return nil, err
	}
	return s.FindSubject(ctx, id)
}

func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM subjects WHERE id = ?`, id)
}

// CountSubjectDependents counts topics, questions, tests and exam links
// that point at the subject.
func (s *Store) CountSubjectDependents(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.get(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM topics WHERE subject_id = ?) +
			(SELECT COUNT(*) FROM questions WHERE subject_id = ?) +
			(SELECT COUNT(*) FROM tests WHERE subject_id = ?) +
			(SELECT COUNT(*) FROM exam_subjects WHERE subject_id = ?)`,
		id, id, id, id,
	)
	if err != nil {
		return 0, fmt.Errorf("count subject dependents: %w", err)
	}
	return n, nil
}
