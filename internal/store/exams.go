package store

import (
	"context"
	"fmt"

	"examprep/internal/model"
)

const examColumns = `id, name, board, level, is_active, created_at, updated_at`

func (s *Store) CreateExam(ctx context.Context, e model.Exam) (*model.Exam, error) {
	ts := now()
	id, err := s.insert(ctx, `
		INSERT INTO exams (name, board, level, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		e.Name, e.Board, e.Level, e.IsActive, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exam: %w", err)
	}
	return s.FindExam(ctx, id)
}

func (s *Store) FindExam(ctx context.Context, id int64) (*model.Exam, error) {
	var out model.Exam
	if err := s.get(ctx, &out, `SELECT `+examColumns+` FROM exams WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListExams(ctx context.Context, f model.ExamFilter) ([]model.Exam, error) {
	var w where
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}
	if f.Board != nil {
		w.add("board = ?", *f.Board)
	}
	if f.Level != nil {
		w.add("level = ?", *f.Level)
	}
	items := []model.Exam{}
	if err := s.selectAll(ctx, &items, `SELECT `+examColumns+` FROM exams`+w.sql()+` ORDER BY id`, w.args...); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateExam(ctx context.Context, e model.Exam) (*model.Exam, error) {
	err := s.execOne(ctx, `UPDATE exams SET name = ?, board = ?, level = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		e.Name, e.Board, e.Level, e.IsActive, now(), e.ID)
	if err != nil {
		return nil, err
	}
	return s.FindExam(ctx, e.ID)
}

func (s *Store) DeleteExam(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM exams WHERE id = ?`, id)
}

func (s *Store) CountExamDependents(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.get(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM questions WHERE exam_id = ?) +
			(SELECT COUNT(*) FROM tests WHERE exam_id = ?) +
			(SELECT COUNT(*) FROM exam_subjects WHERE exam_id = ?)`,
		id, id, id,
	)
	if err != nil {
		return 0, fmt.Errorf("count exam dependents: %w", err)
	}
	return n, nil
}

const examSubjectColumns = `id, exam_id, subject_id, created_at, updated_at`

func (s *Store) CreateExamSubject(ctx context.Context, examID, subjectID int64) (*model.ExamSubject, error) {
	ts := now()
	id, err := s.insert(ctx, `INSERT INTO exam_subjects (exam_id, subject_id, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`,
		examID, subjectID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert exam subject: %w", err)
	}
	return s.FindExamSubject(ctx, id)
}

func (s *Store) FindExamSubject(ctx context.Context, id int64) (*model.ExamSubject, error) {
	var out model.ExamSubject
	if err := s.get(ctx, &out, `SELECT `+examSubjectColumns+` FROM exam_subjects WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindExamSubjectPair(ctx context.Context, examID, subjectID int64) (*model.ExamSubject, error) {
	var out model.ExamSubject
	if err := s.get(ctx, &out, `SELECT `+examSubjectColumns+` FROM exam_subjects WHERE exam_id = ? AND subject_id = ?`,
		examID, subjectID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListExamSubjects(ctx context.Context, f model.ExamSubjectFilter) ([]model.ExamSubject, error) {
	var w where
	if f.ExamID != nil {
		w.add("exam_id = ?", *f.ExamID)
	}
	if f.SubjectID != nil {
		w.add("subject_id = ?", *f.SubjectID)
	}
	items := []model.ExamSubject{}
	if err := s.selectAll(ctx, &items, `SELECT `+examSubjectColumns+` FROM exam_subjects`+w.sql()+` ORDER BY exam_id, subject_id`, w.args...); err != nil {
		return nil, fmt.Errorf("list exam subjects: %w", err)
	}
	return items, nil
}

func (s *Store) DeleteExamSubject(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM exam_subjects WHERE id = ?`, id)
}
