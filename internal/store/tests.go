package store

import (
	"context"
	"fmt"

	"examprep/internal/model"

	"github.com/jmoiron/sqlx"
)

const testColumns = `id, name, exam_id, subject_id, topic_id, duration_minutes, is_live, created_at, updated_at`

func (s *Store) CreateTest(ctx context.Context, t model.Test) (*model.Test, error) {
	ts := now()
	id, err := s.insert(ctx, `
		INSERT INTO tests (name, exam_id, subject_id, topic_id, duration_minutes, is_live, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		t.Name, t.ExamID, t.SubjectID, t.TopicID, t.DurationMinutes, t.IsLive, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert test: %w", err)
	}
	return s.FindTest(ctx, id)
}

func (s *Store) FindTest(ctx context.Context, id int64) (*model.Test, error) {
	var out model.Test
	if err := s.get(ctx, &out, `SELECT `+testColumns+` FROM tests WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListTests(ctx context.Context, f model.TestFilter) ([]model.Test, error) {
	var w where
	if f.TestID != nil {
		w.add("id = ?", *f.TestID)
	}
	if f.ExamID != nil {
		w.add("exam_id = ?", *f.ExamID)
	}
	if f.SubjectID != nil {
		w.add("subject_id = ?", *f.SubjectID)
	}
	if f.TopicID != nil {
		w.add("topic_id = ?", *f.TopicID)
	}
	if f.IsLive != nil {
		w.add("is_live = ?", *f.IsLive)
	}
	items := []model.Test{}
	if err := s.selectAll(ctx, &items, `SELECT `+testColumns+` FROM tests`+w.sql()+` ORDER BY id`, w.args...); err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateTest(ctx context.Context, t model.Test) (*model.Test, error) {
	err := s.execOne(ctx, `
		UPDATE tests
		SET name = ?, exam_id = ?, subject_id = ?, topic_id = ?, duration_minutes = ?, is_live = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.ExamID, t.SubjectID, t.TopicID, t.DurationMinutes, t.IsLive, now(), t.ID,
	)
	if err != nil {
		return nil, err
	}
	return s.FindTest(ctx, t.ID)
}

func (s *Store) DeleteTest(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM tests WHERE id = ?`, id)
}

const testQuestionColumns = `id, test_id, question_id, position, created_at`

func (s *Store) CreateTestQuestion(ctx context.Context, tq model.TestQuestion) (*model.TestQuestion, error) {
	id, err := s.insert(ctx, `INSERT INTO test_questions (test_id, question_id, position, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		tq.TestID, tq.QuestionID, tq.Position, now())
	if err != nil {
		return nil, fmt.Errorf("insert test question: %w", err)
	}
	return s.FindTestQuestion(ctx, id)
}

func (s *Store) FindTestQuestion(ctx context.Context, id int64) (*model.TestQuestion, error) {
	var out model.TestQuestion
	if err := s.get(ctx, &out, `SELECT `+testQuestionColumns+` FROM test_questions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindTestQuestionByPosition(ctx context.Context, testID int64, position int) (*model.TestQuestion, error) {
	var out model.TestQuestion
	if err := s.get(ctx, &out, `SELECT `+testQuestionColumns+` FROM test_questions WHERE test_id = ? AND position = ?`,
		testID, position); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindTestQuestionByQuestion(ctx context.Context, testID, questionID int64) (*model.TestQuestion, error) {
	var out model.TestQuestion
	if err := s.get(ctx, &out, `SELECT `+testQuestionColumns+` FROM test_questions WHERE test_id = ? AND question_id = ?`,
		testID, questionID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListTestQuestions(ctx context.Context, f model.TestQuestionFilter) ([]model.TestQuestion, error) {
	var w where
	if f.TestID != nil {
		w.add("test_id = ?", *f.TestID)
	}
	if f.QuestionID != nil {
		w.add("question_id = ?", *f.QuestionID)
	}
	items := []model.TestQuestion{}
	if err := s.selectAll(ctx, &items, `SELECT `+testQuestionColumns+` FROM test_questions`+w.sql()+` ORDER BY test_id, position`, w.args...); err != nil {
		return nil, fmt.Errorf("list test questions: %w", err)
	}
	return items, nil
}

// ListTestQuestionsByTests returns the ordered questions of several tests.
func (s *Store) ListTestQuestionsByTests(ctx context.Context, testIDs []int64) ([]model.TestQuestion, error) {
	items := []model.TestQuestion{}
	if len(testIDs) == 0 {
		return items, nil
	}
	query, args, err := sqlx.In(`SELECT `+testQuestionColumns+` FROM test_questions WHERE test_id IN (?) ORDER BY test_id, position`, testIDs)
	if err != nil {
		return nil, fmt.Errorf("build test question query: %w", err)
	}
	if err := s.selectAll(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list test questions: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateTestQuestion(ctx context.Context, tq model.TestQuestion) (*model.TestQuestion, error) {
	if err := s.execOne(ctx, `UPDATE test_questions SET question_id = ?, position = ? WHERE id = ?`,
		tq.QuestionID, tq.Position, tq.ID); err != nil {
		return nil, err
	}
	return s.FindTestQuestion(ctx, tq.ID)
}

func (s *Store) DeleteTestQuestion(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM test_questions WHERE id = ?`, id)
}
