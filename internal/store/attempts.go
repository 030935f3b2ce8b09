package store

import (
	"context"
	"fmt"

	"examprep/internal/model"
)

const attemptColumns = `id, test_id, user_id, started_at, submitted_at, score`

func (s *Store) CreateAttempt(ctx context.Context, a model.TestAttempt) (*model.TestAttempt, error) {
	id, err := s.insert(ctx, `
		INSERT INTO test_attempts (test_id, user_id, started_at, submitted_at, score)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		a.TestID, a.UserID, a.StartedAt, a.SubmittedAt, a.Score,
	)
	if err != nil {
		return nil, fmt.Errorf("insert test attempt: %w", err)
	}
	return s.FindAttempt(ctx, id)
}

func (s *Store) FindAttempt(ctx context.Context, id int64) (*model.TestAttempt, error) {
	var out model.TestAttempt
	if err := s.get(ctx, &out, `SELECT `+attemptColumns+` FROM test_attempts WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListAttempts(ctx context.Context, f model.TestAttemptFilter) ([]model.TestAttempt, error) {
	var w where
	if f.TestID != nil {
		w.add("test_id = ?", *f.TestID)
	}
	if f.UserID != nil {
		w.add("user_id = ?", *f.UserID)
	}
	items := []model.TestAttempt{}
	if err := s.selectAll(ctx, &items, `SELECT `+attemptColumns+` FROM test_attempts`+w.sql()+` ORDER BY id`, w.args...); err != nil {
		return nil, fmt.Errorf("list test attempts: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateAttempt(ctx context.Context, a model.TestAttempt) (*model.TestAttempt, error) {
	if err := s.execOne(ctx, `UPDATE test_attempts SET submitted_at = ?, score = ? WHERE id = ?`,
		a.SubmittedAt, a.Score, a.ID); err != nil {
		return nil, err
	}
	return s.FindAttempt(ctx, a.ID)
}

func (s *Store) DeleteAttempt(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM test_attempts WHERE id = ?`, id)
}

// SummarizeTest aggregates participation and scores for one test.
func (s *Store) SummarizeTest(ctx context.Context, testID int64) (*model.TestSummary, error) {
	var out model.TestSummary
	err := s.get(ctx, &out, `
		SELECT
			COUNT(DISTINCT user_id) AS participants,
			COUNT(*) AS attempts,
			COUNT(submitted_at) AS submitted,
			AVG(score) AS average_score,
			MAX(score) AS highest_score,
			MIN(score) AS lowest_score
		FROM test_attempts
		WHERE test_id = ?`,
		testID,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize test: %w", err)
	}
	out.TestID = testID
	return &out, nil
}

const answerColumns = `id, attempt_id, question_id, selected_option, is_correct, answered_at`

func (s *Store) CreateAnswer(ctx context.Context, a model.AttemptAnswer) (*model.AttemptAnswer, error) {
	id, err := s.insert(ctx, `
		INSERT INTO attempt_answers (attempt_id, question_id, selected_option, is_correct, answered_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		a.AttemptID, a.QuestionID, a.SelectedOption, a.IsCorrect, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert attempt answer: %w", err)
	}
	return s.FindAnswer(ctx, id)
}

func (s *Store) FindAnswer(ctx context.Context, id int64) (*model.AttemptAnswer, error) {
	var out model.AttemptAnswer
	if err := s.get(ctx, &out, `SELECT `+answerColumns+` FROM attempt_answers WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindAnswerByQuestion(ctx context.Context, attemptID, questionID int64) (*model.AttemptAnswer, error) {
	var out model.AttemptAnswer
	if err := s.get(ctx, &out, `SELECT `+answerColumns+` FROM attempt_answers WHERE attempt_id = ? AND question_id = ?`,
		attemptID, questionID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListAnswers(ctx context.Context, f model.AttemptAnswerFilter) ([]model.AttemptAnswer, error) {
	var w where
	if f.AttemptID != nil {
		w.add("attempt_id = ?", *f.AttemptID)
	}
	if f.QuestionID != nil {
		w.add("question_id = ?", *f.QuestionID)
	}
	items := []model.AttemptAnswer{}
	if err := s.selectAll(ctx, &items, `SELECT `+answerColumns+` FROM attempt_answers`+w.sql()+` ORDER BY id`, w.args...); err != nil {
		return nil, fmt.Errorf("list attempt answers: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateAnswer(ctx context.Context, a model.AttemptAnswer) (*model.AttemptAnswer, error) {
	if err := s.execOne(ctx, `UPDATE attempt_answers SET selected_option = ?, is_correct = ?, answered_at = ? WHERE id = ?`,
		a.SelectedOption, a.IsCorrect, now(), a.ID); err != nil {
		return nil, err
	}
	return s.FindAnswer(ctx, a.ID)
}

const questionLogColumns = `id, user_id, question_id, seen_at`

func (s *Store) CreateQuestionLog(ctx context.Context, l model.UserQuestionLog) (*model.UserQuestionLog, error) {
	id, err := s.insert(ctx, `INSERT INTO user_question_logs (user_id, question_id, seen_at) VALUES (?, ?, ?) RETURNING id`,
		l.UserID, l.QuestionID, l.SeenAt)
	if err != nil {
		return nil, fmt.Errorf("insert question log: %w", err)
	}
	var out model.UserQuestionLog
	if err := s.get(ctx, &out, `SELECT `+questionLogColumns+` FROM user_question_logs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListQuestionLogs(ctx context.Context, f model.UserQuestionLogFilter) ([]model.UserQuestionLog, error) {
	var w where
	if f.UserID != nil {
		w.add("user_id = ?", *f.UserID)
	}
	if f.QuestionID != nil {
		w.add("question_id = ?", *f.QuestionID)
	}
	items := []model.UserQuestionLog{}
	if err := s.selectAll(ctx, &items, `SELECT `+questionLogColumns+` FROM user_question_logs`+w.sql()+` ORDER BY seen_at DESC, id DESC`, w.args...); err != nil {
		return nil, fmt.Errorf("list question logs: %w", err)
	}
	return items, nil
}
