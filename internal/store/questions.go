package store

import (
	"context"
	"fmt"

	"examprep/internal/model"

	"github.com/jmoiron/sqlx"
)

const questionColumns = `id, exam_id, subject_id, topic_id, difficulty, created_at, updated_at`

func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	ts := now()
	id, err := s.insert(ctx, `
		INSERT INTO questions (exam_id, subject_id, topic_id, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		q.ExamID, q.SubjectID, q.TopicID, q.Difficulty, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	return s.FindQuestion(ctx, id)
}

func (s *Store) FindQuestion(ctx context.Context, id int64) (*model.Question, error) {
	var out model.Question
	if err := s.get(ctx, &out, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListQuestions(ctx context.Context, f model.QuestionFilter) ([]model.Question, error) {
	var w where
	if f.ExamID != nil {
		w.add("exam_id = ?", *f.ExamID)
	}
	if f.SubjectID != nil {
		w.add("subject_id = ?", *f.SubjectID)
	}
	if f.TopicID != nil {
		w.add("topic_id = ?", *f.TopicID)
	}
	if f.Difficulty != nil {
		w.add("difficulty = ?", *f.Difficulty)
	}
	items := []model.Question{}
	if err := s.selectAll(ctx, &items, `SELECT `+questionColumns+` FROM questions`+w.sql()+` ORDER BY id`, w.args...); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	err := s.execOne(ctx, `UPDATE questions SET exam_id = ?, subject_id = ?, topic_id = ?, difficulty = ?, updated_at = ? WHERE id = ?`,
		q.ExamID, q.SubjectID, q.TopicID, q.Difficulty, now(), q.ID)
	if err != nil {
		return nil, err
	}
	return s.FindQuestion(ctx, q.ID)
}

// DeleteQuestion removes the question; translations, pool entries and test
// links go with it through ON DELETE CASCADE.
func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM questions WHERE id = ?`, id)
}

const translationColumns = `id, question_id, language, question_text, option_a, option_b, option_c, option_d, correct_option, explanation, created_at, updated_at`

func (s *Store) CreateTranslation(ctx context.Context, t model.QuestionTranslation) (*model.QuestionTranslation, error) {
	ts := now()
	id, err := s.insert(ctx, `
		INSERT INTO question_translations
			(question_id, language, question_text, option_a, option_b, option_c, option_d, correct_option, explanation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		t.QuestionID, t.Language, t.QuestionText, t.OptionA, t.OptionB, t.OptionC, t.OptionD, t.CorrectOption, t.Explanation, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert question translation: %w", err)
	}
	return s.FindTranslation(ctx, id)
}

func (s *Store) FindTranslation(ctx context.Context, id int64) (*model.QuestionTranslation, error) {
	var out model.QuestionTranslation
	if err := s.get(ctx, &out, `SELECT `+translationColumns+` FROM question_translations WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindTranslationByLanguage(ctx context.Context, questionID int64, language string) (*model.QuestionTranslation, error) {
	var out model.QuestionTranslation
	err := s.get(ctx, &out, `SELECT `+translationColumns+` FROM question_translations WHERE question_id = ? AND language = ?`,
		questionID, language)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListTranslations(ctx context.Context, f model.TranslationFilter) ([]model.QuestionTranslation, error) {
	var w where
	if f.QuestionID != nil {
		w.add("question_id = ?", *f.QuestionID)
	}
	if f.Language != nil {
		w.add("language = ?", *f.Language)
	}
	items := []model.QuestionTranslation{}
	if err := s.selectAll(ctx, &items, `SELECT `+translationColumns+` FROM question_translations`+w.sql()+` ORDER BY question_id, id`, w.args...); err != nil {
		return nil, fmt.Errorf("list question translations: %w", err)
	}
	return items, nil
}

// ListTranslationsByQuestions loads the translations of many questions at
// once, optionally restricted to one language.
func (s *Store) ListTranslationsByQuestions(ctx context.Context, questionIDs []int64, language string) ([]model.QuestionTranslation, error) {
	items := []model.QuestionTranslation{}
	if len(questionIDs) == 0 {
		return items, nil
	}
	query := `SELECT ` + translationColumns + ` FROM question_translations WHERE question_id IN (?)`
	args := []any{questionIDs}
	if language != "" {
		query += ` AND language = ?`
		args = append(args, language)
	}
	query, args, err := sqlx.In(query+` ORDER BY question_id, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("build translation query: %w", err)
	}
	if err := s.selectAll(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list question translations: %w", err)
	}
	return items, nil
}

// FindCorrectOption returns the answer key of a question, taken from its
// default-language translation when present.
func (s *Store) FindCorrectOption(ctx context.Context, questionID int64) (string, error) {
	var opt string
	err := s.get(ctx, &opt, `
		SELECT correct_option FROM question_translations
		WHERE question_id = ?
		ORDER BY CASE WHEN language = ? THEN 0 ELSE 1 END, id
		LIMIT 1`,
		questionID, model.DefaultLanguage,
	)
	if err != nil {
		return "", err
	}
	return opt, nil
}

func (s *Store) UpdateTranslation(ctx context.Context, t model.QuestionTranslation) (*model.QuestionTranslation, error) {
	err := s.execOne(ctx, `
		UPDATE question_translations
		SET question_id = ?, language = ?, question_text = ?, option_a = ?, option_b = ?, option_c = ?, option_d = ?,
		    correct_option = ?, explanation = ?, updated_at = ?
		WHERE id = ?`,
		t.QuestionID, t.Language, t.QuestionText, t.OptionA, t.OptionB, t.OptionC, t.OptionD, t.CorrectOption, t.Explanation, now(), t.ID,
	)
	if err != nil {
		return nil, err
	}
	return s.FindTranslation(ctx, t.ID)
}

func (s *Store) DeleteTranslation(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM question_translations WHERE id = ?`, id)
}

const poolColumns = `id, question_id, exam_id, subject_id, topic_id, difficulty, created_at`

func (s *Store) CreatePoolEntry(ctx context.Context, p model.QuestionPoolEntry) (*model.QuestionPoolEntry, error) {
	id, err := s.insert(ctx, `
		INSERT INTO question_pool (question_id, exam_id, subject_id, topic_id, difficulty, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		p.QuestionID, p.ExamID, p.SubjectID, p.TopicID, p.Difficulty, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert question pool entry: %w", err)
	}
	return s.FindPoolEntry(ctx, id)
}

func (s *Store) FindPoolEntry(ctx context.Context, id int64) (*model.QuestionPoolEntry, error) {
	var out model.QuestionPoolEntry
	if err := s.get(ctx, &out, `SELECT `+poolColumns+` FROM question_pool WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListPoolEntries(ctx context.Context, f model.QuestionPoolFilter) ([]model.QuestionPoolEntry, error) {
	var w where
	if f.QuestionID != nil {
		w.add("question_id = ?", *f.QuestionID)
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
	if f.Difficulty != nil {
		w.add("difficulty = ?", *f.Difficulty)
	}
	items := []model.QuestionPoolEntry{}
	if err := s.selectAll(ctx, &items, `SELECT `+poolColumns+` FROM question_pool`+w.sql()+` ORDER BY id`, w.args...); err != nil {
		return nil, fmt.Errorf("list question pool: %w", err)
	}
	return items, nil
}

func (s *Store) DeletePoolEntry(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM question_pool WHERE id = ?`, id)
}
