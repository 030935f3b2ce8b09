package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"examprep/internal/model"
	"examprep/internal/question"
	"examprep/internal/store"
	"examprep/internal/validation"
)

func (s *Service) CreateAttempt(ctx context.Context, in model.TestAttemptInput) (*model.TestAttempt, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.requireTest(ctx, in.TestID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	a, err := s.store.CreateAttempt(ctx, model.TestAttempt{
		TestID:      in.TestID,
		UserID:      in.UserID,
		StartedAt:   in.StartedAt.UTC(),
		SubmittedAt: in.SubmittedAt,
		Score:       in.Score,
	})
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return a, nil
}

func (s *Service) GetAttempt(ctx context.Context, id int64) (*model.TestAttempt, error) {
	return s.findAttempt(ctx, id)
}

func (s *Service) ListAttempts(ctx context.Context, f model.TestAttemptFilter) ([]model.TestAttempt, error) {
	return s.store.ListAttempts(ctx, f)
}

// UpdateAttempt records a submission time and score set by staff. A missing
// submittedAt defaults to now.
func (s *Service) UpdateAttempt(ctx context.Context, id int64, in model.UpdateTestAttemptInput) (*model.TestAttempt, error) {
	existing, err := s.findAttempt(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	submitted := in.SubmittedAt.UTC()
	existing.SubmittedAt = &submitted
	if in.Score != nil {
		existing.Score = in.Score
	}
	a, err := s.store.UpdateAttempt(ctx, *existing)
	if err != nil {
		return nil, notFound(err, ErrAttemptNotFound, "update attempt")
	}
	return a, nil
}

func (s *Service) DeleteAttempt(ctx context.Context, id int64) error {
	if _, err := s.findAttempt(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteAttempt(ctx, id); err != nil {
		return notFound(err, ErrAttemptNotFound, "delete attempt")
	}
	return nil
}

// SubmitAttempt closes an open attempt and scores it against the test's
// current composition.
func (s *Service) SubmitAttempt(ctx context.Context, id int64) (*model.TestAttempt, AttemptScore, error) {
	existing, err := s.findAttempt(ctx, id)
	if err != nil {
		return nil, AttemptScore{}, err
	}
	if existing.SubmittedAt != nil {
		return nil, AttemptScore{}, ErrAttemptSubmitted
	}

	slots, err := s.store.ListTestQuestions(ctx, model.TestQuestionFilter{TestID: &existing.TestID})
	if err != nil {
		return nil, AttemptScore{}, err
	}
	answers, err := s.store.ListAnswers(ctx, model.AttemptAnswerFilter{AttemptID: &existing.ID})
	if err != nil {
		return nil, AttemptScore{}, err
	}
	score := ScoreAttempt(slots, answers)

	now := time.Now().UTC()
	existing.SubmittedAt = &now
	existing.Score = &score.Score
	a, err := s.store.UpdateAttempt(ctx, *existing)
	if err != nil {
		return nil, AttemptScore{}, notFound(err, ErrAttemptNotFound, "submit attempt")
	}
	return a, score, nil
}

// AttemptOwner returns the id of the user an attempt belongs to.
func (s *Service) AttemptOwner(ctx context.Context, id int64) (int64, error) {
	a, err := s.findAttempt(ctx, id)
	if err != nil {
		return 0, err
	}
	return a.UserID, nil
}

// AnswerOwner returns the id of the user whose attempt holds the answer.
func (s *Service) AnswerOwner(ctx context.Context, id int64) (int64, error) {
	ans, err := s.findAnswer(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.AttemptOwner(ctx, ans.AttemptID)
}

// CreateAnswer records the selected option for one question of an open
// attempt. When isCorrect is omitted it is graded against the answer key.
func (s *Service) CreateAnswer(ctx context.Context, in model.AttemptAnswerInput) (*model.AttemptAnswer, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	attempt, err := s.store.FindAttempt(ctx, in.AttemptID)
	if err != nil {
		return nil, refError(err, "attemptId", "Attempt not found", ErrAttemptNotFound)
	}
	if attempt.SubmittedAt != nil {
		return nil, ErrAttemptSubmitted
	}
	if err := s.requireInTest(ctx, attempt.TestID, in.QuestionID); err != nil {
		return nil, err
	}
	switch _, err := s.store.FindAnswerByQuestion(ctx, in.AttemptID, in.QuestionID); {
	case err == nil:
		return nil, ErrDuplicateAnswer
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find answer: %w", err)
	}

	isCorrect := in.IsCorrect
	if isCorrect == nil {
		if isCorrect, err = s.grade(ctx, in.QuestionID, in.SelectedOption); err != nil {
			return nil, err
		}
	}

	ans, err := s.store.CreateAnswer(ctx, model.AttemptAnswer{
		AttemptID:      in.AttemptID,
		QuestionID:     in.QuestionID,
		SelectedOption: in.SelectedOption,
		IsCorrect:      isCorrect,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateAnswer
		}
		return nil, fmt.Errorf("create answer: %w", err)
	}
	return ans, nil
}

func (s *Service) GetAnswer(ctx context.Context, id int64) (*model.AttemptAnswer, error) {
	return s.findAnswer(ctx, id)
}

func (s *Service) ListAnswers(ctx context.Context, f model.AttemptAnswerFilter) ([]model.AttemptAnswer, error) {
	return s.store.ListAnswers(ctx, f)
}

func (s *Service) UpdateAnswer(ctx context.Context, id int64, in model.UpdateAttemptAnswerInput) (*model.AttemptAnswer, error) {
	existing, err := s.findAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	attempt, err := s.findAttempt(ctx, existing.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt.SubmittedAt != nil {
		return nil, ErrAttemptSubmitted
	}

	isCorrect := in.IsCorrect
	if isCorrect == nil {
		if isCorrect, err = s.grade(ctx, existing.QuestionID, in.SelectedOption); err != nil {
			return nil, err
		}
	}
	existing.SelectedOption = in.SelectedOption
	existing.IsCorrect = isCorrect
	ans, err := s.store.UpdateAnswer(ctx, *existing)
	if err != nil {
		return nil, notFound(err, ErrAnswerNotFound, "update answer")
	}
	return ans, nil
}

// grade scores a selection against the question's answer key. A question
// without an answer key leaves the answer ungraded.
func (s *Service) grade(ctx context.Context, questionID int64, selected *string) (*bool, error) {
	key, err := s.store.FindCorrectOption(ctx, questionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find answer key: %w", err)
	}
	return ScoreAnswer(key, selected).IsCorrect, nil
}

func (s *Service) requireInTest(ctx context.Context, testID, questionID int64) error {
	_, err := s.store.FindTestQuestionByQuestion(ctx, testID, questionID)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return &question.RefError{
			Field:   "questionId",
			Message: fmt.Sprintf("Question with ID %d is not part of this test", questionID),
			Err:     ErrQuestionNotInTest,
		}
	}
	return fmt.Errorf("find test question: %w", err)
}

// CreateQuestionLog records that a user has seen a question.
func (s *Service) CreateQuestionLog(ctx context.Context, in model.UserQuestionLogInput) (*model.UserQuestionLog, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	if err := s.requireQuestion(ctx, in.QuestionID); err != nil {
		return nil, err
	}
	l, err := s.store.CreateQuestionLog(ctx, model.UserQuestionLog{
		UserID:     in.UserID,
		QuestionID: in.QuestionID,
		SeenAt:     in.SeenAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create question log: %w", err)
	}
	return l, nil
}

func (s *Service) ListQuestionLogs(ctx context.Context, f model.UserQuestionLogFilter) ([]model.UserQuestionLog, error) {
	return s.store.ListQuestionLogs(ctx, f)
}

func (s *Service) findAttempt(ctx context.Context, id int64) (*model.TestAttempt, error) {
	a, err := s.store.FindAttempt(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAttemptNotFound, "find attempt")
	}
	return a, nil
}

func (s *Service) findAnswer(ctx context.Context, id int64) (*model.AttemptAnswer, error) {
	a, err := s.store.FindAnswer(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAnswerNotFound, "find answer")
	}
	return a, nil
}
