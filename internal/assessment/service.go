package assessment

import (
	"context"
	"errors"
	"fmt"

	"examprep/internal/model"
	"examprep/internal/question"
	"examprep/internal/store"
	"examprep/internal/validation"
)

var (
	ErrTestNotFound         = errors.New("test not found")
	ErrTestQuestionNotFound = errors.New("test question not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAnswerNotFound       = errors.New("answer not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrQuestionNotInTest    = errors.New("question is not part of the test")
	ErrDuplicatePosition    = errors.New("position already used in test")
	ErrDuplicateQuestion    = errors.New("question already in test")
	ErrDuplicateAnswer      = errors.New("question already answered in attempt")
	ErrAttemptSubmitted     = errors.New("attempt already submitted")
)

type Store interface {
	question.RefStore

	FindUser(ctx context.Context, id int64) (*model.User, error)
	FindQuestion(ctx context.Context, id int64) (*model.Question, error)
	FindCorrectOption(ctx context.Context, questionID int64) (string, error)
	ListTranslationsByQuestions(ctx context.Context, questionIDs []int64, language string) ([]model.QuestionTranslation, error)

	CreateTest(ctx context.Context, t model.Test) (*model.Test, error)
	FindTest(ctx context.Context, id int64) (*model.Test, error)
	ListTests(ctx context.Context, f model.TestFilter) ([]model.Test, error)
	UpdateTest(ctx context.Context, t model.Test) (*model.Test, error)
	DeleteTest(ctx context.Context, id int64) error

	CreateTestQuestion(ctx context.Context, tq model.TestQuestion) (*model.TestQuestion, error)
	FindTestQuestion(ctx context.Context, id int64) (*model.TestQuestion, error)
	FindTestQuestionByPosition(ctx context.Context, testID int64, position int) (*model.TestQuestion, error)
	FindTestQuestionByQuestion(ctx context.Context, testID, questionID int64) (*model.TestQuestion, error)
	ListTestQuestions(ctx context.Context, f model.TestQuestionFilter) ([]model.TestQuestion, error)
	ListTestQuestionsByTests(ctx context.Context, testIDs []int64) ([]model.TestQuestion, error)
	UpdateTestQuestion(ctx context.Context, tq model.TestQuestion) (*model.TestQuestion, error)
	DeleteTestQuestion(ctx context.Context, id int64) error

	CreateAttempt(ctx context.Context, a model.TestAttempt) (*model.TestAttempt, error)
	FindAttempt(ctx context.Context, id int64) (*model.TestAttempt, error)
	ListAttempts(ctx context.Context, f model.TestAttemptFilter) ([]model.TestAttempt, error)
	UpdateAttempt(ctx context.Context, a model.TestAttempt) (*model.TestAttempt, error)
	DeleteAttempt(ctx context.Context, id int64) error

	CreateAnswer(ctx context.Context, a model.AttemptAnswer) (*model.AttemptAnswer, error)
	FindAnswer(ctx context.Context, id int64) (*model.AttemptAnswer, error)
	FindAnswerByQuestion(ctx context.Context, attemptID, questionID int64) (*model.AttemptAnswer, error)
	ListAnswers(ctx context.Context, f model.AttemptAnswerFilter) ([]model.AttemptAnswer, error)
	UpdateAnswer(ctx context.Context, a model.AttemptAnswer) (*model.AttemptAnswer, error)

	CreateQuestionLog(ctx context.Context, l model.UserQuestionLog) (*model.UserQuestionLog, error)
	ListQuestionLogs(ctx context.Context, f model.UserQuestionLogFilter) ([]model.UserQuestionLog, error)
}

type Service struct {
	store   Store
	checker *question.Checker
}

func NewService(s Store) *Service {
	return &Service{store: s, checker: question.NewChecker(s)}
}

// TestDetail is a test as returned by reads. Questions and QuestionCount are
// only filled when the caller asks for the composition.
type TestDetail struct {
	model.Test
	QuestionCount *int                 `json:"questionCount,omitempty"`
	Questions     []TestQuestionDetail `json:"questions,omitempty"`
}

// TestQuestionDetail is one slot of a test with the question's
// default-language translation, when it has one.
type TestQuestionDetail struct {
	ID          int64                      `json:"id"`
	QuestionID  int64                      `json:"questionId"`
	Position    int                        `json:"position"`
	Translation *model.QuestionTranslation `json:"translation"`
}

func (s *Service) CreateTest(ctx context.Context, in model.TestInput) (*model.Test, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checker.CheckOptionalRefs(ctx, in.ExamID, in.SubjectID, in.TopicID); err != nil {
		return nil, err
	}
	t, err := s.store.CreateTest(ctx, model.Test{
		Name:            in.Name,
		ExamID:          in.ExamID,
		SubjectID:       in.SubjectID,
		TopicID:         in.TopicID,
		DurationMinutes: in.DurationMinutes,
		IsLive:          *in.IsLive,
	})
	if err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	return t, nil
}

func (s *Service) GetTest(ctx context.Context, id int64, withQuestions bool) (*TestDetail, error) {
	t, err := s.findTest(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.describeTests(ctx, []model.Test{*t}, withQuestions)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *Service) ListTests(ctx context.Context, f model.TestFilter, withQuestions bool) ([]TestDetail, error) {
	items, err := s.store.ListTests(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.describeTests(ctx, items, withQuestions)
}

func (s *Service) UpdateTest(ctx context.Context, id int64, in model.TestInput) (*model.Test, error) {
	existing, err := s.findTest(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IsLive == nil {
		in.IsLive = &existing.IsLive
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checker.CheckOptionalRefs(ctx, in.ExamID, in.SubjectID, in.TopicID); err != nil {
		return nil, err
	}

	existing.Name = in.Name
	existing.ExamID = in.ExamID
	existing.SubjectID = in.SubjectID
	existing.TopicID = in.TopicID
	existing.DurationMinutes = in.DurationMinutes
	existing.IsLive = *in.IsLive
	t, err := s.store.UpdateTest(ctx, *existing)
	if err != nil {
		return nil, notFound(err, ErrTestNotFound, "update test")
	}
	return t, nil
}

// DeleteTest removes the test with its composition and attempts.
func (s *Service) DeleteTest(ctx context.Context, id int64) error {
	if _, err := s.findTest(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteTest(ctx, id); err != nil {
		return notFound(err, ErrTestNotFound, "delete test")
	}
	return nil
}

func (s *Service) describeTests(ctx context.Context, items []model.Test, withQuestions bool) ([]TestDetail, error) {
	out := make([]TestDetail, 0, len(items))
	if !withQuestions || len(items) == 0 {
		for _, t := range items {
			out = append(out, TestDetail{Test: t})
		}
		return out, nil
	}

	testIDs := make([]int64, 0, len(items))
	for _, t := range items {
		testIDs = append(testIDs, t.ID)
	}
	slots, err := s.store.ListTestQuestionsByTests(ctx, testIDs)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]int64, 0, len(slots))
	seen := map[int64]bool{}
	for _, tq := range slots {
		if !seen[tq.QuestionID] {
			seen[tq.QuestionID] = true
			questionIDs = append(questionIDs, tq.QuestionID)
		}
	}
	byQuestion := map[int64]model.QuestionTranslation{}
	if len(questionIDs) > 0 {
		translations, err := s.store.ListTranslationsByQuestions(ctx, questionIDs, model.DefaultLanguage)
		if err != nil {
			return nil, err
		}
		for _, tr := range translations {
			byQuestion[tr.QuestionID] = tr
		}
	}

	byTest := map[int64][]TestQuestionDetail{}
	for _, tq := range slots {
		d := TestQuestionDetail{ID: tq.ID, QuestionID: tq.QuestionID, Position: tq.Position}
		if tr, ok := byQuestion[tq.QuestionID]; ok {
			tr := tr
			d.Translation = &tr
		}
		byTest[tq.TestID] = append(byTest[tq.TestID], d)
	}

	for _, t := range items {
		qs := byTest[t.ID]
		if qs == nil {
			qs = []TestQuestionDetail{}
		}
		count := len(qs)
		out = append(out, TestDetail{Test: t, QuestionCount: &count, Questions: qs})
	}
	return out, nil
}

// CreateTestQuestion places a question at a position of a test. Positions
// and questions are unique per test.
func (s *Service) CreateTestQuestion(ctx context.Context, in model.TestQuestionInput) (*model.TestQuestion, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.requireTest(ctx, in.TestID); err != nil {
		return nil, err
	}
	if err := s.requireQuestion(ctx, in.QuestionID); err != nil {
		return nil, err
	}
	if err := s.checkSlotFree(ctx, in.TestID, in.QuestionID, in.Position, 0); err != nil {
		return nil, err
	}

	tq, err := s.store.CreateTestQuestion(ctx, model.TestQuestion{
		TestID:     in.TestID,
		QuestionID: in.QuestionID,
		Position:   in.Position,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicatePosition
		}
		return nil, fmt.Errorf("create test question: %w", err)
	}
	return tq, nil
}

func (s *Service) ListTestQuestions(ctx context.Context, f model.TestQuestionFilter) ([]model.TestQuestion, error) {
	return s.store.ListTestQuestions(ctx, f)
}

func (s *Service) UpdateTestQuestion(ctx context.Context, id int64, in model.TestQuestionInput) (*model.TestQuestion, error) {
	existing, err := s.store.FindTestQuestion(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTestQuestionNotFound, "find test question")
	}
	// A slot never moves between tests.
	in.TestID = existing.TestID
	if in.QuestionID == 0 {
		in.QuestionID = existing.QuestionID
	}
	if in.Position == 0 {
		in.Position = existing.Position
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if in.QuestionID != existing.QuestionID {
		if err := s.requireQuestion(ctx, in.QuestionID); err != nil {
			return nil, err
		}
	}
	if err := s.checkSlotFree(ctx, in.TestID, in.QuestionID, in.Position, existing.ID); err != nil {
		return nil, err
	}

	existing.QuestionID = in.QuestionID
	existing.Position = in.Position
	tq, err := s.store.UpdateTestQuestion(ctx, *existing)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicatePosition
		}
		return nil, notFound(err, ErrTestQuestionNotFound, "update test question")
	}
	return tq, nil
}

func (s *Service) DeleteTestQuestion(ctx context.Context, id int64) error {
	if _, err := s.store.FindTestQuestion(ctx, id); err != nil {
		return notFound(err, ErrTestQuestionNotFound, "find test question")
	}
	if err := s.store.DeleteTestQuestion(ctx, id); err != nil {
		return notFound(err, ErrTestQuestionNotFound, "delete test question")
	}
	return nil
}

func (s *Service) checkSlotFree(ctx context.Context, testID, questionID int64, position int, selfID int64) error {
	byPos, err := s.store.FindTestQuestionByPosition(ctx, testID, position)
	switch {
	case err == nil && byPos.ID != selfID:
		return ErrDuplicatePosition
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("find test question by position: %w", err)
	}
	byQuestion, err := s.store.FindTestQuestionByQuestion(ctx, testID, questionID)
	switch {
	case err == nil && byQuestion.ID != selfID:
		return ErrDuplicateQuestion
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("find test question by question: %w", err)
	}
	return nil
}

func (s *Service) findTest(ctx context.Context, id int64) (*model.Test, error) {
	t, err := s.store.FindTest(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTestNotFound, "find test")
	}
	return t, nil
}

// requireTest, requireQuestion and requireUser check a referenced row and
// report its absence as a reference error.
func (s *Service) requireTest(ctx context.Context, id int64) error {
	if _, err := s.store.FindTest(ctx, id); err != nil {
		return refError(err, "testId", "Test not found", ErrTestNotFound)
	}
	return nil
}

func (s *Service) requireQuestion(ctx context.Context, id int64) error {
	if _, err := s.store.FindQuestion(ctx, id); err != nil {
		return refError(err, "questionId", "Question not found", ErrQuestionNotFound)
	}
	return nil
}

func (s *Service) requireUser(ctx context.Context, id int64) error {
	if _, err := s.store.FindUser(ctx, id); err != nil {
		return refError(err, "userId", "User not found", ErrUserNotFound)
	}
	return nil
}

func refError(err error, field, message string, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &question.RefError{Field: field, Message: message, Err: sentinel}
	}
	return fmt.Errorf("find %s: %w", field, err)
}

func notFound(err, sentinel error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}
