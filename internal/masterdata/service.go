package masterdata

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
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrTopicNotFound       = errors.New("topic not found")
	ErrExamNotFound        = errors.New("exam not found")
	ErrExamSubjectNotFound = errors.New("exam subject link not found")
	ErrDuplicateName       = errors.New("subject name already exists")
	ErrDuplicateLink       = errors.New("exam subject link already exists")
)

// DependentsError refuses a delete while other rows still reference the
// target. Message is safe to return to clients.
type DependentsError struct {
	Message string
}

func (e *DependentsError) Error() string {
	return e.Message
}

var ErrHasDependents = errors.New("record has dependents")

func (e *DependentsError) Is(target error) bool {
	return target == ErrHasDependents
}

type Store interface {
	question.RefStore

	CreateSubject(ctx context.Context, name string) (*model.Subject, error)
	FindSubjectByName(ctx context.Context, name string) (*model.Subject, error)
	ListSubjects(ctx context.Context) ([]model.Subject, error)
	UpdateSubject(ctx context.Context, id int64, name string) (*model.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error
	CountSubjectDependents(ctx context.Context, id int64) (int, error)

	CreateTopic(ctx context.Context, subjectID int64, name string) (*model.Topic, error)
	ListTopics(ctx context.Context, f model.TopicFilter) ([]model.Topic, error)
	UpdateTopic(ctx context.Context, t model.Topic) (*model.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error
	CountTopicDependents(ctx context.Context, id int64) (int, error)

	CreateExam(ctx context.Context, e model.Exam) (*model.Exam, error)
	ListExams(ctx context.Context, f model.ExamFilter) ([]model.Exam, error)
	UpdateExam(ctx context.Context, e model.Exam) (*model.Exam, error)
	DeleteExam(ctx context.Context, id int64) error
	CountExamDependents(ctx context.Context, id int64) (int, error)

	CreateExamSubject(ctx context.Context, examID, subjectID int64) (*model.ExamSubject, error)
	FindExamSubject(ctx context.Context, id int64) (*model.ExamSubject, error)
	FindExamSubjectPair(ctx context.Context, examID, subjectID int64) (*model.ExamSubject, error)
	ListExamSubjects(ctx context.Context, f model.ExamSubjectFilter) ([]model.ExamSubject, error)
	DeleteExamSubject(ctx context.Context, id int64) error
}

type Service struct {
	store   Store
	checker *question.Checker
}

func NewService(s Store) *Service {
	return &Service{store: s, checker: question.NewChecker(s)}
}

func (s *Service) CreateSubject(ctx context.Context, in model.SubjectInput) (*model.Subject, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, in.Name, 0); err != nil {
		return nil, err
	}
	subject, err := s.store.CreateSubject(ctx, in.Name)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return subject, nil
}

func (s *Service) GetSubject(ctx context.Context, id int64) (*model.Subject, error) {
	subject, err := s.store.FindSubject(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrSubjectNotFound, "find subject")
	}
	return subject, nil
}

func (s *Service) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.store.ListSubjects(ctx)
}

func (s *Service) UpdateSubject(ctx context.Context, id int64, in model.SubjectInput) (*model.Subject, error) {
	if _, err := s.GetSubject(ctx, id); err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, in.Name, id); err != nil {
		return nil, err
	}
	subject, err := s.store.UpdateSubject(ctx, id, in.Name)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateName
		}
		return nil, notFound(err, ErrSubjectNotFound, "update subject")
	}
	return subject, nil
}

// DeleteSubject refuses while topics, questions, tests or exam links still
// point at the subject. Nothing cascades.
func (s *Service) DeleteSubject(ctx context.Context, id int64) error {
	if _, err := s.GetSubject(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountSubjectDependents(ctx, id)
	if err != nil {
		return err
	}
	dependents := &DependentsError{Message: "Cannot delete subject with associated topics, questions, tests, or exams"}
	if n > 0 {
		return dependents
	}
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return dependents
		}
		return notFound(err, ErrSubjectNotFound, "delete subject")
	}
	return nil
}

func (s *Service) checkNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.store.FindSubjectByName(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find subject by name: %w", err)
	case existing.ID == selfID:
		return nil
	default:
		return ErrDuplicateName
	}
}

func (s *Service) CreateTopic(ctx context.Context, in model.TopicInput) (*model.Topic, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checker.CheckOptionalRefs(ctx, nil, &in.SubjectID, nil); err != nil {
		return nil, err
	}
	topic, err := s.store.CreateTopic(ctx, in.SubjectID, in.Name)
	if err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return topic, nil
}

func (s *Service) GetTopic(ctx context.Context, id int64) (*model.Topic, error) {
	topic, err := s.store.FindTopic(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTopicNotFound, "find topic")
	}
	return topic, nil
}

func (s *Service) ListTopics(ctx context.Context, f model.TopicFilter) ([]model.Topic, error) {
	return s.store.ListTopics(ctx, f)
}

func (s *Service) UpdateTopic(ctx context.Context, id int64, in model.TopicInput) (*model.Topic, error) {
	existing, err := s.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.SubjectID == 0 {
		in.SubjectID = existing.SubjectID
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if in.SubjectID != existing.SubjectID {
		if err := s.checker.CheckOptionalRefs(ctx, nil, &in.SubjectID, nil); err != nil {
			return nil, err
		}
	}
	existing.SubjectID = in.SubjectID
	existing.Name = in.Name
	topic, err := s.store.UpdateTopic(ctx, *existing)
	if err != nil {
		return nil, notFound(err, ErrTopicNotFound, "update topic")
	}
	return topic, nil
}

func (s *Service) DeleteTopic(ctx context.Context, id int64) error {
	if _, err := s.GetTopic(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountTopicDependents(ctx, id)
	if err != nil {
		return err
	}
	dependents := &DependentsError{Message: "Cannot delete topic with associated questions or tests"}
	if n > 0 {
		return dependents
	}
	if err := s.store.DeleteTopic(ctx, id); err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return dependents
		}
		return notFound(err, ErrTopicNotFound, "delete topic")
	}
	return nil
}

func (s *Service) CreateExam(ctx context.Context, in model.ExamInput) (*model.Exam, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	exam, err := s.store.CreateExam(ctx, model.Exam{
		Name:     in.Name,
		Board:    in.Board,
		Level:    in.Level,
		IsActive: *in.IsActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

func (s *Service) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	exam, err := s.store.FindExam(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrExamNotFound, "find exam")
	}
	return exam, nil
}

func (s *Service) ListExams(ctx context.Context, f model.ExamFilter) ([]model.Exam, error) {
	return s.store.ListExams(ctx, f)
}

func (s *Service) UpdateExam(ctx context.Context, id int64, in model.ExamInput) (*model.Exam, error) {
	existing, err := s.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IsActive == nil {
		in.IsActive = &existing.IsActive
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	existing.Name = in.Name
	existing.Board = in.Board
	existing.Level = in.Level
	existing.IsActive = *in.IsActive
	exam, err := s.store.UpdateExam(ctx, *existing)
	if err != nil {
		return nil, notFound(err, ErrExamNotFound, "update exam")
	}
	return exam, nil
}

func (s *Service) DeleteExam(ctx context.Context, id int64) error {
	if _, err := s.GetExam(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountExamDependents(ctx, id)
	if err != nil {
		return err
	}
	dependents := &DependentsError{Message: "Cannot delete exam with associated subjects, questions, or tests"}
	if n > 0 {
		return dependents
	}
	if err := s.store.DeleteExam(ctx, id); err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return dependents
		}
		return notFound(err, ErrExamNotFound, "delete exam")
	}
	return nil
}

// CreateExamSubject links a subject to an exam once.
func (s *Service) CreateExamSubject(ctx context.Context, in model.ExamSubjectInput) (*model.ExamSubject, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checker.CheckOptionalRefs(ctx, &in.ExamID, &in.SubjectID, nil); err != nil {
		return nil, err
	}
	_, err := s.store.FindExamSubjectPair(ctx, in.ExamID, in.SubjectID)
	switch {
	case err == nil:
		return nil, ErrDuplicateLink
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find exam subject: %w", err)
	}

	link, err := s.store.CreateExamSubject(ctx, in.ExamID, in.SubjectID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateLink
		}
		return nil, fmt.Errorf("create exam subject: %w", err)
	}
	return link, nil
}

func (s *Service) ListExamSubjects(ctx context.Context, f model.ExamSubjectFilter) ([]model.ExamSubject, error) {
	return s.store.ListExamSubjects(ctx, f)
}

func (s *Service) DeleteExamSubject(ctx context.Context, id int64) error {
	if _, err := s.store.FindExamSubject(ctx, id); err != nil {
		return notFound(err, ErrExamSubjectNotFound, "find exam subject")
	}
	if err := s.store.DeleteExamSubject(ctx, id); err != nil {
		return notFound(err, ErrExamSubjectNotFound, "delete exam subject")
	}
	return nil
}

func notFound(err, sentinel error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}
