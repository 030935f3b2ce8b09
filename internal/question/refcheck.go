package question

import (
	"context"
	"errors"
	"fmt"

	"examprep/internal/model"
	"examprep/internal/store"
)

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTopicNotFound   = errors.New("topic not found in subject")
	ErrExamNotFound    = errors.New("exam not found")
)

// RefError reports a foreign key target that failed a referential check.
// Message is safe to return to clients.
type RefError struct {
	Field   string
	Message string
	Err     error
}

func (e *RefError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *RefError) Unwrap() error {
	return e.Err
}

type RefStore interface {
	FindSubject(ctx context.Context, id int64) (*model.Subject, error)
	FindTopic(ctx context.Context, id int64) (*model.Topic, error)
	FindTopicInSubject(ctx context.Context, topicID, subjectID int64) (*model.Topic, error)
	FindExam(ctx context.Context, id int64) (*model.Exam, error)
}

// Checker confirms that the subject, topic and exam a record points at exist.
// Reads are not tied to the write that follows.
type Checker struct {
	store RefStore
}

func NewChecker(s RefStore) *Checker {
	return &Checker{store: s}
}

// CheckQuestionRefs requires the subject, requires the topic to belong to
// that subject and requires the exam only when examID is set.
func (c *Checker) CheckQuestionRefs(ctx context.Context, subjectID, topicID int64, examID *int64) error {
	if err := c.checkSubject(ctx, subjectID); err != nil {
		return err
	}
	if err := c.checkTopicInSubject(ctx, topicID, subjectID); err != nil {
		return err
	}
	if examID != nil {
		return c.checkExam(ctx, *examID)
	}
	return nil
}

// CheckOptionalRefs is the test variant where every reference is optional.
// A topic given without a subject only has to exist.
func (c *Checker) CheckOptionalRefs(ctx context.Context, examID, subjectID, topicID *int64) error {
	if examID != nil {
		if err := c.checkExam(ctx, *examID); err != nil {
			return err
		}
	}
	if subjectID != nil {
		if err := c.checkSubject(ctx, *subjectID); err != nil {
			return err
		}
	}
	if topicID == nil {
		return nil
	}
	if subjectID != nil {
		return c.checkTopicInSubject(ctx, *topicID, *subjectID)
	}
	if _, err := c.store.FindTopic(ctx, *topicID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &RefError{Field: "topicId", Message: "Topic not found", Err: ErrTopicNotFound}
		}
		return fmt.Errorf("find topic: %w", err)
	}
	return nil
}

func (c *Checker) checkSubject(ctx context.Context, id int64) error {
	if _, err := c.store.FindSubject(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &RefError{Field: "subjectId", Message: "Subject not found", Err: ErrSubjectNotFound}
		}
		return fmt.Errorf("find subject: %w", err)
	}
	return nil
}

// A topic under another subject and a missing topic are the same failure.
func (c *Checker) checkTopicInSubject(ctx context.Context, topicID, subjectID int64) error {
	if _, err := c.store.FindTopicInSubject(ctx, topicID, subjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &RefError{
				Field:   "topicId",
				Message: "Topic not found or doesn't belong to the specified subject",
				Err:     ErrTopicNotFound,
			}
		}
		return fmt.Errorf("find topic: %w", err)
	}
	return nil
}

func (c *Checker) checkExam(ctx context.Context, id int64) error {
	if _, err := c.store.FindExam(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &RefError{Field: "examId", Message: "Exam not found", Err: ErrExamNotFound}
		}
		return fmt.Errorf("find exam: %w", err)
	}
	return nil
}
