package question

import (
	"context"
	"errors"
	"fmt"

	"examprep/internal/model"
	"examprep/internal/store"
	"examprep/internal/validation"
)

var ErrDuplicateTranslation = errors.New("duplicate translation")

// DuplicateTranslationError is returned when a question already has a
// translation in the requested language.
type DuplicateTranslationError struct {
	QuestionID int64
	Language   string
}

func (e *DuplicateTranslationError) Error() string {
	return fmt.Sprintf("translation for language %q already exists for question %d", e.Language, e.QuestionID)
}

func (e *DuplicateTranslationError) Is(target error) bool {
	return target == ErrDuplicateTranslation
}

// CreateTranslation validates in and persists it. The question must exist and
// must not already have a translation in the same language.
func (s *Service) CreateTranslation(ctx context.Context, in model.TranslationInput) (*model.QuestionTranslation, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.requireQuestion(ctx, in.QuestionID); err != nil {
		return nil, err
	}
	if err := s.checkLanguageFree(ctx, in.QuestionID, in.Language, 0); err != nil {
		return nil, err
	}

	t, err := s.store.CreateTranslation(ctx, translationFromInput(in))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, &DuplicateTranslationError{QuestionID: in.QuestionID, Language: in.Language}
		case errors.Is(err, store.ErrInvalidReference):
			return nil, questionRefError(in.QuestionID)
		}
		return nil, fmt.Errorf("insert translation: %w", err)
	}
	return t, nil
}

func (s *Service) GetTranslation(ctx context.Context, id int64) (*model.QuestionTranslation, error) {
	return s.findTranslation(ctx, id)
}

func (s *Service) ListTranslations(ctx context.Context, f model.TranslationFilter) ([]model.QuestionTranslation, error) {
	return s.store.ListTranslations(ctx, f)
}

// UpdateTranslation replaces every field of an existing translation. Moving it
// to another question or language re-runs the existence and duplicate checks.
func (s *Service) UpdateTranslation(ctx context.Context, id int64, in model.TranslationInput) (*model.QuestionTranslation, error) {
	existing, err := s.findTranslation(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.QuestionID == 0 {
		in.QuestionID = existing.QuestionID
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if in.QuestionID != existing.QuestionID {
		if err := s.requireQuestion(ctx, in.QuestionID); err != nil {
			return nil, err
		}
	}
	if in.QuestionID != existing.QuestionID || in.Language != existing.Language {
		if err := s.checkLanguageFree(ctx, in.QuestionID, in.Language, existing.ID); err != nil {
			return nil, err
		}
	}

	next := translationFromInput(in)
	next.ID = existing.ID
	t, err := s.store.UpdateTranslation(ctx, next)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrTranslationNotFound
		case errors.Is(err, store.ErrConflict):
			return nil, &DuplicateTranslationError{QuestionID: in.QuestionID, Language: in.Language}
		}
		return nil, fmt.Errorf("update translation: %w", err)
	}
	return t, nil
}

func (s *Service) DeleteTranslation(ctx context.Context, id int64) error {
	if _, err := s.findTranslation(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteTranslation(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTranslationNotFound
		}
		return fmt.Errorf("delete translation: %w", err)
	}
	return nil
}

func (s *Service) findTranslation(ctx context.Context, id int64) (*model.QuestionTranslation, error) {
	t, err := s.store.FindTranslation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTranslationNotFound
		}
		return nil, fmt.Errorf("find translation: %w", err)
	}
	return t, nil
}

func (s *Service) requireQuestion(ctx context.Context, id int64) error {
	if _, err := s.store.FindQuestion(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return questionRefError(id)
		}
		return fmt.Errorf("find question: %w", err)
	}
	return nil
}

// checkLanguageFree fails when another translation than selfID already uses
// language for the question.
func (s *Service) checkLanguageFree(ctx context.Context, questionID int64, language string, selfID int64) error {
	t, err := s.store.FindTranslationByLanguage(ctx, questionID, language)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find translation: %w", err)
	case t.ID == selfID:
		return nil
	default:
		return &DuplicateTranslationError{QuestionID: questionID, Language: language}
	}
}

func questionRefError(id int64) *RefError {
	return &RefError{
		Field:   "questionId",
		Message: fmt.Sprintf("Question with ID %d not found", id),
		Err:     ErrQuestionNotFound,
	}
}

func translationFromInput(in model.TranslationInput) model.QuestionTranslation {
	return model.QuestionTranslation{
		QuestionID:    in.QuestionID,
		Language:      in.Language,
		QuestionText:  in.QuestionText,
		OptionA:       in.OptionA,
		OptionB:       in.OptionB,
		OptionC:       in.OptionC,
		OptionD:       in.OptionD,
		CorrectOption: in.CorrectOption,
		Explanation:   in.Explanation,
	}
}

// ClientMessage turns a service error into the message placed in a response
// envelope or a per-item result record.
func ClientMessage(err error) any {
	if verrs, ok := validation.As(err); ok {
		return verrs
	}
	var refErr *RefError
	if errors.As(err, &refErr) {
		return refErr.Message
	}
	var dup *DuplicateTranslationError
	if errors.As(err, &dup) {
		return fmt.Sprintf("Translation for language '%s' already exists for question ID %d", dup.Language, dup.QuestionID)
	}
	switch {
	case errors.Is(err, ErrQuestionNotFound):
		return "Question not found"
	case errors.Is(err, ErrTranslationNotFound):
		return "Translation not found"
	case errors.Is(err, ErrPoolEntryNotFound):
		return "Question pool entry not found"
	}
	return msgUnexpected
}

// IsUnexpected reports whether err falls outside the client-facing taxonomy
// and should be logged.
func IsUnexpected(err error) bool {
	if _, ok := validation.As(err); ok {
		return false
	}
	var refErr *RefError
	return !errors.As(err, &refErr) &&
		!errors.Is(err, ErrDuplicateTranslation) &&
		!errors.Is(err, ErrQuestionNotFound) &&
		!errors.Is(err, ErrTranslationNotFound) &&
		!errors.Is(err, ErrPoolEntryNotFound)
}
