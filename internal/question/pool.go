package question

import (
	"context"
	"errors"
	"fmt"

	"examprep/internal/model"
	"examprep/internal/store"
	"examprep/internal/validation"
)

func (s *Service) CreatePoolEntry(ctx context.Context, in model.QuestionPoolInput) (*model.QuestionPoolEntry, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.requireQuestion(ctx, in.QuestionID); err != nil {
		return nil, err
	}
	if err := s.checker.CheckOptionalRefs(ctx, in.ExamID, in.SubjectID, in.TopicID); err != nil {
		return nil, err
	}

	p, err := s.store.CreatePoolEntry(ctx, model.QuestionPoolEntry{
		QuestionID: in.QuestionID,
		ExamID:     in.ExamID,
		SubjectID:  in.SubjectID,
		TopicID:    in.TopicID,
		Difficulty: in.Difficulty,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return nil, questionRefError(in.QuestionID)
		}
		return nil, fmt.Errorf("insert question pool entry: %w", err)
	}
	return p, nil
}

func (s *Service) ListPoolEntries(ctx context.Context, f model.QuestionPoolFilter) ([]model.QuestionPoolEntry, error) {
	return s.store.ListPoolEntries(ctx, f)
}

func (s *Service) DeletePoolEntry(ctx context.Context, id int64) error {
	if _, err := s.store.FindPoolEntry(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPoolEntryNotFound
		}
		return fmt.Errorf("find question pool entry: %w", err)
	}
	if err := s.store.DeletePoolEntry(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPoolEntryNotFound
		}
		return fmt.Errorf("delete question pool entry: %w", err)
	}
	return nil
}
