package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"examprep/internal/model"
	"examprep/internal/store"
	"examprep/internal/validation"
)

var (
	ErrQuestionNotFound    = errors.New("question not found")
	ErrTranslationNotFound = errors.New("translation not found")
	ErrPoolEntryNotFound   = errors.New("question pool entry not found")
	ErrEmptyImport         = errors.New("import body must be a non-empty array")
)

const (
	msgAllCreated  = "All translations created successfully"
	msgSomeCreated = "Some translations created successfully"
	msgRolledBack  = "All translations failed, question creation rolled back"
	msgUnexpected  = "An unexpected error occurred"
)

type Store interface {
	RefStore

	CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error)
	FindQuestion(ctx context.Context, id int64) (*model.Question, error)
	ListQuestions(ctx context.Context, f model.QuestionFilter) ([]model.Question, error)
	UpdateQuestion(ctx context.Context, q model.Question) (*model.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	CreateTranslation(ctx context.Context, t model.QuestionTranslation) (*model.QuestionTranslation, error)
	FindTranslation(ctx context.Context, id int64) (*model.QuestionTranslation, error)
	FindTranslationByLanguage(ctx context.Context, questionID int64, language string) (*model.QuestionTranslation, error)
	ListTranslations(ctx context.Context, f model.TranslationFilter) ([]model.QuestionTranslation, error)
	ListTranslationsByQuestions(ctx context.Context, questionIDs []int64, language string) ([]model.QuestionTranslation, error)
	UpdateTranslation(ctx context.Context, t model.QuestionTranslation) (*model.QuestionTranslation, error)
	DeleteTranslation(ctx context.Context, id int64) error

	CreatePoolEntry(ctx context.Context, p model.QuestionPoolEntry) (*model.QuestionPoolEntry, error)
	FindPoolEntry(ctx context.Context, id int64) (*model.QuestionPoolEntry, error)
	ListPoolEntries(ctx context.Context, f model.QuestionPoolFilter) ([]model.QuestionPoolEntry, error)
	DeletePoolEntry(ctx context.Context, id int64) error
}

type Service struct {
	store   Store
	checker *Checker
}

func NewService(s Store) *Service {
	return &Service{store: s, checker: NewChecker(s)}
}

// Outcome classifies a question create by how many translations persisted.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomePartial
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomePartial:
		return "partial"
	case OutcomeRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// TranslationResult is the per-item record of a translation batch. Failed
// items echo their original input.
type TranslationResult struct {
	Input   json.RawMessage            `json:"input,omitempty"`
	Success bool                       `json:"success"`
	Message any                        `json:"message"`
	Data    *model.QuestionTranslation `json:"data,omitempty"`
}

type CreateResult struct {
	Outcome      Outcome
	Message      string
	Question     *model.Question
	Translations []model.QuestionTranslation
	Failures     []TranslationResult
	// Results holds one record per input translation, in input order.
	Results []TranslationResult
}

type ImportResult struct {
	Input              json.RawMessage     `json:"input"`
	Success            bool                `json:"success"`
	Message            any                 `json:"message"`
	QuestionID         *int64              `json:"questionId,omitempty"`
	TranslationResults []TranslationResult `json:"translationResults,omitempty"`
}

// CreateWithTranslations decodes and validates a question payload with its
// translations, persists the question, then each translation independently.
// When no translation persists the question is deleted again.
func (s *Service) CreateWithTranslations(ctx context.Context, raw []byte) (*CreateResult, error) {
	var in model.CreateQuestionInput
	if err := validation.DecodeBytes(raw, &in); err != nil {
		return nil, err
	}
	return s.createAggregate(ctx, in)
}

func (s *Service) createAggregate(ctx context.Context, in model.CreateQuestionInput) (*CreateResult, error) {
	if err := s.checker.CheckQuestionRefs(ctx, in.SubjectID, in.TopicID, in.ExamID); err != nil {
		return nil, err
	}

	q, err := s.store.CreateQuestion(ctx, model.Question{
		ExamID:     in.ExamID,
		SubjectID:  in.SubjectID,
		TopicID:    in.TopicID,
		Difficulty: in.Difficulty,
	})
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	out := &CreateResult{
		Question:     q,
		Translations: make([]model.QuestionTranslation, 0, len(in.Translations)),
		Failures:     make([]TranslationResult, 0),
		Results:      make([]TranslationResult, 0, len(in.Translations)),
	}
	for _, item := range in.Translations {
		res := s.createTranslationItem(ctx, q.ID, item)
		out.Results = append(out.Results, res)
		if res.Success {
			out.Translations = append(out.Translations, *res.Data)
		} else {
			out.Failures = append(out.Failures, res)
		}
	}

	switch {
	case len(out.Translations) == 0:
		if err := s.store.DeleteQuestion(ctx, q.ID); err != nil {
			return nil, fmt.Errorf("roll back question %d: %w", q.ID, err)
		}
		out.Outcome = OutcomeRolledBack
		out.Message = msgRolledBack
		out.Question = nil
	case len(out.Failures) == 0:
		out.Outcome = OutcomeCreated
		out.Message = msgAllCreated
	default:
		out.Outcome = OutcomePartial
		out.Message = msgSomeCreated
	}
	return out, nil
}

func (s *Service) createTranslationItem(ctx context.Context, questionID int64, raw json.RawMessage) TranslationResult {
	var in model.TranslationInput
	if err := validation.UnmarshalBytes(raw, &in); err != nil {
		return TranslationResult{Input: raw, Success: false, Message: ClientMessage(err)}
	}
	in.QuestionID = questionID

	t, err := s.CreateTranslation(ctx, in)
	if err != nil {
		if IsUnexpected(err) {
			log.Printf("create translation for question %d: %v", questionID, err)
		}
		return TranslationResult{Input: raw, Success: false, Message: ClientMessage(err)}
	}
	return TranslationResult{Success: true, Message: "Translation created successfully", Data: t}
}

// Import runs the single-question pipeline for every item. A failing item
// never stops the batch; every item gets exactly one result.
func (s *Service) Import(ctx context.Context, items []json.RawMessage) []ImportResult {
	results := make([]ImportResult, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			results = append(results, ImportResult{Input: item, Success: false, Message: "Import cancelled"})
			continue
		}

		res, err := s.CreateWithTranslations(ctx, item)
		if err != nil {
			if IsUnexpected(err) {
				log.Printf("import question: %v", err)
			}
			results = append(results, ImportResult{Input: item, Success: false, Message: ClientMessage(err)})
			continue
		}

		rec := ImportResult{
			Input:              item,
			Success:            res.Outcome != OutcomeRolledBack,
			Message:            res.Message,
			TranslationResults: res.Results,
		}
		if res.Question != nil {
			id := res.Question.ID
			rec.QuestionID = &id
		}
		results = append(results, rec)
	}
	return results
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*model.QuestionDetail, error) {
	q, err := s.findQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.attachTranslations(ctx, []model.Question{*q})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *Service) ListQuestions(ctx context.Context, f model.QuestionFilter) ([]model.QuestionDetail, error) {
	items, err := s.store.ListQuestions(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.attachTranslations(ctx, items)
}

// UpdateQuestion replaces the question fields after the same checks as create.
func (s *Service) UpdateQuestion(ctx context.Context, id int64, in model.QuestionInput) (*model.Question, error) {
	existing, err := s.findQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checker.CheckQuestionRefs(ctx, in.SubjectID, in.TopicID, in.ExamID); err != nil {
		return nil, err
	}

	existing.ExamID = in.ExamID
	existing.SubjectID = in.SubjectID
	existing.TopicID = in.TopicID
	existing.Difficulty = in.Difficulty
	q, err := s.store.UpdateQuestion(ctx, *existing)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	if _, err := s.findQuestion(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

func (s *Service) findQuestion(ctx context.Context, id int64) (*model.Question, error) {
	q, err := s.store.FindQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	return q, nil
}

func (s *Service) attachTranslations(ctx context.Context, items []model.Question) ([]model.QuestionDetail, error) {
	out := make([]model.QuestionDetail, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(items))
	for _, q := range items {
		ids = append(ids, q.ID)
	}
	translations, err := s.store.ListTranslationsByQuestions(ctx, ids, "")
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[int64][]model.QuestionTranslation, len(items))
	for _, t := range translations {
		byQuestion[t.QuestionID] = append(byQuestion[t.QuestionID], t)
	}
	for _, q := range items {
		ts := byQuestion[q.ID]
		if ts == nil {
			ts = []model.QuestionTranslation{}
		}
		out = append(out, model.QuestionDetail{Question: q, Translations: ts})
	}
	return out, nil
}
