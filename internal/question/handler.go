package question

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"examprep/internal/app/apiresp"
	"examprep/internal/app/httpparam"
	"examprep/internal/model"
	"examprep/internal/validation"
)

const maxSpreadsheetBytes = 10 << 20

type Handler struct {
	svc questionService
}

type questionService interface {
	CreateWithTranslations(ctx context.Context, raw []byte) (*CreateResult, error)
	Import(ctx context.Context, items []json.RawMessage) []ImportResult
	ImportXLSX(ctx context.Context, r io.Reader) ([]ImportResult, error)
	ExportXLSX(ctx context.Context, filter model.QuestionFilter) ([]byte, error)
	GetQuestion(ctx context.Context, id int64) (*model.QuestionDetail, error)
	ListQuestions(ctx context.Context, f model.QuestionFilter) ([]model.QuestionDetail, error)
	UpdateQuestion(ctx context.Context, id int64, in model.QuestionInput) (*model.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	CreateTranslation(ctx context.Context, in model.TranslationInput) (*model.QuestionTranslation, error)
	GetTranslation(ctx context.Context, id int64) (*model.QuestionTranslation, error)
	ListTranslations(ctx context.Context, f model.TranslationFilter) ([]model.QuestionTranslation, error)
	UpdateTranslation(ctx context.Context, id int64, in model.TranslationInput) (*model.QuestionTranslation, error)
	DeleteTranslation(ctx context.Context, id int64) error

	CreatePoolEntry(ctx context.Context, in model.QuestionPoolInput) (*model.QuestionPoolEntry, error)
	ListPoolEntries(ctx context.Context, f model.QuestionPoolFilter) ([]model.QuestionPoolEntry, error)
	DeletePoolEntry(ctx context.Context, id int64) error
}

func NewHandler(svc questionService) *Handler {
	return &Handler{svc: svc}
}

type createResponse struct {
	Question     *model.Question             `json:"question"`
	Translations []model.QuestionTranslation `json:"translations"`
	Failures     []TranslationResult         `json:"failures,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.CreateWithTranslations(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	switch res.Outcome {
	case OutcomeRolledBack:
		apiresp.Write(w, r, http.StatusBadRequest, []any{}, res.Message, res.Failures)
	case OutcomePartial:
		apiresp.WriteOK(w, r, http.StatusPartialContent, createResponse{
			Question:     res.Question,
			Translations: res.Translations,
			Failures:     res.Failures,
		}, res.Message)
	default:
		apiresp.WriteOK(w, r, http.StatusCreated, createResponse{
			Question:     res.Question,
			Translations: res.Translations,
		}, res.Message)
	}
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var items []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil || len(items) == 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Body must be a non-empty array of questions")
		return
	}
	results := h.svc.Import(r.Context(), items)
	apiresp.WriteOK(w, r, http.StatusOK, results, "Import process completed")
}

func (h *Handler) ImportXLSX(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSpreadsheetBytes); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	results, err := h.svc.ImportXLSX(r.Context(), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, results, "Import process completed")
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := questionFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	content, err := h.svc.ExportXLSX(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filename := "questions-" + time.Now().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := questionFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListQuestions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Questions retrieved successfully")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid question ID")
		return
	}
	item, err := h.svc.GetQuestion(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Question retrieved successfully")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid question ID")
		return
	}
	var in model.QuestionInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateQuestion(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Question updated successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid question ID")
		return
	}
	if err := h.svc.DeleteQuestion(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Question deleted successfully")
}

func (h *Handler) CreateTranslation(w http.ResponseWriter, r *http.Request) {
	var in model.TranslationInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreateTranslation(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Translation created successfully")
}

func (h *Handler) ListTranslations(w http.ResponseWriter, r *http.Request) {
	questionID, err := httpparam.Int64(r, "questionId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListTranslations(r.Context(), model.TranslationFilter{
		QuestionID: questionID,
		Language:   httpparam.String(r, "language"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Translations retrieved successfully")
}

func (h *Handler) GetTranslation(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid translation ID")
		return
	}
	item, err := h.svc.GetTranslation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Translation retrieved successfully")
}

func (h *Handler) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid translation ID")
		return
	}
	var in model.TranslationInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateTranslation(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Translation updated successfully")
}

func (h *Handler) DeleteTranslation(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid translation ID")
		return
	}
	if err := h.svc.DeleteTranslation(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Translation deleted successfully")
}

func (h *Handler) CreatePoolEntry(w http.ResponseWriter, r *http.Request) {
	var in model.QuestionPoolInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreatePoolEntry(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Question pool entry created successfully")
}

func (h *Handler) ListPoolEntries(w http.ResponseWriter, r *http.Request) {
	base, err := questionFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	questionID, err := httpparam.Int64(r, "questionId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListPoolEntries(r.Context(), model.QuestionPoolFilter{
		QuestionID: questionID,
		ExamID:     base.ExamID,
		SubjectID:  base.SubjectID,
		TopicID:    base.TopicID,
		Difficulty: base.Difficulty,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Question pool retrieved successfully")
}

func (h *Handler) DeletePoolEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid question pool ID")
		return
	}
	if err := h.svc.DeletePoolEntry(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Question pool entry deleted successfully")
}

func questionFilter(r *http.Request) (model.QuestionFilter, error) {
	var f model.QuestionFilter
	var err error
	if f.ExamID, err = httpparam.Int64(r, "examId"); err != nil {
		return f, err
	}
	if f.SubjectID, err = httpparam.Int64(r, "subjectId"); err != nil {
		return f, err
	}
	if f.TopicID, err = httpparam.Int64(r, "topicId"); err != nil {
		return f, err
	}
	f.Difficulty = httpparam.Upper(r, "difficulty")
	return f, nil
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var paramErr *httpparam.Error
	switch {
	case errors.As(err, &paramErr):
		apiresp.WriteError(w, r, http.StatusBadRequest, paramErr.Error())
	case errors.Is(err, ErrInvalidSpreadsheet):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateTranslation):
		apiresp.WriteError(w, r, http.StatusConflict, ClientMessage(err))
	case errors.Is(err, ErrQuestionNotFound), errors.Is(err, ErrTranslationNotFound), errors.Is(err, ErrPoolEntryNotFound):
		var refErr *RefError
		if errors.As(err, &refErr) {
			apiresp.WriteError(w, r, http.StatusBadRequest, refErr.Message)
			return
		}
		apiresp.WriteError(w, r, http.StatusNotFound, ClientMessage(err))
	case !IsUnexpected(err):
		apiresp.WriteError(w, r, http.StatusBadRequest, ClientMessage(err))
	default:
		log.Printf("question handler %s %s: %v", r.Method, r.URL.Path, err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, msgUnexpected)
	}
}
