package masterdata

import (
	"context"
	"errors"
	"log"
	"net/http"

	"examprep/internal/app/apiresp"
	"examprep/internal/app/httpparam"
	"examprep/internal/model"
	"examprep/internal/question"
	"examprep/internal/validation"
)

type Handler struct {
	svc masterdataService
}

type masterdataService interface {
	CreateSubject(ctx context.Context, in model.SubjectInput) (*model.Subject, error)
	GetSubject(ctx context.Context, id int64) (*model.Subject, error)
	ListSubjects(ctx context.Context) ([]model.Subject, error)
	UpdateSubject(ctx context.Context, id int64, in model.SubjectInput) (*model.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error

	CreateTopic(ctx context.Context, in model.TopicInput) (*model.Topic, error)
	GetTopic(ctx context.Context, id int64) (*model.Topic, error)
	ListTopics(ctx context.Context, f model.TopicFilter) ([]model.Topic, error)
	UpdateTopic(ctx context.Context, id int64, in model.TopicInput) (*model.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error

	CreateExam(ctx context.Context, in model.ExamInput) (*model.Exam, error)
	GetExam(ctx context.Context, id int64) (*model.Exam, error)
	ListExams(ctx context.Context, f model.ExamFilter) ([]model.Exam, error)
	UpdateExam(ctx context.Context, id int64, in model.ExamInput) (*model.Exam, error)
	DeleteExam(ctx context.Context, id int64) error

	CreateExamSubject(ctx context.Context, in model.ExamSubjectInput) (*model.ExamSubject, error)
	ListExamSubjects(ctx context.Context, f model.ExamSubjectFilter) ([]model.ExamSubject, error)
	DeleteExamSubject(ctx context.Context, id int64) error
}

func NewHandler(svc masterdataService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var in model.SubjectInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreateSubject(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Subject created successfully")
}

func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSubjects(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Subjects retrieved successfully")
}

func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid subject ID")
		return
	}
	item, err := h.svc.GetSubject(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Subject retrieved successfully")
}

func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid subject ID")
		return
	}
	var in model.SubjectInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateSubject(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Subject updated successfully")
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid subject ID")
		return
	}
	if err := h.svc.DeleteSubject(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Subject deleted successfully")
}

func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var in model.TopicInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreateTopic(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Topic created successfully")
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	subjectID, err := httpparam.Int64(r, "subjectId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListTopics(r.Context(), model.TopicFilter{SubjectID: subjectID})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Topics retrieved successfully")
}

func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid topic ID")
		return
	}
	item, err := h.svc.GetTopic(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Topic retrieved successfully")
}

func (h *Handler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid topic ID")
		return
	}
	var in model.TopicInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateTopic(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Topic updated successfully")
}

func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid topic ID")
		return
	}
	if err := h.svc.DeleteTopic(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Topic deleted successfully")
}

func (h *Handler) CreateExam(w http.ResponseWriter, r *http.Request) {
	var in model.ExamInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreateExam(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Exam created successfully")
}

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	isActive, err := httpparam.Bool(r, "isActive")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListExams(r.Context(), model.ExamFilter{
		IsActive: isActive,
		Board:    httpparam.String(r, "board"),
		Level:    httpparam.String(r, "level"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Exams retrieved successfully")
}

func (h *Handler) GetExam(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid exam ID")
		return
	}
	item, err := h.svc.GetExam(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Exam retrieved successfully")
}

func (h *Handler) UpdateExam(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid exam ID")
		return
	}
	var in model.ExamInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateExam(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Exam updated successfully")
}

func (h *Handler) DeleteExam(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid exam ID")
		return
	}
	if err := h.svc.DeleteExam(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Exam deleted successfully")
}

func (h *Handler) CreateExamSubject(w http.ResponseWriter, r *http.Request) {
	var in model.ExamSubjectInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreateExamSubject(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Subject linked to exam successfully")
}

func (h *Handler) ListExamSubjects(w http.ResponseWriter, r *http.Request) {
	examID, err := httpparam.Int64(r, "examId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	subjectID, err := httpparam.Int64(r, "subjectId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListExamSubjects(r.Context(), model.ExamSubjectFilter{ExamID: examID, SubjectID: subjectID})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Exam subjects retrieved successfully")
}

func (h *Handler) DeleteExamSubject(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid exam subject ID")
		return
	}
	if err := h.svc.DeleteExamSubject(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Subject unlinked from exam successfully")
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		paramErr   *httpparam.Error
		refErr     *question.RefError
		dependents *DependentsError
	)
	if verrs, ok := validation.As(err); ok {
		apiresp.WriteError(w, r, http.StatusBadRequest, verrs)
		return
	}
	switch {
	case errors.As(err, &paramErr):
		apiresp.WriteError(w, r, http.StatusBadRequest, paramErr.Error())
	case errors.As(err, &refErr):
		apiresp.WriteError(w, r, http.StatusBadRequest, refErr.Message)
	case errors.As(err, &dependents):
		apiresp.WriteError(w, r, http.StatusConflict, dependents.Message)
	case errors.Is(err, ErrDuplicateName):
		apiresp.WriteError(w, r, http.StatusConflict, "A subject with this name already exists")
	case errors.Is(err, ErrDuplicateLink):
		apiresp.WriteError(w, r, http.StatusConflict, "This subject is already linked to the exam")
	case errors.Is(err, ErrSubjectNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Subject not found")
	case errors.Is(err, ErrTopicNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Topic not found")
	case errors.Is(err, ErrExamNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Exam not found")
	case errors.Is(err, ErrExamSubjectNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Exam subject link not found")
	default:
		log.Printf("masterdata handler %s %s: %v", r.Method, r.URL.Path, err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
