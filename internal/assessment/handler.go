package assessment

import (
	"context"
	"errors"
	"log"
	"net/http"

	"examprep/internal/app/apiresp"
	"examprep/internal/app/httpparam"
	"examprep/internal/auth"
	"examprep/internal/model"
	"examprep/internal/question"
	"examprep/internal/validation"
)

var errForbidden = errors.New("forbidden")

type Handler struct {
	svc assessmentService
}

type assessmentService interface {
	CreateTest(ctx context.Context, in model.TestInput) (*model.Test, error)
	GetTest(ctx context.Context, id int64, withQuestions bool) (*TestDetail, error)
	ListTests(ctx context.Context, f model.TestFilter, withQuestions bool) ([]TestDetail, error)
	UpdateTest(ctx context.Context, id int64, in model.TestInput) (*model.Test, error)
	DeleteTest(ctx context.Context, id int64) error

	CreateTestQuestion(ctx context.Context, in model.TestQuestionInput) (*model.TestQuestion, error)
	ListTestQuestions(ctx context.Context, f model.TestQuestionFilter) ([]model.TestQuestion, error)
	UpdateTestQuestion(ctx context.Context, id int64, in model.TestQuestionInput) (*model.TestQuestion, error)
	DeleteTestQuestion(ctx context.Context, id int64) error

	CreateAttempt(ctx context.Context, in model.TestAttemptInput) (*model.TestAttempt, error)
	GetAttempt(ctx context.Context, id int64) (*model.TestAttempt, error)
	ListAttempts(ctx context.Context, f model.TestAttemptFilter) ([]model.TestAttempt, error)
	UpdateAttempt(ctx context.Context, id int64, in model.UpdateTestAttemptInput) (*model.TestAttempt, error)
	DeleteAttempt(ctx context.Context, id int64) error
	SubmitAttempt(ctx context.Context, id int64) (*model.TestAttempt, AttemptScore, error)
	AttemptOwner(ctx context.Context, id int64) (int64, error)
	AnswerOwner(ctx context.Context, id int64) (int64, error)

	CreateAnswer(ctx context.Context, in model.AttemptAnswerInput) (*model.AttemptAnswer, error)
	ListAnswers(ctx context.Context, f model.AttemptAnswerFilter) ([]model.AttemptAnswer, error)
	UpdateAnswer(ctx context.Context, id int64, in model.UpdateAttemptAnswerInput) (*model.AttemptAnswer, error)

	CreateQuestionLog(ctx context.Context, in model.UserQuestionLogInput) (*model.UserQuestionLog, error)
	ListQuestionLogs(ctx context.Context, f model.UserQuestionLogFilter) ([]model.UserQuestionLog, error)
}

func NewHandler(svc assessmentService) *Handler {
	return &Handler{svc: svc}
}

type submitResponse struct {
	Attempt *model.TestAttempt `json:"attempt"`
	Result  AttemptScore       `json:"result"`
}

func (h *Handler) CreateTest(w http.ResponseWriter, r *http.Request) {
	var in model.TestInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreateTest(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Test created successfully")
}

func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	var f model.TestFilter
	var err error
	if f.TestID, err = httpparam.Int64(r, "testId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.ExamID, err = httpparam.Int64(r, "examId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.SubjectID, err = httpparam.Int64(r, "subjectId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.TopicID, err = httpparam.Int64(r, "topicId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.IsLive, err = httpparam.Bool(r, "isLive"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	withQuestions, err := withQuestionParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items, err := h.svc.ListTests(r.Context(), f, withQuestions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Tests retrieved successfully")
}

func (h *Handler) GetTest(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test ID")
		return
	}
	withQuestions, err := withQuestionParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.GetTest(r.Context(), id, withQuestions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Test retrieved successfully")
}

func (h *Handler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test ID")
		return
	}
	var in model.TestInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateTest(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Test updated successfully")
}

func (h *Handler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test ID")
		return
	}
	if err := h.svc.DeleteTest(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Test deleted successfully")
}

func (h *Handler) CreateTestQuestion(w http.ResponseWriter, r *http.Request) {
	var in model.TestQuestionInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.CreateTestQuestion(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Test question created successfully")
}

func (h *Handler) ListTestQuestions(w http.ResponseWriter, r *http.Request) {
	var f model.TestQuestionFilter
	var err error
	if f.TestID, err = httpparam.Int64(r, "testId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.QuestionID, err = httpparam.Int64(r, "questionId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.ListTestQuestions(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Test questions retrieved successfully")
}

func (h *Handler) UpdateTestQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test question ID")
		return
	}
	var in model.TestQuestionInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateTestQuestion(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Test question updated successfully")
}

func (h *Handler) DeleteTestQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test question ID")
		return
	}
	if err := h.svc.DeleteTestQuestion(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Test question deleted successfully")
}

func (h *Handler) CreateAttempt(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	var in model.TestAttemptInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isStaff(user) {
		if in.UserID == 0 {
			in.UserID = user.ID
		}
		// Students start attempts for themselves and never set the outcome.
		if in.UserID != user.ID || in.SubmittedAt != nil || in.Score != nil {
			writeServiceError(w, r, errForbidden)
			return
		}
	}
	item, err := h.svc.CreateAttempt(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Test attempt created successfully")
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	var f model.TestAttemptFilter
	var err error
	if f.TestID, err = httpparam.Int64(r, "testId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.UserID, err = httpparam.Int64(r, "userId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isStaff(user) {
		if f.UserID != nil && *f.UserID != user.ID {
			writeServiceError(w, r, errForbidden)
			return
		}
		f.UserID = &user.ID
	}
	items, err := h.svc.ListAttempts(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Test attempts retrieved successfully")
}

func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.attemptID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetAttempt(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Test attempt retrieved successfully")
}

func (h *Handler) UpdateAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test attempt ID")
		return
	}
	var in model.UpdateTestAttemptInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.UpdateAttempt(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Test attempt updated successfully")
}

func (h *Handler) DeleteAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test attempt ID")
		return
	}
	if err := h.svc.DeleteAttempt(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []any{}, "Test attempt deleted successfully")
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.attemptID(w, r)
	if !ok {
		return
	}
	item, score, err := h.svc.SubmitAttempt(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, submitResponse{Attempt: item, Result: score}, "Test attempt submitted successfully")
}

func (h *Handler) CreateAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	var in model.AttemptAnswerInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isStaff(user) {
		if in.IsCorrect != nil {
			writeServiceError(w, r, errForbidden)
			return
		}
		if err := h.authorizeAttempt(r.Context(), user, in.AttemptID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	item, err := h.svc.CreateAnswer(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Attempt answer created successfully")
}

func (h *Handler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	var f model.AttemptAnswerFilter
	var err error
	if f.AttemptID, err = httpparam.Int64(r, "attemptId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.QuestionID, err = httpparam.Int64(r, "questionId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isStaff(user) {
		if f.AttemptID == nil {
			writeServiceError(w, r, errForbidden)
			return
		}
		if err := h.authorizeAttempt(r.Context(), user, *f.AttemptID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	items, err := h.svc.ListAnswers(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Attempt answers retrieved successfully")
}

func (h *Handler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid attempt answer ID")
		return
	}
	var in model.UpdateAttemptAnswerInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isStaff(user) {
		if in.IsCorrect != nil {
			writeServiceError(w, r, errForbidden)
			return
		}
		ownerID, err := h.svc.AnswerOwner(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if ownerID != user.ID {
			writeServiceError(w, r, errForbidden)
			return
		}
	}
	item, err := h.svc.UpdateAnswer(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item, "Attempt answer updated successfully")
}

func (h *Handler) CreateQuestionLog(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	var in model.UserQuestionLogInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isStaff(user) {
		if in.UserID == 0 {
			in.UserID = user.ID
		}
		if in.UserID != user.ID {
			writeServiceError(w, r, errForbidden)
			return
		}
	}
	item, err := h.svc.CreateQuestionLog(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item, "Question log created successfully")
}

func (h *Handler) ListQuestionLogs(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	var f model.UserQuestionLogFilter
	var err error
	if f.UserID, err = httpparam.Int64(r, "userId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.QuestionID, err = httpparam.Int64(r, "questionId"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isStaff(user) {
		if f.UserID != nil && *f.UserID != user.ID {
			writeServiceError(w, r, errForbidden)
			return
		}
		f.UserID = &user.ID
	}
	items, err := h.svc.ListQuestionLogs(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Question logs retrieved successfully")
}

// attemptID parses the path id and checks that the caller may act on the
// attempt. It writes the error response itself.
func (h *Handler) attemptID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return 0, false
	}
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test attempt ID")
		return 0, false
	}
	if !isStaff(user) {
		if err := h.authorizeAttempt(r.Context(), user, id); err != nil {
			writeServiceError(w, r, err)
			return 0, false
		}
	}
	return id, true
}

func (h *Handler) authorizeAttempt(ctx context.Context, user *auth.Principal, attemptID int64) error {
	ownerID, err := h.svc.AttemptOwner(ctx, attemptID)
	if err != nil {
		return err
	}
	if ownerID != user.ID {
		return errForbidden
	}
	return nil
}

func isStaff(user *auth.Principal) bool {
	return user.UserType == model.UserTypeAdmin || user.UserType == model.UserTypeTeacher
}

func withQuestionParam(r *http.Request) (bool, error) {
	v, err := httpparam.Bool(r, "withQuestion")
	if err != nil || v == nil {
		return false, err
	}
	return *v, nil
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		refErr   *question.RefError
		paramErr *httpparam.Error
	)
	if verrs, ok := validation.As(err); ok {
		apiresp.WriteError(w, r, http.StatusBadRequest, verrs)
		return
	}
	switch {
	case errors.As(err, &refErr):
		apiresp.WriteError(w, r, http.StatusBadRequest, refErr.Message)
	case errors.As(err, &paramErr):
		apiresp.WriteError(w, r, http.StatusBadRequest, paramErr.Error())
	case errors.Is(err, errForbidden):
		apiresp.WriteError(w, r, http.StatusForbidden, "You are not authorized to access this resource.")
	case errors.Is(err, ErrDuplicatePosition):
		apiresp.WriteError(w, r, http.StatusConflict, "This position is already used in the test")
	case errors.Is(err, ErrDuplicateQuestion):
		apiresp.WriteError(w, r, http.StatusConflict, "This question is already part of the test")
	case errors.Is(err, ErrDuplicateAnswer):
		apiresp.WriteError(w, r, http.StatusConflict, "This question has already been answered in the attempt")
	case errors.Is(err, ErrAttemptSubmitted):
		apiresp.WriteError(w, r, http.StatusConflict, "Test attempt has already been submitted")
	case errors.Is(err, ErrTestNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Test not found")
	case errors.Is(err, ErrTestQuestionNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Test question not found")
	case errors.Is(err, ErrAttemptNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Test attempt not found")
	case errors.Is(err, ErrAnswerNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Attempt answer not found")
	default:
		log.Printf("assessment handler %s %s: %v", r.Method, r.URL.Path, err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
