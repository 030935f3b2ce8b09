package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"examprep/internal/auth"
	"examprep/internal/model"
	"examprep/internal/question"

	"github.com/go-chi/chi/v5"
)

type mockAssessmentService struct {
	getTestFn       func(ctx context.Context, id int64, withQuestions bool) (*TestDetail, error)
	listAttemptsFn  func(ctx context.Context, f model.TestAttemptFilter) ([]model.TestAttempt, error)
	createAttemptFn func(ctx context.Context, in model.TestAttemptInput) (*model.TestAttempt, error)
	submitFn        func(ctx context.Context, id int64) (*model.TestAttempt, AttemptScore, error)
	ownerFn         func(ctx context.Context, id int64) (int64, error)
	createAnswerFn  func(ctx context.Context, in model.AttemptAnswerInput) (*model.AttemptAnswer, error)
}

func (m *mockAssessmentService) CreateTest(ctx context.Context, in model.TestInput) (*model.Test, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) GetTest(ctx context.Context, id int64, withQuestions bool) (*TestDetail, error) {
	if m.getTestFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getTestFn(ctx, id, withQuestions)
}

func (m *mockAssessmentService) ListTests(ctx context.Context, f model.TestFilter, withQuestions bool) ([]TestDetail, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) UpdateTest(ctx context.Context, id int64, in model.TestInput) (*model.Test, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) DeleteTest(ctx context.Context, id int64) error {
	return errors.New("not implemented")
}

func (m *mockAssessmentService) CreateTestQuestion(ctx context.Context, in model.TestQuestionInput) (*model.TestQuestion, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) ListTestQuestions(ctx context.Context, f model.TestQuestionFilter) ([]model.TestQuestion, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) UpdateTestQuestion(ctx context.Context, id int64, in model.TestQuestionInput) (*model.TestQuestion, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) DeleteTestQuestion(ctx context.Context, id int64) error {
	return errors.New("not implemented")
}

func (m *mockAssessmentService) CreateAttempt(ctx context.Context, in model.TestAttemptInput) (*model.TestAttempt, error) {
	if m.createAttemptFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createAttemptFn(ctx, in)
}

func (m *mockAssessmentService) GetAttempt(ctx context.Context, id int64) (*model.TestAttempt, error) {
	return &model.TestAttempt{ID: id}, nil
}

func (m *mockAssessmentService) ListAttempts(ctx context.Context, f model.TestAttemptFilter) ([]model.TestAttempt, error) {
	if m.listAttemptsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listAttemptsFn(ctx, f)
}

func (m *mockAssessmentService) UpdateAttempt(ctx context.Context, id int64, in model.UpdateTestAttemptInput) (*model.TestAttempt, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) DeleteAttempt(ctx context.Context, id int64) error {
	return errors.New("not implemented")
}

func (m *mockAssessmentService) SubmitAttempt(ctx context.Context, id int64) (*model.TestAttempt, AttemptScore, error) {
	if m.submitFn == nil {
		return nil, AttemptScore{}, errors.New("not implemented")
	}
	return m.submitFn(ctx, id)
}

func (m *mockAssessmentService) AttemptOwner(ctx context.Context, id int64) (int64, error) {
	if m.ownerFn == nil {
		return 0, errors.New("not implemented")
	}
	return m.ownerFn(ctx, id)
}

func (m *mockAssessmentService) AnswerOwner(ctx context.Context, id int64) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *mockAssessmentService) CreateAnswer(ctx context.Context, in model.AttemptAnswerInput) (*model.AttemptAnswer, error) {
	if m.createAnswerFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createAnswerFn(ctx, in)
}

func (m *mockAssessmentService) ListAnswers(ctx context.Context, f model.AttemptAnswerFilter) ([]model.AttemptAnswer, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) UpdateAnswer(ctx context.Context, id int64, in model.UpdateAttemptAnswerInput) (*model.AttemptAnswer, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) CreateQuestionLog(ctx context.Context, in model.UserQuestionLogInput) (*model.UserQuestionLog, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssessmentService) ListQuestionLogs(ctx context.Context, f model.UserQuestionLogFilter) ([]model.UserQuestionLog, error) {
	return nil, errors.New("not implemented")
}

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

func withUser(req *http.Request, id int64, userType string) *http.Request {
	return req.WithContext(auth.ContextWithUser(req.Context(), &auth.Principal{ID: id, Username: "u", UserType: userType}))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestGetTestPassesWithQuestion(t *testing.T) {
	var gotWith bool
	h := NewHandler(&mockAssessmentService{
		getTestFn: func(ctx context.Context, id int64, withQuestions bool) (*TestDetail, error) {
			gotWith = withQuestions
			count := 0
			return &TestDetail{Test: model.Test{ID: id}, QuestionCount: &count, Questions: []TestQuestionDetail{}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/test/4?withQuestion=true", nil)
	req = withParam(req, "id", "4")
	rr := httptest.NewRecorder()
	h.GetTest(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !gotWith {
		t.Fatalf("expected withQuestion to reach the service")
	}
}

func TestGetTestErrors(t *testing.T) {
	h := NewHandler(&mockAssessmentService{
		getTestFn: func(ctx context.Context, id int64, withQuestions bool) (*TestDetail, error) {
			return nil, ErrTestNotFound
		},
	})

	tests := []struct {
		name   string
		url    string
		id     string
		status int
	}{
		{name: "bad id", url: "/api/test/x", id: "x", status: http.StatusBadRequest},
		{name: "bad flag", url: "/api/test/1?withQuestion=maybe", id: "1", status: http.StatusBadRequest},
		{name: "missing", url: "/api/test/1", id: "1", status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := withParam(httptest.NewRequest(http.MethodGet, tc.url, nil), "id", tc.id)
			rr := httptest.NewRecorder()
			h.GetTest(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestStudentListAttemptsIsScopedToSelf(t *testing.T) {
	var got model.TestAttemptFilter
	h := NewHandler(&mockAssessmentService{
		listAttemptsFn: func(ctx context.Context, f model.TestAttemptFilter) ([]model.TestAttempt, error) {
			got = f
			return []model.TestAttempt{}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/test-attempt", nil), 7, model.UserTypeStudent)
	rr := httptest.NewRecorder()
	h.ListAttempts(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got.UserID == nil || *got.UserID != 7 {
		t.Fatalf("expected filter scoped to user 7, got %+v", got.UserID)
	}

	req = withUser(httptest.NewRequest(http.MethodGet, "/api/test-attempt?userId=8", nil), 7, model.UserTypeStudent)
	rr = httptest.NewRecorder()
	h.ListAttempts(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestStudentCreateAttemptDefaultsToSelf(t *testing.T) {
	var got model.TestAttemptInput
	h := NewHandler(&mockAssessmentService{
		createAttemptFn: func(ctx context.Context, in model.TestAttemptInput) (*model.TestAttempt, error) {
			got = in
			return &model.TestAttempt{ID: 1, TestID: in.TestID, UserID: in.UserID}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/test-attempt", bytes.NewBufferString(`{"testId":3}`)), 7, model.UserTypeStudent)
	rr := httptest.NewRecorder()
	h.CreateAttempt(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got.UserID != 7 {
		t.Fatalf("expected user 7, got %d", got.UserID)
	}

	req = withUser(httptest.NewRequest(http.MethodPost, "/api/test-attempt", bytes.NewBufferString(`{"testId":3,"score":100}`)), 7, model.UserTypeStudent)
	rr = httptest.NewRecorder()
	h.CreateAttempt(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when a student sets the score, got %d", rr.Code)
	}
}

func TestSubmitAttemptOwnership(t *testing.T) {
	submitted := false
	h := NewHandler(&mockAssessmentService{
		ownerFn: func(ctx context.Context, id int64) (int64, error) {
			if id == 404 {
				return 0, ErrAttemptNotFound
			}
			return 7, nil
		},
		submitFn: func(ctx context.Context, id int64) (*model.TestAttempt, AttemptScore, error) {
			submitted = true
			return &model.TestAttempt{ID: id}, AttemptScore{TotalQuestions: 1, Correct: 1, Answered: 1, Score: 100}, nil
		},
	})

	tests := []struct {
		name   string
		userID int64
		role   string
		id     string
		status int
	}{
		{name: "owner", userID: 7, role: model.UserTypeStudent, id: "1", status: http.StatusOK},
		{name: "other student", userID: 8, role: model.UserTypeStudent, id: "1", status: http.StatusForbidden},
		{name: "teacher", userID: 8, role: model.UserTypeTeacher, id: "1", status: http.StatusOK},
		{name: "missing attempt", userID: 7, role: model.UserTypeStudent, id: "404", status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			submitted = false
			req := httptest.NewRequest(http.MethodPost, "/api/test-attempt/"+tc.id+"/submit", nil)
			req = withParam(req, "id", tc.id)
			req = withUser(req, tc.userID, tc.role)
			rr := httptest.NewRecorder()
			h.SubmitAttempt(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if submitted != (tc.status == http.StatusOK) {
				t.Fatalf("unexpected submit call: %v", submitted)
			}
		})
	}
}

func TestSubmitAlreadySubmittedIsConflict(t *testing.T) {
	h := NewHandler(&mockAssessmentService{
		submitFn: func(ctx context.Context, id int64) (*model.TestAttempt, AttemptScore, error) {
			return nil, AttemptScore{}, ErrAttemptSubmitted
		},
	})
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/test-attempt/1/submit", nil), "id", "1")
	req = withUser(req, 1, model.UserTypeAdmin)
	rr := httptest.NewRecorder()
	h.SubmitAttempt(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCreateAnswerQuestionOutsideTest(t *testing.T) {
	h := NewHandler(&mockAssessmentService{
		ownerFn: func(ctx context.Context, id int64) (int64, error) { return 7, nil },
		createAnswerFn: func(ctx context.Context, in model.AttemptAnswerInput) (*model.AttemptAnswer, error) {
			return nil, &question.RefError{Field: "questionId", Message: "Question with ID 9 is not part of this test", Err: ErrQuestionNotInTest}
		},
	})

	body := bytes.NewBufferString(`{"attemptId":1,"questionId":9,"selectedOption":"A"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/attempt-answer", body), 7, model.UserTypeStudent)
	rr := httptest.NewRecorder()
	h.CreateAnswer(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if string(env.Message) != `"Question with ID 9 is not part of this test"` {
		t.Fatalf("unexpected message: %s", env.Message)
	}
	if string(env.Data) != "[]" {
		t.Fatalf("expected empty data, got %s", env.Data)
	}
}

func TestStudentCannotGradeOwnAnswer(t *testing.T) {
	h := NewHandler(&mockAssessmentService{
		ownerFn: func(ctx context.Context, id int64) (int64, error) { return 7, nil },
	})
	body := bytes.NewBufferString(`{"attemptId":1,"questionId":9,"selectedOption":"A","isCorrect":true}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/attempt-answer", body), 7, model.UserTypeStudent)
	rr := httptest.NewRecorder()
	h.CreateAnswer(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
