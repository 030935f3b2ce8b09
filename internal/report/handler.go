package report

import (
	"context"
	"errors"
	"log"
	"net/http"

	"examprep/internal/app/apiresp"
	"examprep/internal/app/httpparam"
	"examprep/internal/model"
)

type Handler struct {
	svc reportService
}

type reportService interface {
	TestSummary(ctx context.Context, testID int64) (*model.TestSummary, error)
}

func NewHandler(svc reportService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) TestSummary(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid test ID")
		return
	}
	summary, err := h.svc.TestSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTestNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, "Test not found")
			return
		}
		log.Printf("report handler %s %s: %v", r.Method, r.URL.Path, err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary, "Test report retrieved successfully")
}
