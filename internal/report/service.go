package report

import (
	"context"
	"errors"
	"fmt"
	"math"

	"examprep/internal/model"
	"examprep/internal/store"
)

var ErrTestNotFound = errors.New("test not found")

type Store interface {
	FindTest(ctx context.Context, id int64) (*model.Test, error)
	SummarizeTest(ctx context.Context, testID int64) (*model.TestSummary, error)
}

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// TestSummary reports participation and score statistics for one test.
// Scores only exist on submitted attempts, so the score fields stay nil
// until the first submission.
func (s *Service) TestSummary(ctx context.Context, testID int64) (*model.TestSummary, error) {
	if _, err := s.store.FindTest(ctx, testID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("find test: %w", err)
	}
	summary, err := s.store.SummarizeTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	summary.AverageScore = round2(summary.AverageScore)
	return summary, nil
}

func round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*100) / 100
	return &r
}
