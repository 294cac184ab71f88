// Package resultstore fans Grading Results out to every configured backend.
package resultstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eduai/internal/models"
)

// resultNamespace scopes result IDs derived from grading runs.
var resultNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("eduai/grading-result"))

// ResultID derives the result's uuid from the submission and the grading run, so
// the same run always produces the same ID.
func ResultID(submissionID, runID string) string {
	return uuid.NewSHA1(resultNamespace, []byte(submissionID+"/"+runID)).String()
}

// Store is an append-only home for Grading Results.
type Store interface {
	Name() string
	AppendResult(ctx context.Context, res models.GradingResult) error
	ListByStudent(ctx context.Context, studentID string) ([]models.GradingResult, error)
	ListAll(ctx context.Context) ([]models.GradingResult, error)
}

// Fanout writes to every store and reads from the first one.
type Fanout struct {
	stores []Store
}

func NewFanout(stores ...Store) *Fanout {
	return &Fanout{stores: stores}
}

func (f *Fanout) Name() string { return "fanout" }

// AppendResult attempts every store even when an earlier one fails and
// reports all failures together.
func (f *Fanout) AppendResult(ctx context.Context, res models.GradingResult) error {
	if len(f.stores) == 0 {
		return errors.New("no result store configured")
	}
	var errs []error
	for _, s := range f.stores {
		if err := s.AppendResult(ctx, res); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) ListByStudent(ctx context.Context, studentID string) ([]models.GradingResult, error) {
	if len(f.stores) == 0 {
		return nil, errors.New("no result store configured")
	}
	return f.stores[0].ListByStudent(ctx, studentID)
}

func (f *Fanout) ListAll(ctx context.Context) ([]models.GradingResult, error) {
	if len(f.stores) == 0 {
		return nil, errors.New("no result store configured")
	}
	return f.stores[0].ListAll(ctx)
}

// Record groups a student's results in GradedAt order.
func Record(ctx context.Context, s Store, studentID string) (models.StudentRecord, error) {
	results, err := s.ListByStudent(ctx, studentID)
	if err != nil {
		return models.StudentRecord{}, err
	}
	rec := models.StudentRecord{StudentID: studentID, Results: results}
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].StudentName != "" {
			rec.StudentName = results[i].StudentName
			break
		}
	}
	return rec, nil
}
