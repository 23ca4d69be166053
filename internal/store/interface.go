package store

import (
	"context"
	"fmt"

	"github.com/surendar1863/student-edge-program/internal/models"
)

// SubmissionStore owns submission records, one per (roll, section).
type SubmissionStore interface {
	// PutSubmission replaces whatever is stored under the submission key.
	PutSubmission(ctx context.Context, sub *models.Submission) error
	// GetSubmission returns nil, nil when nothing is stored.
	GetSubmission(ctx context.Context, roll, section string) (*models.Submission, error)
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
}

// MarkStore owns mark records, one per (roll, question).
type MarkStore interface {
	PutMark(ctx context.Context, mark *models.MarkRecord) error
	// ListMarks returns the subject's marks in write order.
	ListMarks(ctx context.Context, roll string) ([]models.MarkRecord, error)

	PutShortMark(ctx context.Context, mark *models.ShortMark) error
	ListShortMarks(ctx context.Context, roll, section string) ([]models.ShortMark, error)
}

type Store interface {
	SubmissionStore
	MarkStore
	Close() error
}

// Unavailable wraps a backend failure so callers can detect it with
// errors.Is(err, models.ErrStoreUnavailable).
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", models.ErrStoreUnavailable, op, err)
}
