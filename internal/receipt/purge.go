package receipt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Veraticus/expensesbot/internal/model"
)

// PhotoIndex records which receipt images are stored and until when.
type PhotoIndex interface {
	ExpiredReceiptPhotos(ctx context.Context, before time.Time) ([]model.ReceiptPhoto, error)
	DeleteReceiptPhoto(ctx context.Context, id string) error
}

// Purge deletes every indexed image whose retention has passed, then sweeps
// the directory for files older than retention that were never indexed.
// It returns the number of files removed.
func (f *Files) Purge(ctx context.Context, index PhotoIndex, retention time.Duration) (int, error) {
	expired, err := index.ExpiredReceiptPhotos(ctx, f.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired receipts: %w", err)
	}

	removed := 0
	for _, photo := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		switch err := os.Remove(photo.FilePath); {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			f.logger.Warn("Failed to delete expired receipt", "path", photo.FilePath, "error", err)
			continue
		}
		if err := index.DeleteReceiptPhoto(ctx, photo.ID); err != nil {
			return removed, fmt.Errorf("failed to forget receipt %s: %w", photo.ID, err)
		}
	}

	swept, err := f.Cleanup(retention)
	if err != nil {
		return removed, err
	}
	return removed + swept, nil
}
