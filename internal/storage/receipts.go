package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

// SaveReceiptPhoto records a stored receipt image.
func (s *SQLStorage) SaveReceiptPhoto(ctx context.Context, photo *model.ReceiptPhoto) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if photo == nil {
		return fmt.Errorf("%w: receipt photo", ErrNilParameter)
	}
	if err := validateString(photo.ExpenseID, "expenseID"); err != nil {
		return err
	}
	if err := validateString(photo.FilePath, "filePath"); err != nil {
		return err
	}
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = s.now()
	}

	if _, err := s.exec(ctx, s.db, `
		INSERT INTO receipt_photos (id, expense_id, file_path, telegram_file_id, file_size, upload_date, delete_after)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		photo.ID, photo.ExpenseID, photo.FilePath, nullString(photo.FileID), photo.FileSize,
		formatTimestamp(photo.UploadedAt), formatTimestamp(photo.DeleteAfter),
	); err != nil {
		return persistErr("insert receipt photo", err)
	}
	return nil
}

// ExpiredReceiptPhotos lists photos whose retention ended at or before before.
func (s *SQLStorage) ExpiredReceiptPhotos(ctx context.Context, before time.Time) ([]model.ReceiptPhoto, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, `
		SELECT id, expense_id, file_path, COALESCE(telegram_file_id, ''), COALESCE(file_size, 0),
			upload_date, delete_after
		FROM receipt_photos
		WHERE delete_after <= ?
		ORDER BY delete_after`, formatTimestamp(before))
	if err != nil {
		return nil, persistErr("query expired receipt photos", err)
	}
	defer func() { _ = rows.Close() }()

	var photos []model.ReceiptPhoto
	for rows.Next() {
		var (
			p                     model.ReceiptPhoto
			uploaded, deleteAfter string
		)
		if err := rows.Scan(&p.ID, &p.ExpenseID, &p.FilePath, &p.FileID, &p.FileSize, &uploaded, &deleteAfter); err != nil {
			return nil, persistErr("scan receipt photo", err)
		}
		p.UploadedAt = parseTimestamp(uploaded)
		p.DeleteAfter = parseTimestamp(deleteAfter)
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate receipt photos", err)
	}
	return photos, nil
}

// DeleteReceiptPhoto removes a photo record.
func (s *SQLStorage) DeleteReceiptPhoto(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.exec(ctx, s.db, `DELETE FROM receipt_photos WHERE id = ?`, id)
	if err != nil {
		return persistErr("delete receipt photo", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("receipt photo %s: %w", id, common.ErrNotFound)
	}
	return nil
}
