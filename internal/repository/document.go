package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentDuplicate = errors.New("a document with the same content already exists")
	ErrDocumentConverted = errors.New("document is already linked to an expense")
)

// DocumentFilter narrows ListDocuments. Linked selects documents with
// (true) or without (false) an expense.
type DocumentFilter struct {
	UserID string
	Kind   model.DocumentKind
	Linked *bool
}

const documentColumns = `id, user_id, nombre, tipo, mime_type, tamano_bytes, storage_ref, checksum,
	notas, gasto_id, ocr_estado, ocr_error, datos_extraidos, created_at, updated_at`

// CreateDocument inserts document metadata.
func (r *Repository) CreateDocument(ctx context.Context, d *model.Document) error {
	extracted, err := marshalExtracted(d.Extracted)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		d.ID, d.UserID, d.Name, d.Kind, d.MimeType, d.SizeBytes, d.StorageRef, d.Checksum,
		d.Notes, d.ExpenseID, d.OCRStatus, d.OCRError, extracted, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "documents_user_checksum_key") {
			return ErrDocumentDuplicate
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves one of the user's documents.
func (r *Repository) GetDocument(ctx context.Context, userID, id string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND user_id = $2`
	d, err := scanDocument(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, ErrDocumentNotFound)
	}
	return d, nil
}

// ListDocuments pages through documents, newest first.
func (r *Repository) ListDocuments(ctx context.Context, filter DocumentFilter, page Page) ([]*model.Document, string, error) {
	cur, err := decodeCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := page.limit()

	var args argList
	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = ` + args.add(filter.UserID)
	if filter.Kind != "" {
		query += ` AND tipo = ` + args.add(filter.Kind)
	}
	if filter.Linked != nil {
		if *filter.Linked {
			query += ` AND gasto_id IS NOT NULL`
		} else {
			query += ` AND gasto_id IS NULL`
		}
	}
	if cur != nil {
		query += ` AND (created_at, id) < (` + args.add(cur.At) + `, ` + args.add(cur.ID) + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + args.add(limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list documents: %w", err)
	}
	docs, err := collect(rows, scanDocument)
	if err != nil {
		return nil, "", err
	}

	docs, next := trimPage(docs, limit, func(d *model.Document) cursor {
		return cursor{ID: d.ID, At: d.CreatedAt}
	})
	return docs, next, nil
}

// UpdateDocument stores name, kind and notes.
func (r *Repository) UpdateDocument(ctx context.Context, d *model.Document) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE documents SET nombre = $3, tipo = $4, notas = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2
	`, d.ID, d.UserID, d.Name, d.Kind, d.Notes, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// SetDocumentOCR records the outcome of external text extraction.
func (r *Repository) SetDocumentOCR(ctx context.Context, userID, id string, status model.OCRStatus, ocrErr string, fields *model.ExtractedFields) error {
	extracted, err := marshalExtracted(fields)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE documents SET ocr_estado = $3, ocr_error = $4, datos_extraidos = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, status, ocrErr, extracted)
	if err != nil {
		return fmt.Errorf("failed to store OCR result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// DeleteDocument removes document metadata; an expense pointing at it is
// unlinked by the foreign key.
func (r *Repository) DeleteDocument(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// ConvertDocumentToExpense locks the document, builds the expense from it
// and links both ways in one transaction.
func (r *Repository) ConvertDocumentToExpense(
	ctx context.Context,
	userID, documentID string,
	build func(d *model.Document) (*model.Expense, error),
) (*model.Expense, error) {
	var expense *model.Expense

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		d, err := scanDocument(tx.QueryRow(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			documentID, userID))
		if err != nil {
			return notFound(err, ErrDocumentNotFound)
		}
		if d.ExpenseID != nil {
			return ErrDocumentConverted
		}

		e, err := build(d)
		if err != nil {
			return err
		}
		e.DocumentID = &d.ID
		if err := insertExpense(ctx, tx, e); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE documents SET gasto_id = $2, updated_at = NOW() WHERE id = $1`, d.ID, e.ID,
		); err != nil {
			return fmt.Errorf("failed to link document: %w", err)
		}
		expense = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func marshalExtracted(f *model.ExtractedFields) ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal extracted fields: %w", err)
	}
	return data, nil
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	var extracted []byte
	err := row.Scan(
		&d.ID, &d.UserID, &d.Name, &d.Kind, &d.MimeType, &d.SizeBytes, &d.StorageRef, &d.Checksum,
		&d.Notes, &d.ExpenseID, &d.OCRStatus, &d.OCRError, &extracted, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(extracted) > 0 {
		var f model.ExtractedFields
		if err := json.Unmarshal(extracted, &f); err != nil {
			return nil, fmt.Errorf("decode extracted fields of %s: %w", d.ID, err)
		}
		d.Extracted = &f
	}
	return &d, nil
}
