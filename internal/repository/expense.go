package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var ErrExpenseNotFound = errors.New("expense not found")

// ExpenseFilter narrows ListExpenses. From/To bound the issue date.
type ExpenseFilter struct {
	UserID     string
	From       *time.Time
	To         *time.Time
	Category   model.ExpenseCategory
	Deductible *bool
}

const expenseColumns = `id, user_id, document_id, concepto, categoria, proveedor_nombre, proveedor_nif,
	proveedor_intracomunitario, fecha_emision, fecha_pago, pagado, base_imponible, tipo_iva, cuota_iva,
	tipo_retencion, cuota_retencion, clase_retencion, total_factura, deducible, porcentaje_deducible,
	notas, created_at, updated_at`

// CreateExpense inserts an expense.
func (r *Repository) CreateExpense(ctx context.Context, e *model.Expense) error {
	return insertExpense(ctx, r.pool, e)
}

func insertExpense(ctx context.Context, q querier, e *model.Expense) error {
	_, err := q.Exec(ctx, `
		INSERT INTO gastos (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23)
	`,
		e.ID, e.UserID, e.DocumentID, e.Concept, e.Category, e.SupplierName, e.SupplierNIF,
		e.SupplierIntracommunity, e.IssueDate, e.PaidDate, e.Paid, e.Base, e.IVARate, e.IVAAmount,
		e.WithholdingRate, e.WithholdingAmount, e.WithholdingKind, e.Total, e.Deductible, e.DeductiblePct,
		e.Notes, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return ErrInvalidReference
		}
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetExpense retrieves one of the user's expenses.
func (r *Repository) GetExpense(ctx context.Context, userID, id string) (*model.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM gastos WHERE id = $1 AND user_id = $2`
	e, err := scanExpense(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, ErrExpenseNotFound)
	}
	return e, nil
}

// ListExpenses pages through expenses, newest issue date first.
func (r *Repository) ListExpenses(ctx context.Context, filter ExpenseFilter, page Page) ([]*model.Expense, string, error) {
	cur, err := decodeCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := page.limit()

	var args argList
	query := `SELECT ` + expenseColumns + ` FROM gastos WHERE user_id = ` + args.add(filter.UserID)
	if filter.From != nil {
		query += ` AND fecha_emision >= ` + args.add(*filter.From)
	}
	if filter.To != nil {
		query += ` AND fecha_emision <= ` + args.add(*filter.To)
	}
	if filter.Category != "" {
		query += ` AND categoria = ` + args.add(filter.Category)
	}
	if filter.Deductible != nil {
		query += ` AND deducible = ` + args.add(*filter.Deductible)
	}
	if cur != nil {
		query += ` AND (fecha_emision, id) < (` + args.add(cur.At) + `, ` + args.add(cur.ID) + `)`
	}
	query += ` ORDER BY fecha_emision DESC, id DESC LIMIT ` + args.add(limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list expenses: %w", err)
	}
	expenses, err := collect(rows, scanExpense)
	if err != nil {
		return nil, "", err
	}

	expenses, next := trimPage(expenses, limit, func(e *model.Expense) cursor {
		return cursor{ID: e.ID, At: e.IssueDate}
	})
	return expenses, next, nil
}

// ExpensesBetween loads every expense issued in [from, to] for reports.
func (r *Repository) ExpensesBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+expenseColumns+` FROM gastos
		WHERE user_id = $1 AND fecha_emision BETWEEN $2 AND $3
		ORDER BY fecha_emision, id
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	return collect(rows, scanExpense)
}

// UpdateExpense overwrites every mutable field.
func (r *Repository) UpdateExpense(ctx context.Context, e *model.Expense) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE gastos SET concepto = $3, categoria = $4, proveedor_nombre = $5, proveedor_nif = $6,
			proveedor_intracomunitario = $7, fecha_emision = $8, fecha_pago = $9, pagado = $10,
			base_imponible = $11, tipo_iva = $12, cuota_iva = $13, tipo_retencion = $14,
			cuota_retencion = $15, clase_retencion = $16, total_factura = $17, deducible = $18,
			porcentaje_deducible = $19, notas = $20, updated_at = $21
		WHERE id = $1 AND user_id = $2
	`,
		e.ID, e.UserID, e.Concept, e.Category, e.SupplierName, e.SupplierNIF,
		e.SupplierIntracommunity, e.IssueDate, e.PaidDate, e.Paid,
		e.Base, e.IVARate, e.IVAAmount, e.WithholdingRate,
		e.WithholdingAmount, e.WithholdingKind, e.Total, e.Deductible,
		e.DeductiblePct, e.Notes, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

// DeleteExpense removes an expense; a linked document is unlinked by the
// foreign key.
func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM gastos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func scanExpense(row rowScanner) (*model.Expense, error) {
	var e model.Expense
	err := row.Scan(
		&e.ID, &e.UserID, &e.DocumentID, &e.Concept, &e.Category, &e.SupplierName, &e.SupplierNIF,
		&e.SupplierIntracommunity, &e.IssueDate, &e.PaidDate, &e.Paid, &e.Base, &e.IVARate, &e.IVAAmount,
		&e.WithholdingRate, &e.WithholdingAmount, &e.WithholdingKind, &e.Total, &e.Deductible, &e.DeductiblePct,
		&e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
