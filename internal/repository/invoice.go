package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvoiceNumberTaken  = errors.New("invoice number already used")
	ErrInvoiceNotEditable  = errors.New("invoice is not pending")
	ErrDuplicateOccurrence = errors.New("template already has an invoice on this date")
	ErrInvalidReference    = errors.New("referenced client or billing profile does not exist")
	ErrStatusChanged       = errors.New("invoice status does not allow this change")
)

const (
	invoiceNumberKey     = "facturas_emitidas_user_numero_key"
	invoiceOccurrenceKey = "facturas_emitidas_template_fecha_key"
)

// InvoiceFilter narrows ListInvoices. From/To bound the issue date, inclusive.
type InvoiceFilter struct {
	UserID     string
	From       *time.Time
	To         *time.Time
	Status     model.InvoiceStatus
	ClientID   string
	TemplateID string
}

const invoiceSelect = `
	SELECT f.id, f.user_id, f.cliente_id, f.datos_facturacion_id, f.template_id, f.numero_factura,
		f.fecha_emision, f.fecha_vencimiento, f.concepto, f.descripcion, f.base_imponible, f.tipo_iva,
		f.cuota_iva, f.tipo_irpf, f.cuota_irpf, f.total_factura, f.estado, f.fecha_pago,
		f.periodo_inicio, f.periodo_fin, f.notas, f.created_at, f.updated_at,
		c.razon_social, c.nif, c.intracomunitario
	FROM facturas_emitidas f
	JOIN clientes c ON c.id = f.cliente_id`

// CreateInvoice inserts inv, allocating the next YYYY-NNNN number when
// inv.Number is empty.
func (r *Repository) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockInvoiceNumbers(ctx, tx, inv.UserID); err != nil {
			return err
		}
		if inv.Number == "" {
			n, err := nextInvoiceNumber(ctx, tx, inv.UserID, inv.IssueDate.Year())
			if err != nil {
				return err
			}
			inv.Number = n
		}
		_, err := insertInvoice(ctx, tx, inv, false)
		return err
	})
}

// lockInvoiceNumbers serialises number allocation per user until commit.
func lockInvoiceNumbers(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return fmt.Errorf("lock invoice numbering: %w", err)
	}
	return nil
}

// nextInvoiceNumber returns max(NNNN)+1 among the user's YYYY-NNNN numbers
// of year. Manually numbered invoices in other formats are ignored.
func nextInvoiceNumber(ctx context.Context, tx pgx.Tx, userID string, year int) (string, error) {
	var last int
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(split_part(numero_factura, '-', 2) AS INTEGER)), 0)
		FROM facturas_emitidas
		WHERE user_id = $1
		  AND numero_factura ~ '^[0-9]{4}-[0-9]{1,9}$'
		  AND split_part(numero_factura, '-', 1) = $2
	`, userID, strconv.Itoa(year)).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number: %w", err)
	}
	return model.FormatInvoiceNumber(year, last+1), nil
}

// insertInvoice inserts inv. With skipOccurrence a clash on the template
// occurrence key inserts nothing and returns false.
func insertInvoice(ctx context.Context, q querier, inv *model.Invoice, skipOccurrence bool) (bool, error) {
	query := `
		INSERT INTO facturas_emitidas (id, user_id, cliente_id, datos_facturacion_id, template_id,
			numero_factura, fecha_emision, fecha_vencimiento, concepto, descripcion, base_imponible,
			tipo_iva, cuota_iva, tipo_irpf, cuota_irpf, total_factura, estado, fecha_pago,
			periodo_inicio, periodo_fin, notas, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23)`
	if skipOccurrence {
		query += ` ON CONFLICT ON CONSTRAINT ` + invoiceOccurrenceKey + ` DO NOTHING`
	}
	query += ` RETURNING id`

	var id string
	err := q.QueryRow(ctx, query,
		inv.ID, inv.UserID, inv.ClientID, inv.BillingProfileID, inv.TemplateID,
		inv.Number, inv.IssueDate, inv.DueDate, inv.Concept, inv.Description, inv.Base,
		inv.IVARate, inv.IVAAmount, inv.IRPFRate, inv.IRPFAmount, inv.Total, inv.Status, inv.PaidDate,
		inv.PeriodStart, inv.PeriodEnd, inv.Notes, inv.CreatedAt, inv.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if skipOccurrence && errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, classifyInvoiceError(err)
	}
	return true, nil
}

func classifyInvoiceError(err error) error {
	switch {
	case isUniqueViolation(err, invoiceNumberKey):
		return ErrInvoiceNumberTaken
	case isUniqueViolation(err, invoiceOccurrenceKey):
		return ErrDuplicateOccurrence
	case isForeignKeyViolation(err, ""):
		return ErrInvalidReference
	}
	return fmt.Errorf("failed to write invoice: %w", err)
}

// GetInvoice retrieves one of the user's invoices.
func (r *Repository) GetInvoice(ctx context.Context, userID, id string) (*model.Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, invoiceSelect+` WHERE f.id = $1 AND f.user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	return inv, nil
}

// ListInvoices pages through invoices, newest issue date first.
func (r *Repository) ListInvoices(ctx context.Context, filter InvoiceFilter, page Page) ([]*model.Invoice, string, error) {
	cur, err := decodeCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := page.limit()

	var args argList
	query := invoiceSelect + ` WHERE f.user_id = ` + args.add(filter.UserID)
	if filter.From != nil {
		query += ` AND f.fecha_emision >= ` + args.add(*filter.From)
	}
	if filter.To != nil {
		query += ` AND f.fecha_emision <= ` + args.add(*filter.To)
	}
	if filter.Status != "" {
		query += ` AND f.estado = ` + args.add(filter.Status)
	}
	if filter.ClientID != "" {
		query += ` AND f.cliente_id = ` + args.add(filter.ClientID)
	}
	if filter.TemplateID != "" {
		query += ` AND f.template_id = ` + args.add(filter.TemplateID)
	}
	if cur != nil {
		query += ` AND (f.fecha_emision, f.id) < (` + args.add(cur.At) + `, ` + args.add(cur.ID) + `)`
	}
	query += ` ORDER BY f.fecha_emision DESC, f.id DESC LIMIT ` + args.add(limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list invoices: %w", err)
	}
	invoices, err := collect(rows, scanInvoice)
	if err != nil {
		return nil, "", err
	}

	invoices, next := trimPage(invoices, limit, func(inv *model.Invoice) cursor {
		return cursor{ID: inv.ID, At: inv.IssueDate}
	})
	return invoices, next, nil
}

// InvoicesBetween loads every invoice issued in [from, to] for reports.
func (r *Repository) InvoicesBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Invoice, error) {
	rows, err := r.pool.Query(ctx, invoiceSelect+`
		WHERE f.user_id = $1 AND f.fecha_emision BETWEEN $2 AND $3
		ORDER BY f.fecha_emision, f.id
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	return collect(rows, scanInvoice)
}

// UpdateInvoice overwrites a pending invoice.
func (r *Repository) UpdateInvoice(ctx context.Context, inv *model.Invoice) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE facturas_emitidas SET cliente_id = $3, datos_facturacion_id = $4, numero_factura = $5,
			fecha_emision = $6, fecha_vencimiento = $7, concepto = $8, descripcion = $9,
			base_imponible = $10, tipo_iva = $11, cuota_iva = $12, tipo_irpf = $13, cuota_irpf = $14,
			total_factura = $15, periodo_inicio = $16, periodo_fin = $17, notas = $18, updated_at = $19
		WHERE id = $1 AND user_id = $2 AND estado = 'PENDIENTE'
	`,
		inv.ID, inv.UserID, inv.ClientID, inv.BillingProfileID, inv.Number,
		inv.IssueDate, inv.DueDate, inv.Concept, inv.Description,
		inv.Base, inv.IVARate, inv.IVAAmount, inv.IRPFRate, inv.IRPFAmount,
		inv.Total, inv.PeriodStart, inv.PeriodEnd, inv.Notes, inv.UpdatedAt,
	)
	if err != nil {
		return classifyInvoiceError(err)
	}
	if result.RowsAffected() == 0 {
		return r.invoiceMissOrLocked(ctx, inv.UserID, inv.ID)
	}
	return nil
}

// SetInvoiceStatus moves an invoice from status from to status to with the
// given paid date. It fails with ErrStatusChanged when the stored status is
// no longer from.
func (r *Repository) SetInvoiceStatus(ctx context.Context, userID, id string, from, to model.InvoiceStatus, paidDate *time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE facturas_emitidas SET estado = $4, fecha_pago = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND estado = $3
	`, id, userID, from, to, paidDate)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if result.RowsAffected() == 0 {
		err := r.invoiceMissOrLocked(ctx, userID, id)
		if errors.Is(err, ErrInvoiceNotEditable) {
			return ErrStatusChanged
		}
		return err
	}
	return nil
}

// DeleteInvoice removes a pending invoice.
func (r *Repository) DeleteInvoice(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM facturas_emitidas WHERE id = $1 AND user_id = $2 AND estado = 'PENDIENTE'
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.invoiceMissOrLocked(ctx, userID, id)
	}
	return nil
}

func (r *Repository) invoiceMissOrLocked(ctx context.Context, userID, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM facturas_emitidas WHERE id = $1 AND user_id = $2)`, id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check invoice: %w", err)
	}
	if exists {
		return ErrInvoiceNotEditable
	}
	return ErrInvoiceNotFound
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.ClientID, &inv.BillingProfileID, &inv.TemplateID, &inv.Number,
		&inv.IssueDate, &inv.DueDate, &inv.Concept, &inv.Description, &inv.Base, &inv.IVARate,
		&inv.IVAAmount, &inv.IRPFRate, &inv.IRPFAmount, &inv.Total, &inv.Status, &inv.PaidDate,
		&inv.PeriodStart, &inv.PeriodEnd, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.ClientName, &inv.ClientNIF, &inv.ClientIntracommunity,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
