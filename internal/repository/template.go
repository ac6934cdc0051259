package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var ErrTemplateNotFound = errors.New("recurring invoice template not found")

// TemplateFilter narrows ListTemplates.
type TemplateFilter struct {
	UserID   string
	Active   *bool
	ClientID string
}

// TemplatePlan is what a generation run decided for a locked template.
type TemplatePlan struct {
	// Invoices are drafts without numbers; one per occurrence.
	Invoices []*model.Invoice
	// Advance stores Next and Active on the template. Generate-now and
	// backfill leave the schedule alone.
	Advance bool
	Next    *time.Time
	Active  bool
}

// GenerationResult reports what a generation run wrote.
type GenerationResult struct {
	Template *model.Template
	Created  []*model.Invoice
	// Skipped are occurrence dates that already had an invoice.
	Skipped []time.Time
}

const templateSelect = `
	SELECT t.id, t.user_id, t.cliente_id, t.datos_facturacion_id, t.nombre, t.concepto, t.descripcion,
		t.base_imponible, t.tipo_iva, t.tipo_irpf, t.frecuencia, t.intervalo_dias, t.tipo_dia,
		t.dia_generacion, t.fecha_inicio, t.fecha_fin, t.periodo_facturacion, t.dias_vencimiento,
		t.activo, t.proxima_generacion, t.ultima_generacion, t.facturas_generadas,
		t.created_at, t.updated_at, c.razon_social
	FROM recurring_invoice_templates t
	JOIN clientes c ON c.id = t.cliente_id`

// CreateTemplate inserts a template.
func (r *Repository) CreateTemplate(ctx context.Context, t *model.Template) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recurring_invoice_templates (id, user_id, cliente_id, datos_facturacion_id, nombre,
			concepto, descripcion, base_imponible, tipo_iva, tipo_irpf, frecuencia, intervalo_dias,
			tipo_dia, dia_generacion, fecha_inicio, fecha_fin, periodo_facturacion, dias_vencimiento,
			activo, proxima_generacion, ultima_generacion, facturas_generadas, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24)
	`,
		t.ID, t.UserID, t.ClientID, t.BillingProfileID, t.Name,
		t.Concept, t.Description, t.Base, t.IVARate, t.IRPFRate, t.Frequency, t.IntervalDays,
		t.DayPolicy, t.Day, t.StartDate, t.EndDate, t.PeriodKind, t.DueDays,
		t.Active, t.NextDate, t.LastDate, t.GeneratedCount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return ErrInvalidReference
		}
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetTemplate retrieves one of the user's templates.
func (r *Repository) GetTemplate(ctx context.Context, userID, id string) (*model.Template, error) {
	t, err := scanTemplate(r.pool.QueryRow(ctx, templateSelect+` WHERE t.id = $1 AND t.user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, ErrTemplateNotFound)
	}
	return t, nil
}

// ListTemplates pages through templates, newest first.
func (r *Repository) ListTemplates(ctx context.Context, filter TemplateFilter, page Page) ([]*model.Template, string, error) {
	cur, err := decodeCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := page.limit()

	var args argList
	query := templateSelect + ` WHERE t.user_id = ` + args.add(filter.UserID)
	if filter.Active != nil {
		query += ` AND t.activo = ` + args.add(*filter.Active)
	}
	if filter.ClientID != "" {
		query += ` AND t.cliente_id = ` + args.add(filter.ClientID)
	}
	if cur != nil {
		query += ` AND (t.created_at, t.id) < (` + args.add(cur.At) + `, ` + args.add(cur.ID) + `)`
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC LIMIT ` + args.add(limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list templates: %w", err)
	}
	templates, err := collect(rows, scanTemplate)
	if err != nil {
		return nil, "", err
	}

	templates, next := trimPage(templates, limit, func(t *model.Template) cursor {
		return cursor{ID: t.ID, At: t.CreatedAt}
	})
	return templates, next, nil
}

// ListDueTemplates returns active templates whose next generation date is
// on or before today, in id order starting after afterID. An empty userID
// covers every user. Paging on id alone keeps the walk stable while the
// caller moves the dates it has processed.
func (r *Repository) ListDueTemplates(ctx context.Context, userID string, today time.Time, afterID string, limit int) ([]*model.Template, error) {
	var args argList
	query := templateSelect + `
		WHERE t.activo AND t.proxima_generacion IS NOT NULL AND t.proxima_generacion <= ` + args.add(today)
	if userID != "" {
		query += ` AND t.user_id = ` + args.add(userID)
	}
	if afterID != "" {
		query += ` AND t.id > ` + args.add(afterID)
	}
	query += ` ORDER BY t.id LIMIT ` + args.add(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}
	return collect(rows, scanTemplate)
}

// UpdateTemplate overwrites the editable fields plus schedule state.
func (r *Repository) UpdateTemplate(ctx context.Context, t *model.Template) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE recurring_invoice_templates SET cliente_id = $3, datos_facturacion_id = $4, nombre = $5,
			concepto = $6, descripcion = $7, base_imponible = $8, tipo_iva = $9, tipo_irpf = $10,
			frecuencia = $11, intervalo_dias = $12, tipo_dia = $13, dia_generacion = $14,
			fecha_inicio = $15, fecha_fin = $16, periodo_facturacion = $17, dias_vencimiento = $18,
			activo = $19, proxima_generacion = $20, updated_at = $21
		WHERE id = $1 AND user_id = $2
	`,
		t.ID, t.UserID, t.ClientID, t.BillingProfileID, t.Name,
		t.Concept, t.Description, t.Base, t.IVARate, t.IRPFRate,
		t.Frequency, t.IntervalDays, t.DayPolicy, t.Day,
		t.StartDate, t.EndDate, t.PeriodKind, t.DueDays,
		t.Active, t.NextDate, t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return ErrInvalidReference
		}
		return fmt.Errorf("failed to update template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// SetTemplateSchedule stores the active flag and next generation date.
func (r *Repository) SetTemplateSchedule(ctx context.Context, userID, id string, active bool, next *time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE recurring_invoice_templates SET activo = $3, proxima_generacion = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, active, next)
	if err != nil {
		return fmt.Errorf("failed to update template schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// DeleteTemplate removes a template. Its invoices keep their data and lose
// the template reference.
func (r *Repository) DeleteTemplate(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM recurring_invoice_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// TemplateInvoiceDates returns the issue dates of the template's invoices
// in [from, to].
func (r *Repository) TemplateInvoiceDates(ctx context.Context, userID, templateID string, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT fecha_emision FROM facturas_emitidas
		WHERE user_id = $1 AND template_id = $2 AND fecha_emision BETWEEN $3 AND $4
		ORDER BY fecha_emision
	`, userID, templateID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load template invoice dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan invoice date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// GenerateFromTemplate locks the template row, asks plan what to issue and
// writes the invoices and the template's new state in one transaction.
// Occurrences that already have an invoice are skipped, so concurrent or
// repeated runs never issue the same occurrence twice.
func (r *Repository) GenerateFromTemplate(
	ctx context.Context,
	userID, templateID string,
	plan func(t *model.Template) (*TemplatePlan, error),
) (*GenerationResult, error) {
	res := &GenerationResult{}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		t, err := scanTemplate(tx.QueryRow(ctx,
			templateSelect+` WHERE t.id = $1 AND t.user_id = $2 FOR UPDATE OF t`, templateID, userID))
		if err != nil {
			return notFound(err, ErrTemplateNotFound)
		}

		p, err := plan(t)
		if err != nil {
			return err
		}

		if len(p.Invoices) > 0 {
			if err := lockInvoiceNumbers(ctx, tx, userID); err != nil {
				return err
			}
		}

		var last *time.Time
		for _, inv := range p.Invoices {
			inv.Number, err = nextInvoiceNumber(ctx, tx, userID, inv.IssueDate.Year())
			if err != nil {
				return err
			}
			inserted, err := insertInvoice(ctx, tx, inv, true)
			if err != nil {
				return err
			}
			if !inserted {
				res.Skipped = append(res.Skipped, inv.IssueDate)
				continue
			}
			inv.ClientName = t.ClientName
			res.Created = append(res.Created, inv)
			if last == nil || inv.IssueDate.After(*last) {
				d := inv.IssueDate
				last = &d
			}
		}

		if p.Advance {
			t.Active = p.Active
			t.NextDate = p.Next
		}
		if last != nil && (t.LastDate == nil || last.After(*t.LastDate)) {
			t.LastDate = last
		}
		t.GeneratedCount += len(res.Created)

		_, err = tx.Exec(ctx, `
			UPDATE recurring_invoice_templates
			SET activo = $2, proxima_generacion = $3, ultima_generacion = $4,
				facturas_generadas = $5, updated_at = NOW()
			WHERE id = $1
		`, t.ID, t.Active, t.NextDate, t.LastDate, t.GeneratedCount)
		if err != nil {
			return fmt.Errorf("failed to advance template: %w", err)
		}

		res.Template = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func scanTemplate(row rowScanner) (*model.Template, error) {
	var t model.Template
	err := row.Scan(
		&t.ID, &t.UserID, &t.ClientID, &t.BillingProfileID, &t.Name, &t.Concept, &t.Description,
		&t.Base, &t.IVARate, &t.IRPFRate, &t.Frequency, &t.IntervalDays, &t.DayPolicy,
		&t.Day, &t.StartDate, &t.EndDate, &t.PeriodKind, &t.DueDays,
		&t.Active, &t.NextDate, &t.LastDate, &t.GeneratedCount,
		&t.CreatedAt, &t.UpdatedAt, &t.ClientName,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
