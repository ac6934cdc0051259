package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var (
	ErrBillingProfileNotFound = errors.New("billing profile not found")
	ErrActiveProfileInUse     = errors.New("the active billing profile cannot be deleted while others exist")
)

const billingProfileColumns = `id, user_id, razon_social, nif, direccion, codigo_postal, ciudad,
	provincia, pais, iban, email, telefono, activo, created_at, updated_at`

// CreateBillingProfile inserts a profile. The user's first profile becomes
// active; p.Active reflects the stored value afterwards.
func (r *Repository) CreateBillingProfile(ctx context.Context, p *model.BillingProfile) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 1))`, p.UserID); err != nil {
			return fmt.Errorf("lock billing profiles: %w", err)
		}

		var hasActive bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM datos_facturacion WHERE user_id = $1 AND activo)`, p.UserID,
		).Scan(&hasActive); err != nil {
			return fmt.Errorf("check active profile: %w", err)
		}
		p.Active = !hasActive

		_, err := tx.Exec(ctx, `
			INSERT INTO datos_facturacion (id, user_id, razon_social, nif, direccion, codigo_postal, ciudad,
				provincia, pais, iban, email, telefono, activo, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			p.ID, p.UserID, p.Name, p.NIF, p.Address, p.PostalCode, p.City,
			p.Province, p.Country, p.IBAN, p.Email, p.Phone, p.Active, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create billing profile: %w", err)
		}
		return nil
	})
}

// GetBillingProfile retrieves one of the user's profiles.
func (r *Repository) GetBillingProfile(ctx context.Context, userID, id string) (*model.BillingProfile, error) {
	query := `SELECT ` + billingProfileColumns + ` FROM datos_facturacion WHERE id = $1 AND user_id = $2`
	p, err := scanBillingProfile(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, ErrBillingProfileNotFound)
	}
	return p, nil
}

// GetActiveBillingProfile returns ErrBillingProfileNotFound when none is active.
func (r *Repository) GetActiveBillingProfile(ctx context.Context, userID string) (*model.BillingProfile, error) {
	query := `SELECT ` + billingProfileColumns + ` FROM datos_facturacion WHERE user_id = $1 AND activo`
	p, err := scanBillingProfile(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, ErrBillingProfileNotFound)
	}
	return p, nil
}

// ListBillingProfiles returns every profile, active first.
func (r *Repository) ListBillingProfiles(ctx context.Context, userID string) ([]*model.BillingProfile, error) {
	query := `SELECT ` + billingProfileColumns + ` FROM datos_facturacion
		WHERE user_id = $1 ORDER BY activo DESC, created_at, id`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing profiles: %w", err)
	}
	return collect(rows, scanBillingProfile)
}

// UpdateBillingProfile overwrites the descriptive fields. Activation goes
// through ActivateBillingProfile.
func (r *Repository) UpdateBillingProfile(ctx context.Context, p *model.BillingProfile) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE datos_facturacion SET razon_social = $3, nif = $4, direccion = $5, codigo_postal = $6,
			ciudad = $7, provincia = $8, pais = $9, iban = $10, email = $11, telefono = $12, updated_at = $13
		WHERE id = $1 AND user_id = $2
	`,
		p.ID, p.UserID, p.Name, p.NIF, p.Address, p.PostalCode,
		p.City, p.Province, p.Country, p.IBAN, p.Email, p.Phone, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update billing profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBillingProfileNotFound
	}
	return nil
}

// ActivateBillingProfile makes id the only active profile of the user.
func (r *Repository) ActivateBillingProfile(ctx context.Context, userID, id string) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM datos_facturacion WHERE id = $1 AND user_id = $2)`, id, userID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check billing profile: %w", err)
		}
		if !exists {
			return ErrBillingProfileNotFound
		}

		// Deactivate first so the partial unique index never sees two.
		if _, err := tx.Exec(ctx, `
			UPDATE datos_facturacion SET activo = FALSE, updated_at = NOW()
			WHERE user_id = $1 AND activo AND id <> $2
		`, userID, id); err != nil {
			return fmt.Errorf("deactivate billing profiles: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE datos_facturacion SET activo = TRUE, updated_at = NOW() WHERE id = $1
		`, id); err != nil {
			return fmt.Errorf("activate billing profile: %w", err)
		}
		return nil
	})
}

// DeleteBillingProfile removes a profile. The active one can only go when
// it is the last.
func (r *Repository) DeleteBillingProfile(ctx context.Context, userID, id string) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var active bool
		err := tx.QueryRow(ctx,
			`SELECT activo FROM datos_facturacion WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID,
		).Scan(&active)
		if err != nil {
			return notFound(err, ErrBillingProfileNotFound)
		}

		if active {
			var others int
			if err := tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM datos_facturacion WHERE user_id = $1 AND id <> $2`, userID, id,
			).Scan(&others); err != nil {
				return fmt.Errorf("count billing profiles: %w", err)
			}
			if others > 0 {
				return ErrActiveProfileInUse
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM datos_facturacion WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete billing profile: %w", err)
		}
		return nil
	})
}

func scanBillingProfile(row rowScanner) (*model.BillingProfile, error) {
	var p model.BillingProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.NIF, &p.Address, &p.PostalCode, &p.City,
		&p.Province, &p.Country, &p.IBAN, &p.Email, &p.Phone, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
