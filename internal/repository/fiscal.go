package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var ErrFiscalPreferencesNotFound = errors.New("fiscal preferences not set")

// GetFiscalPreferences returns ErrFiscalPreferencesNotFound until the user
// saves them once.
func (r *Repository) GetFiscalPreferences(ctx context.Context, userID string) (*model.FiscalPreferences, error) {
	var p model.FiscalPreferences
	var override []string

	err := r.pool.QueryRow(ctx, `
		SELECT user_id, tipo_contribuyente, metodo_irpf, regimen_iva, tiene_local_alquilado,
			tiene_empleados, numero_empleados, operaciones_intracomunitarias, rendimiento_modulos,
			modelos_override, updated_at
		FROM preferencias_fiscales WHERE user_id = $1
	`, userID).Scan(
		&p.UserID, &p.TaxpayerKind, &p.IRPFMethod, &p.IVARegime, &p.HasRentedPremises,
		&p.HasEmployees, &p.EmployeeCount, &p.IntracommunityOps, &p.ModulesYield,
		pq.Array(&override), &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, ErrFiscalPreferencesNotFound)
	}
	p.ModelosOverride = override
	return &p, nil
}

// UpsertFiscalPreferences stores p, replacing any previous row.
func (r *Repository) UpsertFiscalPreferences(ctx context.Context, p *model.FiscalPreferences) error {
	override := p.ModelosOverride
	if override == nil {
		override = []string{}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO preferencias_fiscales (user_id, tipo_contribuyente, metodo_irpf, regimen_iva,
			tiene_local_alquilado, tiene_empleados, numero_empleados, operaciones_intracomunitarias,
			rendimiento_modulos, modelos_override, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			tipo_contribuyente = EXCLUDED.tipo_contribuyente,
			metodo_irpf = EXCLUDED.metodo_irpf,
			regimen_iva = EXCLUDED.regimen_iva,
			tiene_local_alquilado = EXCLUDED.tiene_local_alquilado,
			tiene_empleados = EXCLUDED.tiene_empleados,
			numero_empleados = EXCLUDED.numero_empleados,
			operaciones_intracomunitarias = EXCLUDED.operaciones_intracomunitarias,
			rendimiento_modulos = EXCLUDED.rendimiento_modulos,
			modelos_override = EXCLUDED.modelos_override,
			updated_at = EXCLUDED.updated_at
	`,
		p.UserID, p.TaxpayerKind, p.IRPFMethod, p.IVARegime,
		p.HasRentedPremises, p.HasEmployees, p.EmployeeCount, p.IntracommunityOps,
		p.ModulesYield, pq.Array(override), p.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("fiscal preferences rejected by database: %w", err)
		}
		return fmt.Errorf("failed to save fiscal preferences: %w", err)
	}
	return nil
}
