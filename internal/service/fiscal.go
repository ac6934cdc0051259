package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

// FiscalService keeps the user's tax situation.
type FiscalService struct {
	store    FiscalStore
	versions DataVersioner
	logger   *slog.Logger
}

// NewFiscalService creates a FiscalService.
func NewFiscalService(store FiscalStore, versions DataVersioner, logger *slog.Logger) *FiscalService {
	return &FiscalService{store: store, versions: versions, logger: defaultLogger(logger, "fiscal")}
}

// Get returns the stored preferences, or the defaults when none were saved.
func (s *FiscalService) Get(ctx context.Context, userID string) (*model.FiscalPreferences, error) {
	return loadPreferences(ctx, s.store, userID)
}

// FiscalInput replaces the preferences.
type FiscalInput struct {
	TaxpayerKind      model.TaxpayerKind
	IRPFMethod        model.IRPFMethod
	IVARegime         model.IVARegime
	HasRentedPremises bool
	HasEmployees      bool
	EmployeeCount     int
	IntracommunityOps bool
	ModulesYield      decimal.Decimal
	ModelosOverride   []string
}

// Update validates and stores the preferences.
func (s *FiscalService) Update(ctx context.Context, userID string, input FiscalInput) (*model.FiscalPreferences, error) {
	p := model.DefaultFiscalPreferences(userID)
	if input.TaxpayerKind != "" {
		p.TaxpayerKind = input.TaxpayerKind
	}
	if input.IRPFMethod != "" {
		p.IRPFMethod = input.IRPFMethod
	}
	if input.IVARegime != "" {
		p.IVARegime = input.IVARegime
	}
	p.HasRentedPremises = input.HasRentedPremises
	p.HasEmployees = input.HasEmployees || input.EmployeeCount > 0
	p.EmployeeCount = input.EmployeeCount
	p.IntracommunityOps = input.IntracommunityOps
	p.ModulesYield = input.ModulesYield
	p.ModelosOverride = input.ModelosOverride
	p.UpdatedAt = now()

	if !p.Valid() {
		return nil, fiscalFieldErrors(p)
	}

	if err := s.store.UpsertFiscalPreferences(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save fiscal preferences: %w", err)
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("fiscal_preferences_updated", "user_id", userID, "modelos", p.RequiredModelos())
	return p, nil
}

// RequiredModelos lists the forms the user must file.
func (s *FiscalService) RequiredModelos(ctx context.Context, userID string) ([]string, error) {
	p, err := loadPreferences(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return p.RequiredModelos(), nil
}

func fiscalFieldErrors(p *model.FiscalPreferences) error {
	fe := fieldErrors{}
	switch p.TaxpayerKind {
	case model.TaxpayerSelfEmployed, model.TaxpayerCompany:
	default:
		fe.add("tipo_contribuyente", "must be AUTONOMO or SOCIEDAD")
	}
	switch p.IRPFMethod {
	case model.IRPFDirectSimplified, model.IRPFDirectNormal, model.IRPFObjective:
	default:
		fe.add("metodo_irpf", "unknown estimation method")
	}
	switch p.IVARegime {
	case model.IVAGeneral, model.IVASurcharge, model.IVAExempt:
	default:
		fe.add("regimen_iva", "unknown IVA regime")
	}
	if p.EmployeeCount < 0 {
		fe.add("numero_empleados", "must not be negative")
	}
	if p.ModulesYield.IsNegative() {
		fe.add("rendimiento_modulos", "must not be negative")
	}
	for _, m := range p.ModelosOverride {
		if !slices.Contains(model.KnownModelos, m) {
			fe.add("modelos", fmt.Sprintf("unknown modelo %q", m))
		}
	}
	if len(fe) == 0 {
		fe.add("preferencias", "invalid fiscal preferences")
	}
	return fe.err()
}

type preferencesReader interface {
	GetFiscalPreferences(ctx context.Context, userID string) (*model.FiscalPreferences, error)
}

func loadPreferences(ctx context.Context, store preferencesReader, userID string) (*model.FiscalPreferences, error) {
	p, err := store.GetFiscalPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrFiscalPreferencesNotFound) {
			return model.DefaultFiscalPreferences(userID), nil
		}
		return nil, err
	}
	return p, nil
}
