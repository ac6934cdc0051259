package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

var (
	ErrBillingProfileNotFound = repository.ErrBillingProfileNotFound
	ErrActiveProfileInUse     = repository.ErrActiveProfileInUse
)

// BillingProfileService manages the issuer data printed on invoices.
type BillingProfileService struct {
	store  BillingProfileStore
	logger *slog.Logger
}

// NewBillingProfileService creates a BillingProfileService.
func NewBillingProfileService(store BillingProfileStore, logger *slog.Logger) *BillingProfileService {
	return &BillingProfileService{store: store, logger: defaultLogger(logger, "billing_profiles")}
}

// BillingProfileInput is the editable part of a profile.
type BillingProfileInput struct {
	Name       string
	NIF        string
	Address    string
	PostalCode string
	City       string
	Province   string
	Country    string
	IBAN       string
	Email      string
	Phone      string
}

func (in BillingProfileInput) apply(p *model.BillingProfile) {
	p.Name = strings.TrimSpace(in.Name)
	p.NIF = in.NIF
	p.Address = strings.TrimSpace(in.Address)
	p.PostalCode = strings.TrimSpace(in.PostalCode)
	p.City = strings.TrimSpace(in.City)
	p.Province = strings.TrimSpace(in.Province)
	p.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	p.IBAN = in.IBAN
	p.Email = strings.TrimSpace(in.Email)
	p.Phone = strings.TrimSpace(in.Phone)
	p.Normalize()
}

func validateBillingProfile(p *model.BillingProfile) error {
	fe := fieldErrors{}
	if p.Name == "" {
		fe.add("razon_social", "is required")
	}
	if err := model.ValidateNIF(p.NIF); err != nil {
		fe.add("nif", err.Error())
	}
	if p.Address == "" {
		fe.add("direccion", "is required")
	}
	if p.IBAN != "" && !model.ValidateIBAN(p.IBAN) {
		fe.add("iban", "invalid IBAN")
	}
	return fe.err()
}

// Create adds a profile. The user's first profile is activated.
func (s *BillingProfileService) Create(ctx context.Context, userID string, input BillingProfileInput) (*model.BillingProfile, error) {
	ts := now()
	p := &model.BillingProfile{ID: generateID(), UserID: userID, CreatedAt: ts, UpdatedAt: ts}
	input.apply(p)
	if err := validateBillingProfile(p); err != nil {
		return nil, err
	}

	if err := s.store.CreateBillingProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create billing profile: %w", err)
	}

	s.logger.Info("billing_profile_created", "user_id", userID, "profile_id", p.ID, "active", p.Active)
	return p, nil
}

// Get returns one of the user's profiles.
func (s *BillingProfileService) Get(ctx context.Context, userID, id string) (*model.BillingProfile, error) {
	return s.store.GetBillingProfile(ctx, userID, id)
}

// Active returns the profile used for new invoices.
func (s *BillingProfileService) Active(ctx context.Context, userID string) (*model.BillingProfile, error) {
	return s.store.GetActiveBillingProfile(ctx, userID)
}

// List returns every profile of the user.
func (s *BillingProfileService) List(ctx context.Context, userID string) ([]*model.BillingProfile, error) {
	return s.store.ListBillingProfiles(ctx, userID)
}

// Update replaces the editable fields of a profile.
func (s *BillingProfileService) Update(ctx context.Context, userID, id string, input BillingProfileInput) (*model.BillingProfile, error) {
	p, err := s.store.GetBillingProfile(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	input.apply(p)
	if err := validateBillingProfile(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = now()

	if err := s.store.UpdateBillingProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Activate makes id the user's only active profile.
func (s *BillingProfileService) Activate(ctx context.Context, userID, id string) (*model.BillingProfile, error) {
	if err := s.store.ActivateBillingProfile(ctx, userID, id); err != nil {
		return nil, err
	}
	s.logger.Info("billing_profile_activated", "user_id", userID, "profile_id", id)
	return s.store.GetBillingProfile(ctx, userID, id)
}

// Delete removes a profile. The active profile goes only when it is the last.
func (s *BillingProfileService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteBillingProfile(ctx, userID, id)
}
