package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

var (
	ErrClientNotFound  = repository.ErrClientNotFound
	ErrClientNIFExists = repository.ErrClientNIFExists
	ErrClientInUse     = repository.ErrClientInUse
)

// ClientService manages the customers invoices are issued to. Tax reports
// carry client names and NIFs, so edits bump the user's data version.
type ClientService struct {
	store    ClientStore
	versions DataVersioner
	logger   *slog.Logger
}

// NewClientService creates a ClientService.
func NewClientService(store ClientStore, versions DataVersioner, logger *slog.Logger) *ClientService {
	return &ClientService{store: store, versions: versions, logger: defaultLogger(logger, "clients")}
}

// ClientInput is the editable part of a client.
type ClientInput struct {
	Name           string
	NIF            string
	Email          string
	Phone          string
	Address        string
	PostalCode     string
	City           string
	Province       string
	Country        string
	Intracommunity bool
}

func (in ClientInput) apply(c *model.Client) {
	c.Name = strings.TrimSpace(in.Name)
	c.NIF = in.NIF
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
	c.PostalCode = strings.TrimSpace(in.PostalCode)
	c.City = strings.TrimSpace(in.City)
	c.Province = strings.TrimSpace(in.Province)
	c.Country = in.Country
	c.Intracommunity = in.Intracommunity
	c.Normalize()
}

func validateClient(c *model.Client) error {
	fe := fieldErrors{}
	if c.Name == "" {
		fe.add("razon_social", "is required")
	}
	if c.NIF == "" {
		fe.add("nif", "is required")
	} else if err := c.Validate(); err != nil {
		fe.add("nif", err.Error())
	}
	if len(c.Country) != 2 {
		fe.add("pais", "must be an ISO 3166 alpha-2 code")
	}
	return fe.err()
}

// Create adds an active client.
func (s *ClientService) Create(ctx context.Context, userID string, input ClientInput) (*model.Client, error) {
	ts := now()
	c := &model.Client{ID: generateID(), UserID: userID, Active: true, CreatedAt: ts, UpdatedAt: ts}
	input.apply(c)
	if err := validateClient(c); err != nil {
		return nil, err
	}

	if err := s.store.CreateClient(ctx, c); err != nil {
		if errors.Is(err, repository.ErrClientNIFExists) {
			return nil, ErrClientNIFExists
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.logger.Info("client_created", "user_id", userID, "client_id", c.ID)
	return c, nil
}

// Get returns one of the user's clients.
func (s *ClientService) Get(ctx context.Context, userID, id string) (*model.Client, error) {
	return s.store.GetClient(ctx, userID, id)
}

// ListClientsInput defines input for List.
type ListClientsInput struct {
	Search string
	Active *bool
	Cursor string
	Limit  int
}

// List pages through clients ordered by name.
func (s *ClientService) List(ctx context.Context, userID string, input ListClientsInput) (*Page[model.Client], error) {
	filter := repository.ClientFilter{UserID: userID, Search: strings.TrimSpace(input.Search), Active: input.Active}
	clients, next, err := s.store.ListClients(ctx, filter, repository.Page{Cursor: input.Cursor, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return newPage(clients, next), nil
}

// Update replaces the editable fields of a client.
func (s *ClientService) Update(ctx context.Context, userID, id string, input ClientInput) (*model.Client, error) {
	c, err := s.store.GetClient(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	input.apply(c)
	if err := validateClient(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = now()

	if err := s.store.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("client_updated", "user_id", userID, "client_id", id)
	return c, nil
}

// SetActive activates or deactivates a client. Inactive clients keep
// their invoices.
func (s *ClientService) SetActive(ctx context.Context, userID, id string, active bool) (*model.Client, error) {
	if err := s.store.SetClientActive(ctx, userID, id, active); err != nil {
		return nil, err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("client_active_changed", "user_id", userID, "client_id", id, "active", active)
	return s.store.GetClient(ctx, userID, id)
}

// Delete removes a client that no invoice or template references.
func (s *ClientService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteClient(ctx, userID, id); err != nil {
		return err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("client_deleted", "user_id", userID, "client_id", id)
	return nil
}
