package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrClientNIFExists = errors.New("a client with this NIF already exists")
	ErrClientInUse     = errors.New("client is referenced by invoices or templates")
)

// ClientFilter narrows ListClients. Search matches name or NIF.
type ClientFilter struct {
	UserID string
	Search string
	Active *bool
}

const clientColumns = `id, user_id, razon_social, nif, email, telefono, direccion, codigo_postal,
	ciudad, provincia, pais, intracomunitario, activo, created_at, updated_at`

// CreateClient inserts a client.
func (r *Repository) CreateClient(ctx context.Context, c *model.Client) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clientes (id, user_id, razon_social, nif, email, telefono, direccion, codigo_postal,
			ciudad, provincia, pais, intracomunitario, activo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		c.ID, c.UserID, c.Name, c.NIF, c.Email, c.Phone, c.Address, c.PostalCode,
		c.City, c.Province, c.Country, c.Intracommunity, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "clientes_user_nif_key") {
			return ErrClientNIFExists
		}
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetClient retrieves one of the user's clients.
func (r *Repository) GetClient(ctx context.Context, userID, id string) (*model.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clientes WHERE id = $1 AND user_id = $2`
	c, err := scanClient(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}
	return c, nil
}

// ListClients pages through clients ordered by name.
func (r *Repository) ListClients(ctx context.Context, filter ClientFilter, page Page) ([]*model.Client, string, error) {
	cur, err := decodeCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := page.limit()

	var args argList
	query := `SELECT ` + clientColumns + ` FROM clientes WHERE user_id = ` + args.add(filter.UserID)

	if s := strings.TrimSpace(filter.Search); s != "" {
		p := args.add("%" + escapeLike(s) + "%")
		query += ` AND (razon_social ILIKE ` + p + ` OR nif ILIKE ` + p + `)`
	}
	if filter.Active != nil {
		query += ` AND activo = ` + args.add(*filter.Active)
	}
	if cur != nil {
		query += ` AND (razon_social, id) > (` + args.add(cur.Key) + `, ` + args.add(cur.ID) + `)`
	}
	query += ` ORDER BY razon_social, id LIMIT ` + args.add(limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list clients: %w", err)
	}
	clients, err := collect(rows, scanClient)
	if err != nil {
		return nil, "", err
	}

	clients, next := trimPage(clients, limit, func(c *model.Client) cursor {
		return cursor{ID: c.ID, Key: c.Name}
	})
	return clients, next, nil
}

// UpdateClient overwrites the mutable fields.
func (r *Repository) UpdateClient(ctx context.Context, c *model.Client) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE clientes SET razon_social = $3, nif = $4, email = $5, telefono = $6, direccion = $7,
			codigo_postal = $8, ciudad = $9, provincia = $10, pais = $11, intracomunitario = $12,
			activo = $13, updated_at = $14
		WHERE id = $1 AND user_id = $2
	`,
		c.ID, c.UserID, c.Name, c.NIF, c.Email, c.Phone, c.Address,
		c.PostalCode, c.City, c.Province, c.Country, c.Intracommunity,
		c.Active, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "clientes_user_nif_key") {
			return ErrClientNIFExists
		}
		return fmt.Errorf("failed to update client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

// SetClientActive toggles the active flag.
func (r *Repository) SetClientActive(ctx context.Context, userID, id string, active bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE clientes SET activo = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2
	`, id, userID, active)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

// DeleteClient removes a client no invoice or template references.
func (r *Repository) DeleteClient(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM clientes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return ErrClientInUse
		}
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func scanClient(row rowScanner) (*model.Client, error) {
	var c model.Client
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.NIF, &c.Email, &c.Phone, &c.Address, &c.PostalCode,
		&c.City, &c.Province, &c.Country, &c.Intracommunity, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
