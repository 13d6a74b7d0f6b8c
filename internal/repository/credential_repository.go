package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classmark/classmark-api/internal/models"
)

// CredentialRepository persists student credentials. Credentials live in a
// single shared partition, so no partition scoping appears here.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// ListAll returns every issued credential ordered by student name.
func (r *CredentialRepository) ListAll(ctx context.Context) ([]models.Credential, error) {
	var credentials []models.Credential
	if err := r.db.SelectContext(ctx, &credentials, "SELECT id, name, pin, created_at FROM credentials ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return credentials, nil
}

// FindByName returns the credential for a student name, or sql.ErrNoRows.
func (r *CredentialRepository) FindByName(ctx context.Context, name string) (*models.Credential, error) {
	var credential models.Credential
	if err := r.db.GetContext(ctx, &credential, "SELECT id, name, pin, created_at FROM credentials WHERE name = $1 LIMIT 1", name); err != nil {
		return nil, err
	}
	return &credential, nil
}

// PinExists reports whether any credential already carries the pin.
func (r *CredentialRepository) PinExists(ctx context.Context, pin string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM credentials WHERE pin = $1", pin); err != nil {
		return false, fmt.Errorf("check pin: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new credential record.
func (r *CredentialRepository) Create(ctx context.Context, credential *models.Credential) error {
	if credential.ID == "" {
		credential.ID = uuid.NewString()
	}
	credential.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO credentials (id, name, pin, created_at) VALUES (:id, :name, :pin, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, credential); err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}
