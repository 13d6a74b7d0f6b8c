package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"

	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	syncpkg "github.com/classmark/classmark-api/internal/sync"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

// SharedCredentialPartition is the partition every credential lives in;
// credentials are readable across sessions so students can sign in.
const SharedCredentialPartition = "shared"

// pinIssueAttempts bounds the regenerate-on-collision loop. If every
// attempt collides the last pin is accepted; login then resolves by name
// first, so a cross-student pin collision stays unambiguous.
const pinIssueAttempts = 5

type credentialStore interface {
	ListAll(ctx context.Context) ([]models.Credential, error)
	FindByName(ctx context.Context, name string) (*models.Credential, error)
	PinExists(ctx context.Context, pin string) (bool, error)
	Create(ctx context.Context, credential *models.Credential) error
}

type changePublisher interface {
	Publish(ctx context.Context, collection, partitionID string)
}

type credentialMirror interface {
	Snapshot() ([]models.Credential, uint64)
}

// CredentialService manages the student name → pin registry: idempotent
// issuance and exact-match authentication.
type CredentialService struct {
	store    credentialStore
	mirror   credentialMirror
	notifier changePublisher
	logger   *zap.Logger
}

// NewCredentialService constructs a credential service. The mirror is
// optional; with one, logins read the in-memory snapshot and only fall
// back to the store for names issued since the last reload.
func NewCredentialService(store credentialStore, mirror credentialMirror, notifier changePublisher, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{store: store, mirror: mirror, notifier: notifier, logger: logger}
}

// IssueIfAbsent returns the existing pin for the name, or generates and
// persists a new 6-digit pin when the name has never been seen. The second
// return reports whether a new credential was created.
func (s *CredentialService) IssueIfAbsent(ctx context.Context, studentName string) (string, bool, error) {
	existing, err := s.store.FindByName(ctx, studentName)
	if err == nil {
		return existing.Pin, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up credential")
	}

	pin, err := s.generatePin(ctx)
	if err != nil {
		return "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate pin")
	}

	credential := &models.Credential{Name: studentName, Pin: pin}
	if err := s.store.Create(ctx, credential); err != nil {
		return "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist credential")
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, syncpkg.CollectionCredentials, SharedCredentialPartition)
	}
	s.logger.Info("credential issued", zap.String("student", studentName))
	return pin, true, nil
}

// Authenticate checks the exact (name, pin) pair against the registry.
func (s *CredentialService) Authenticate(ctx context.Context, name, pin string) (bool, error) {
	if s.mirror != nil {
		snapshot, _ := s.mirror.Snapshot()
		for _, credential := range snapshot {
			if credential.Name == name {
				return credential.Pin == pin, nil
			}
		}
	}

	credential, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up credential")
	}
	return credential.Pin == pin, nil
}

// List returns every issued credential for the teacher's roster export.
func (s *CredentialService) List(ctx context.Context) ([]models.Credential, error) {
	credentials, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list credentials")
	}
	return credentials, nil
}

// generatePin draws a uniform 6-digit pin, retrying a bounded number of
// times when the draw collides with an already issued pin.
func (s *CredentialService) generatePin(ctx context.Context) (string, error) {
	var pin string
	for attempt := 0; attempt < pinIssueAttempts; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(900000))
		if err != nil {
			return "", err
		}
		pin = big.NewInt(0).Add(n, big.NewInt(100000)).String()

		taken, err := s.store.PinExists(ctx, pin)
		if err != nil {
			return "", err
		}
		if !taken {
			return pin, nil
		}
	}
	s.logger.Warn("pin collision retries exhausted, accepting duplicate pin")
	return pin, nil
}
