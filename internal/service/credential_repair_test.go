package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/pkg/jobs"
)

func TestCredentialRepairHandlerIssues(t *testing.T) {
	store := newMockCredentialStore()
	svc := NewCredentialService(store, nil, &mockPublisher{}, zap.NewNop())
	handler := CredentialRepairHandler(svc, zap.NewNop())

	err := handler(context.Background(), jobs.Job{ID: "j1", Type: JobIssueCredential, Payload: "Chen"})
	require.NoError(t, err)
	assert.Len(t, store.created, 1)

	// Already issued: the retry is a no-op, not a second credential.
	err = handler(context.Background(), jobs.Job{ID: "j2", Type: JobIssueCredential, Payload: "Chen"})
	require.NoError(t, err)
	assert.Len(t, store.created, 1)
}

func TestCredentialRepairHandlerBadPayload(t *testing.T) {
	svc := NewCredentialService(newMockCredentialStore(), nil, &mockPublisher{}, zap.NewNop())
	handler := CredentialRepairHandler(svc, zap.NewNop())

	// Malformed jobs are dropped rather than requeued forever.
	err := handler(context.Background(), jobs.Job{ID: "j1", Type: JobIssueCredential, Payload: 42})
	require.NoError(t, err)
}
