package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/classmark/classmark-api/pkg/jobs"
)

// JobIssueCredential retries a pin issuance that failed during a grade write.
const JobIssueCredential = "issue_credential"

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CredentialRepairHandler returns a job handler that re-runs pin issuance
// for a student name. The payload is the student name.
func CredentialRepairHandler(credentials *CredentialService, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		name, ok := job.Payload.(string)
		if !ok || name == "" {
			logger.Warn("credential repair job with bad payload", zap.String("job_id", job.ID))
			return nil
		}
		_, issued, err := credentials.IssueIfAbsent(ctx, name)
		if err != nil {
			return fmt.Errorf("issue credential for %s: %w", name, err)
		}
		if issued {
			logger.Info("credential issued by repair job", zap.String("student", name))
		}
		return nil
	}
}
