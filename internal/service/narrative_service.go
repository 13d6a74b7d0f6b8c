package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

// NarrativeRequest is the score summary sent to the external commentary
// generator. Derived fields beyond the composite are not included.
type NarrativeRequest struct {
	StudentName     string                 `json:"student_name"`
	Scores          map[models.Subject]int `json:"scores"`
	WeightedAverage float64                `json:"weighted_average"`
}

type narrativeResponse struct {
	Commentary string `json:"commentary"`
}

// NarrativeService calls the external text-generation collaborator. It is
// best-effort enrichment: failures degrade to a fixed message and never
// block the rest of a result view.
type NarrativeService struct {
	baseURL     string
	client      *http.Client
	maxAttempts int
	logger      *zap.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewNarrativeService constructs a narrative client.
func NewNarrativeService(baseURL string, timeout time.Duration, maxAttempts int, logger *zap.Logger) *NarrativeService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NarrativeService{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Enabled reports whether a generator endpoint is configured.
func (s *NarrativeService) Enabled() bool {
	return s != nil && s.baseURL != ""
}

// Commentary requests prose for the score summary, retrying rate-limit and
// server-error responses with exponential backoff plus jitter. All other
// failures are terminal immediately. The caller's context aborts both the
// in-flight request and any pending backoff wait.
func (s *NarrativeService) Commentary(ctx context.Context, req NarrativeRequest) (string, error) {
	if !s.Enabled() {
		return "", appErrors.ErrNarrative
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode narrative request")
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt))*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
			if err := s.sleep(ctx, delay); err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrNarrative.Code, appErrors.ErrNarrative.Status, "commentary request cancelled")
			}
		}

		commentary, retryable, err := s.request(ctx, payload)
		if err == nil {
			return commentary, nil
		}
		if ctx.Err() != nil {
			return "", appErrors.Wrap(ctx.Err(), appErrors.ErrNarrative.Code, appErrors.ErrNarrative.Status, "commentary request cancelled")
		}
		if !retryable {
			return "", appErrors.Wrap(err, appErrors.ErrNarrative.Code, appErrors.ErrNarrative.Status, appErrors.ErrNarrative.Message)
		}
		lastErr = err
		s.logger.Warn("narrative request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return "", appErrors.Wrap(lastErr, appErrors.ErrNarrative.Code, appErrors.ErrNarrative.Status, appErrors.ErrNarrative.Message)
}

func (s *NarrativeService) request(ctx context.Context, payload []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/commentary", bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var decoded narrativeResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return "", false, fmt.Errorf("decode narrative response: %w", err)
		}
		return decoded.Commentary, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return "", true, fmt.Errorf("narrative generator returned %d", resp.StatusCode)
	default:
		return "", false, fmt.Errorf("narrative generator returned %d", resp.StatusCode)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
