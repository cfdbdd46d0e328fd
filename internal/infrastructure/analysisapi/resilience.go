package analysisapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
	"github.com/anfastech/slaq-analysis/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx rejection from the analysis service, carrying
// the status code and a truncated response body.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "analysis api status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("analysis %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("analysis %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// classifyAnalysisError implements the retry taxonomy: connect failures,
// request timeouts and 503 are retryable; every other HTTP rejection is
// permanent at this layer. Caller cancellation is never retried.
func classifyAnalysisError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	// A per-request timeout surfaces as a net.Error that also matches
	// context.DeadlineExceeded, so the timeout check must come before the
	// deadline one. Caller-level deadlines stop the retry loop anyway.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusServiceUnavailable {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}

	class := classifyAnalysisError(err)
	if class.Retryable || errors.Is(err, resilience.ErrRetriesExhausted) || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
