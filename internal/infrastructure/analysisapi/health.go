package analysisapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
)

// CheckHealth probes the service's health endpoint. It reports rather than
// propagates failures; monitoring treats any error as unhealthy.
func (c *Client) CheckHealth(ctx context.Context) domain.ServiceHealth {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return domain.ServiceHealth{Message: fmt.Sprintf("build health request: %v", err)}
	}

	start := time.Now()
	resp, err := c.healthClient.Do(req)
	if err != nil {
		return domain.ServiceHealth{Message: fmt.Sprintf("failed to reach analysis api: %v", err)}
	}
	defer resp.Body.Close()

	latency := roundSeconds(time.Since(start))
	if resp.StatusCode != http.StatusOK {
		return domain.ServiceHealth{
			StatusCode:   resp.StatusCode,
			Message:      fmt.Sprintf("analysis api returned status %d", resp.StatusCode),
			ResponseTime: latency,
		}
	}

	return domain.ServiceHealth{
		Healthy:      true,
		StatusCode:   resp.StatusCode,
		Message:      "analysis api is healthy and accessible",
		ResponseTime: latency,
	}
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
