// Package forecast talks to a non-authoritative fault-risk forecasting
// sidecar. It never influences a scheduling decision: the RNG seam in
// internal/fault is the sole source of fault nondeterminism. A forecast
// call result is advisory telemetry only, fail-open on any error.
package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	BaseURL    string
	HttpClient *http.Client
}

// Request carries recent per-core fault-history features for one core.
type Request struct {
	CoreID   int                    `json:"core_id"`
	Features map[string]interface{} `json:"features"`
}

// RiskResponse is the sidecar's best-effort risk estimate for a core.
type RiskResponse struct {
	CoreID     int     `json:"core_id"`
	RiskScore  float64 `json:"risk_score"`
	Confidence float64 `json:"confidence"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HttpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// ForecastCoreRisk asks the sidecar to estimate a core's near-term fault
// risk from recent history features. The result is logged and exposed as
// a metric; it must never gate or alter a scheduling decision.
func (c *Client) ForecastCoreRisk(coreID int, features map[string]interface{}) (*RiskResponse, error) {
	reqBody := Request{
		CoreID:   coreID,
		Features: features,
	}

	jsonValue, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.HttpClient.Post(fmt.Sprintf("%s/forecast/core-risk", c.BaseURL), "application/json", bytes.NewBuffer(jsonValue))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned status: %d", resp.StatusCode)
	}

	var risk RiskResponse
	if err := json.NewDecoder(resp.Body).Decode(&risk); err != nil {
		return nil, err
	}

	return &risk, nil
}
