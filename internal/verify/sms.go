package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SMSClient calls the SMS one-time-code collaborator.
type SMSClient struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// NewSMSClient creates a client with the configured timeout.
func NewSMSClient(baseURL string, timeout time.Duration, skip bool) *SMSClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMSClient{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Check asks the collaborator whether the submitted code matches the one it
// delivered to the student and reports pass/fail.
func (c *SMSClient) Check(ctx context.Context, studentNumber, code string) (bool, error) {
	if c.Skip {
		return true, nil
	}
	if code == "" {
		return false, fmt.Errorf("verification code required")
	}

	body, _ := json.Marshal(map[string]string{
		"user_id": studentNumber,
		"code":    code,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/check", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("sms service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("sms service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Valid, nil
}
