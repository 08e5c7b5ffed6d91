// Package verify holds the thin HTTP clients for the two external
// verification collaborators. The core never implements recognition or OTP
// logic itself; it signals these services and waits for a pass/fail answer.
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

// FaceClient calls the face recognition microservice.
type FaceClient struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// NewFaceClient creates a client with the configured timeout. With skip set
// every check passes, which keeps development environments usable without the
// recognition stack running.
func NewFaceClient(baseURL string, timeout time.Duration, skip bool) *FaceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FaceClient{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Enroll registers a reference photo for the student. The recognition service
// extracts and stores the encoding; it rejects photos with no face or with
// more than one, which surfaces here as an error.
func (c *FaceClient) Enroll(ctx context.Context, studentNumber, imageURL string) error {
	if c.Skip {
		return nil
	}
	if imageURL == "" {
		return fmt.Errorf("image url required")
	}

	body, _ := json.Marshal(map[string]string{
		"user_id":   studentNumber,
		"image_url": imageURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/enroll", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// Verify runs a 1:1 match of the submitted capture against the student's
// enrolled face and reports whether it passed.
func (c *FaceClient) Verify(ctx context.Context, studentNumber, imageURL string) (bool, error) {
	if c.Skip {
		return true, nil
	}
	if imageURL == "" {
		return false, fmt.Errorf("image url required")
	}

	body, _ := json.Marshal(map[string]string{
		"user_id":   studentNumber,
		"image_url": imageURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Verified   bool    `json:"verified"`
		Similarity float64 `json:"similarity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Verified, nil
}
