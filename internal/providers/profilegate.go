package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
)

// ProfileClient is the HTTP client for the platform's profile service.
type ProfileClient struct {
	baseURL string
	httpc   *http.Client
	log     logging.Logger
}

func NewProfileClient(baseURL string, httpc *http.Client, log logging.Logger) *ProfileClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &ProfileClient{baseURL: baseURL, httpc: httpc, log: log}
}

// FetchProfileStatus asks the profile service whether a completed profile
// exists for the principal. Transport and server failures are wrapped in
// common.ErrProfileUnreachable so callers can degrade instead of blocking
// sign-in.
func (p *ProfileClient) FetchProfileStatus(ctx context.Context, req ProfileStatusRequest) (*ProfileStatus, error) {
	payload, err := json.Marshal(map[string]string{
		"user_id": req.UserID,
		"email":   req.Email,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/profiles/status", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)

	resp, err := p.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrProfileUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", common.ErrProfileUnreachable, resp.StatusCode)
	}

	var status ProfileStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrProfileUnreachable, err)
	}
	return &status, nil
}
