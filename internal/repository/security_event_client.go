package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"

	"github.com/biatec-io/gdrive-account/internal/service"
)

const riscBaseURL = "https://risc.googleapis.com/v1beta"

type securityEventClient struct {
	client  *req.Client
	baseURL string
}

// NewSecurityEventReporter delivers RISC security events to Google's
// Cross-Account Protection API.
func NewSecurityEventReporter() service.SecurityEventReporter {
	return &securityEventClient{
		client:  req.C().SetTimeout(15 * time.Second),
		baseURL: riscBaseURL,
	}
}

func (c *securityEventClient) Report(ctx context.Context, accessToken string, event service.SecurityEvent) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		SetBody(event).
		Post(c.baseURL + "/securityEvents")
	if err != nil {
		return fmt.Errorf("security event request failed: %w", err)
	}
	if !resp.IsSuccessState() {
		return fmt.Errorf("security event report status %d: %s", resp.StatusCode, resp.String())
	}
	return nil
}
