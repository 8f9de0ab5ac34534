package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPSinkConfig describes the remote insert endpoint.
type HTTPSinkConfig struct {
	BaseURL  string        // "/insert" is appended
	User     string        // basic auth, skipped when empty
	Password string
	Timeout  time.Duration // per request
}

// HTTPSink posts metrics as a form to <base>/insert, one request per value.
type HTTPSink struct {
	endpoint string
	user     string
	password string
	client   *http.Client
}

func NewHTTPSink(cfg HTTPSinkConfig) *HTTPSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPSink{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/insert",
		user:     cfg.User,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
	}
}

// Record sends table_name=<name>&param_value=<value>. Any non-2xx status is
// an error.
func (s *HTTPSink) Record(ctx context.Context, name, value string) error {
	form := url.Values{}
	form.Set("table_name", name)
	form.Set("param_value", value)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.user != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("insert %s: unexpected status %s", name, resp.Status)
	}
	return nil
}
