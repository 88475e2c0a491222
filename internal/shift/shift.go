// Package shift asks a running agent to re-read its shift state through the
// agent's local web server.
package shift

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regdesk/regctl/internal/config"
	"github.com/regdesk/regctl/internal/logging"
)

// Refresher posts shift refresh requests.
type Refresher struct {
	client     *http.Client
	configFile string
	path       string
	log        zerolog.Logger
}

// NewRefresher returns a Refresher that reads configFile from each instance
// directory and posts to path on the agent's web server.
func NewRefresher(configFile, path string, timeout time.Duration, log zerolog.Logger) *Refresher {
	return &Refresher{
		client:     &http.Client{Timeout: timeout},
		configFile: configFile,
		path:       path,
		log:        logging.Component(log, "shift"),
	}
}

// Result describes a completed refresh request.
type Result struct {
	URL    string
	Status int
	Body   string
}

// Refresh posts the refresh request for the instance in instanceDir. A
// non-2xx answer is an error carrying the response.
func (r *Refresher) Refresh(ctx context.Context, instanceDir string) (*Result, error) {
	ic, err := config.ReadInstanceConfig(instanceDir, r.configFile)
	if err != nil {
		return nil, err
	}
	url, err := ic.RefreshURL(r.path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "regctl")

	r.log.Debug().Str("url", url).Msg("requesting shift refresh")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	res := &Result{URL: url, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.log.Warn().Str("url", url).Int("status", resp.StatusCode).Msg("shift refresh rejected")
		return res, &StatusError{Status: resp.StatusCode, Body: res.Body}
	}
	r.log.Info().Str("url", url).Int("status", resp.StatusCode).Msg("shift refreshed")
	return res, nil
}

// StatusError is a non-2xx answer from the agent.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent answered %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("agent answered %d: %s", e.Status, e.Body)
}
