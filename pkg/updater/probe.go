package updater

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultCheckURL answers 204 with an empty body, which keeps the probe
	// cheap on metered connections.
	DefaultCheckURL     = "http://clients3.google.com/generate_204"
	defaultProbeTimeout = 3 * time.Second
)

// Probe tests internet reachability. It is purely advisory: any transport
// failure, timeout or unexpected status reads as offline and is never
// surfaced as an error.
type Probe struct {
	url    string
	client *http.Client
}

func NewProbe(checkURL string, timeout time.Duration) *Probe {
	if checkURL == "" {
		checkURL = DefaultCheckURL
	}
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}
	return &Probe{
		url:    checkURL,
		client: &http.Client{Timeout: timeout},
	}
}

// IsOnline reports whether the check endpoint returned its expected 204.
func (p *Probe) IsOnline(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusNoContent
}
