package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/avoss/lantern/internal/models"
)

// fetchManifest retrieves and decodes the remote update manifest.
func (u *Updater) fetchManifest(ctx context.Context) (models.Manifest, error) {
	var manifest models.Manifest

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.config.ManifestURL, nil)
	if err != nil {
		return manifest, &FetchError{URL: u.config.ManifestURL, Err: err}
	}
	resp, err := u.fetchClient.Do(req)
	if err != nil {
		return manifest, &FetchError{URL: u.config.ManifestURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return manifest, &FetchError{URL: u.config.ManifestURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return manifest, &FetchError{URL: u.config.ManifestURL, Err: fmt.Errorf("malformed manifest: %w", err)}
	}
	return manifest, nil
}

// download retrieves a document payload.
func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	resp, err := u.downloadClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	return payload, nil
}
