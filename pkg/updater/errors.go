package updater

import "fmt"

// FetchError reports a failed manifest retrieval: transport failure,
// timeout, non-2xx status or a malformed body.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DownloadError reports a failed document payload download.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
