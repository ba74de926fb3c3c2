package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidURL marks a source URL that is not plain http or https.
// Validation failures never consume a retry and never touch the network.
var ErrInvalidURL = errors.New("source url must be http or https")

// ContentMismatchError is returned when a server answers 200 with a body that
// does not look like media, typically an HTML error page served in place of
// the real file. The first bytes of the body are kept for diagnostics.
type ContentMismatchError struct {
	ContentType string
	Sample      []byte
}

func (e *ContentMismatchError) Error() string {
	return fmt.Sprintf("unexpected content-type %q, body starts with: %s", e.ContentType, string(e.Sample))
}

// DownloadFailedError is the terminal fetch error raised once the attempt
// budget is exhausted. It wraps the last underlying cause.
type DownloadFailedError struct {
	Attempts int
	Err      error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DownloadFailedError) Unwrap() error {
	return e.Err
}

// UploadError wraps a failure from the messaging client. Uploads are never
// retried; the retry budget applies to downloads only.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
