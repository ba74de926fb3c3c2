package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// MediaKind selects how the fetched file is delivered and which filename
// suffix the scratch file gets.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindPhoto MediaKind = "photo"
)

// Suffix returns the scratch-file extension for the kind so downstream
// consumers can infer the type from the filename alone.
func (k MediaKind) Suffix() string {
	if k == KindPhoto {
		return ".jpg"
	}
	return ".mp4"
}

// FormatMode is the text-styling mode applied to a caption.
type FormatMode string

const (
	FormatNone     FormatMode = ""
	FormatHTML     FormatMode = "HTML"
	FormatMarkdown FormatMode = "Markdown"
)

// RawUploadRequest is the untyped wire shape of POST /upload. Callers are
// inconsistent: some send file_url, some url, and parse_mode arrives with
// random casing and stray quotes.
type RawUploadRequest struct {
	ChatID    string `json:"chat_id"`
	FileURL   string `json:"file_url"`
	URL       string `json:"url"`
	Caption   string `json:"caption"`
	ParseMode string `json:"parse_mode"`
	Kind      string `json:"kind"`
}

// UploadRequest is the validated, strongly typed form of one relay request.
// Immutable once constructed.
type UploadRequest struct {
	ChatID    string
	SourceURL string
	Caption   string
	Mode      FormatMode
	Kind      MediaKind
}

// NormalizeRequest maps the raw wire body to a typed request. This is the
// only place the loose wire format is interpreted.
func NormalizeRequest(raw RawUploadRequest) (*UploadRequest, error) {
	if strings.TrimSpace(raw.ChatID) == "" {
		return nil, fmt.Errorf("chat_id is required")
	}

	sourceURL := raw.FileURL
	if sourceURL == "" {
		sourceURL = raw.URL
	}
	if sourceURL == "" {
		return nil, fmt.Errorf("file_url is required")
	}
	if err := ValidateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	kind := KindVideo
	if strings.EqualFold(strings.TrimSpace(raw.Kind), string(KindPhoto)) {
		kind = KindPhoto
	}

	return &UploadRequest{
		ChatID:    strings.TrimSpace(raw.ChatID),
		SourceURL: sourceURL,
		Caption:   raw.Caption,
		Mode:      ParseFormatMode(raw.ParseMode),
		Kind:      kind,
	}, nil
}

// ParseFormatMode normalizes the stringly-typed parse_mode. Unrecognized or
// malformed values map to FormatNone rather than failing the call.
func ParseFormatMode(raw string) FormatMode {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	upper := strings.ToUpper(s)
	switch {
	case upper == "HTML":
		return FormatHTML
	case strings.HasPrefix(upper, "MARKDOWN"):
		return FormatMarkdown
	default:
		return FormatNone
	}
}

// ValidateSourceURL accepts only plain http and https URLs, case-insensitive.
// Anything else is rejected before any network call is made.
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	default:
		return fmt.Errorf("%w: got scheme %q", ErrInvalidURL, u.Scheme)
	}
}
