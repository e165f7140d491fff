// Package api implements the HTTP client for the assistant backend:
// document upload, chat turns, speech synthesis and transcription.
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the assistant backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Speech parameters forwarded to the synthesis and transcription
	// endpoints.
	LanguageCode string
	Speaker      string
}

func NewClient(baseURL, languageCode, speaker string) *Client {
	if languageCode == "" {
		languageCode = "en-IN"
	}
	if speaker == "" {
		speaker = "anushka"
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
		LanguageCode: languageCode,
		Speaker:      speaker,
	}
}

// ContentTypeError reports a synthesis response that did not carry audio.
type ContentTypeError struct {
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("api: expected audio content type, got %q", e.ContentType)
}
