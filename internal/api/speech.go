package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/RAHULGIT99/customer-service/internal/audio"
)

// Synthesize converts answer text into a playable clip via the backend's
// synthesis endpoint. The response must carry an audio media type;
// anything else is a *ContentTypeError and the caller degrades to a
// text-only message.
func (c *Client) Synthesize(ctx context.Context, text string) (*audio.Handle, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("language_code", c.LanguageCode)
	q.Set("speaker", c.Speaker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/tts?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: tts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api: tts failed: status=%d body=%s", resp.StatusCode, string(b))
	}

	ct := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return nil, &ContentTypeError{ContentType: ct}
	}

	clip, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: tts body: %w", err)
	}
	return audio.NewHandle(mediaType, clip), nil
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe sends a recorded WAV clip to the transcription endpoint in one
// request and returns its transcript text.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "speech.wav")
	if err != nil {
		return "", fmt.Errorf("api: build stt form: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("api: write stt form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("api: finish stt form: %w", err)
	}

	q := url.Values{}
	q.Set("language_code", c.LanguageCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/stt?"+q.Encode(), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api: stt request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("api: stt failed: status=%d body=%s", resp.StatusCode, string(b))
	}

	var tr transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("api: stt response: %w", err)
	}
	return strings.TrimSpace(tr.Transcript), nil
}
