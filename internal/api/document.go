package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

type uploadResponse struct {
	Success   bool   `json:"success"`
	IndexName string `json:"index_name"`
	Detail    string `json:"detail"`
}

// UploadDocument sends the document as a multipart payload and returns the
// context identifier that scopes subsequent chat turns. There is no retry;
// a failed attempt is terminal and the caller decides what to do next.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("api: build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("api: read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("api: finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/document-upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api: upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ur uploadResponse
		if json.NewDecoder(resp.Body).Decode(&ur) == nil && ur.Detail != "" {
			return "", fmt.Errorf("api: upload failed: %s", ur.Detail)
		}
		return "", fmt.Errorf("api: upload failed: status=%d", resp.StatusCode)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("api: upload response: %w", err)
	}
	if !ur.Success || ur.IndexName == "" {
		return "", fmt.Errorf("api: upload response missing index name")
	}
	return ur.IndexName, nil
}
