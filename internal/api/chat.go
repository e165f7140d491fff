package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type chatRequest struct {
	Question  string `json:"question"`
	IndexName string `json:"index_name"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// Ask submits one question against the given document context and returns
// the assistant's answer text.
func (c *Client) Ask(ctx context.Context, question, contextID string) (string, error) {
	reqBody, _ := json.Marshal(chatRequest{Question: question, IndexName: contextID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api: chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("api: chat failed: status=%d body=%s", resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("api: chat response: %w", err)
	}
	answer := strings.TrimSpace(cr.Answer)
	if answer == "" {
		return "", fmt.Errorf("api: chat response missing answer")
	}
	return answer, nil
}
