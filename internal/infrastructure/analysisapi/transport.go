package analysisapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
)

const maxErrorBodyBytes = 2048

func (c *Client) postAnalyze(ctx context.Context, audio []byte, filename, mimeType, language, transcript string) (domain.RawAnalysis, error) {
	body, contentType, err := buildAnalyzeBody(audio, filename, mimeType, language, transcript)
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", body)
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError("analyze", resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var raw domain.RawAnalysis
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	return raw, nil
}

// buildAnalyzeBody assembles the multipart payload fresh for every attempt,
// since retries cannot replay a consumed reader.
func buildAnalyzeBody(audio []byte, filename, mimeType, language, transcript string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio part: %w", err)
	}

	if err := writer.WriteField("transcript", transcript); err != nil {
		return nil, "", fmt.Errorf("write transcript field: %w", err)
	}
	if err := writer.WriteField("language", language); err != nil {
		return nil, "", fmt.Errorf("write language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
