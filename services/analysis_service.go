package services

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
	"time"

	"github.com/harrisonoakess/aluehealth-backend/models"
	"github.com/harrisonoakess/aluehealth-backend/utils"
)

// Analyzer is the slice of AnalysisService the capture pipeline needs.
type Analyzer interface {
	AnalyzeMeal(ctx context.Context, image []byte, mime, note, accountID string) (*models.AnalysisResult, error)
}

type AnalysisService struct {
	baseURL string
	client  *http.Client
}

func NewAnalysisService(baseURL string) *AnalysisService {
	return &AnalysisService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// AnalyzeMeal sends one multipart request to the analysis endpoint and decodes
// the structured result. accountID may be empty; the model doesn't need an
// identity, it is attached for scoring only. No retry here; the caller
// decides whether the user re-triggers.
func (s *AnalysisService) AnalyzeMeal(ctx context.Context, image []byte, mime, note, accountID string) (*models.AnalysisResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("note", note); err != nil {
		return nil, err
	}
	if err := w.WriteField("account_id", accountID); err != nil {
		return nil, err
	}

	filename := "meal." + utils.ExtensionForMime(mime)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	hdr.Set("Content-Type", mime)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/analyze-meal", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &AnalysisUnreachableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AnalysisUnreachableError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AnalysisFailedError{
			Status:  resp.StatusCode,
			Message: extractAPIError(raw),
		}
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &AnalysisFailedError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("malformed analysis response: %v", err),
		}
	}
	return &result, nil
}

// extractAPIError pulls a human-readable message out of a {detail} or
// {message} error body, falling back to the raw text.
func extractAPIError(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
