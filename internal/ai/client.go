package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Backend resolves model handles. Resolution failures are never retried on the same model.
type Backend interface {
	Model(name string) (Model, error)
}

// Model generates free text for a prompt.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiBackend talks to the Gemini generateContent REST endpoint.
type GeminiBackend struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	temperature float64
}

var modelNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]*$`)

// NewGeminiBackend constructs a backend if the supplied configuration carries a credential.
func NewGeminiBackend(cfg Config) (*GeminiBackend, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	return &GeminiBackend{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		temperature: *cfg.Temperature,
	}, nil
}

// Model returns a handle for the named model.
func (b *GeminiBackend) Model(name string) (Model, error) {
	if b == nil {
		return nil, ErrDisabled
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "models/")
	if !modelNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid model name %q", ErrModelUnavailable, name)
	}
	return &geminiModel{backend: b, name: name}, nil
}

type geminiModel struct {
	backend *GeminiBackend
	name    string
}

func (m *geminiModel) Name() string {
	return m.name
}

func (m *geminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature: Float(m.backend.temperature),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", m.backend.baseURL, url.PathEscape(m.name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", m.backend.apiKey)

	resp, err := m.backend.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(m.name, resp)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", apiError(m.name, decoded.Error.Code, decoded.Error.Status, decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 {
		reason := ""
		if decoded.PromptFeedback != nil {
			reason = decoded.PromptFeedback.BlockReason
		}
		return "", fmt.Errorf("gemini empty response %s", reason)
	}

	var builder strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		builder.WriteString(p.Text)
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.New("gemini empty text")
	}
	return text, nil
}

func classifyStatus(model string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error *apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		return apiError(model, resp.StatusCode, envelope.Error.Status, envelope.Error.Message)
	}
	return apiError(model, resp.StatusCode, "", strings.TrimSpace(string(raw)))
}

func apiError(model string, code int, status, message string) error {
	switch {
	case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %s status %d: %s", ErrRateLimited, model, code, message)
	case code == http.StatusNotFound || status == "NOT_FOUND":
		return fmt.Errorf("%w: %s status %d: %s", ErrModelUnavailable, model, code, message)
	default:
		return fmt.Errorf("gemini %s status %d %s: %s", model, code, status, message)
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *apiErrorBody `json:"error"`
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
