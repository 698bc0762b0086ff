package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL   = "https://generativelanguage.googleapis.com"
	DefaultModel     = "gemini-2.5-pro"
	DefaultFastModel = "gemini-2.5-flash"
)

var (
	ErrNoAPIKey      = errors.New("gemini api key is not configured")
	ErrEmptyResponse = errors.New("gemini returned no text")
)

type GeminiOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	FastModel string
	Timeout   time.Duration
}

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	http      *resty.Client
	apiKey    string
	model     string
	fastModel string
	log       *slog.Logger
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func NewGeminiClient(opts GeminiOptions, log *slog.Logger) *GeminiClient {
	if log == nil {
		log = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.FastModel == "" {
		opts.FastModel = DefaultFastModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &GeminiClient{
		http:      client,
		apiKey:    opts.APIKey,
		model:     opts.Model,
		fastModel: opts.FastModel,
		log:       log,
	}
}

func (c *GeminiClient) Model() string     { return c.model }
func (c *GeminiClient) FastModel() string { return c.fastModel }

// Generate sends one system instruction and one user turn and returns the
// concatenated text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, system, prompt, model string) (string, error) {
	const op = "recommend.gemini.generate"

	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if model == "" {
		model = c.model
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetPathParam("model", model).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		c.log.Error("gemini call failed", slog.String("op", op), slog.String("model", model), slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		c.log.Error("gemini returned error", slog.String("op", op), slog.Int("status", resp.StatusCode()), slog.String("message", msg))
		return "", fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), msg)
	}

	if len(out.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
