package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultHTTPTimeout = 300 * time.Second

// Config captures the voice settings used for every request.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	Format         string
	Speed          float64
	TimeoutSeconds int
}

// Client synthesizes speech for text segments.
type Client struct {
	cfg Config
	api *openai.Client
}

// Option customizes the client.
type Option func(*openai.ClientConfig)

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *openai.ClientConfig) {
		if client != nil {
			cfg.HTTPClient = client
		}
	}
}

// NewClient constructs a speech client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Voice = strings.ToLower(strings.TrimSpace(cfg.Voice))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}
	for _, opt := range opts {
		opt(&apiCfg)
	}
	return &Client{cfg: cfg, api: openai.NewClientWithConfig(apiCfg)}
}

// Voice reports the configured voice name.
func (c *Client) Voice() string {
	return c.cfg.Voice
}

// Synthesize converts input to audio and copies the encoded bytes into w.
// It returns the number of bytes written.
func (c *Client) Synthesize(ctx context.Context, input string, w io.Writer) (int64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, errors.New("tts synthesize: input required")
	}
	if c.cfg.APIKey == "" {
		return 0, errors.New("tts synthesize: api key required")
	}
	request := openai.CreateSpeechRequest{
		Model: openai.SpeechModel(c.cfg.Model),
		Input: input,
		Voice: openai.SpeechVoice(c.cfg.Voice),
	}
	if c.cfg.Format != "" {
		request.ResponseFormat = openai.SpeechResponseFormat(c.cfg.Format)
	}
	if c.cfg.Speed > 0 {
		request.Speed = c.cfg.Speed
	}

	response, err := c.api.CreateSpeech(ctx, request)
	if err != nil {
		return 0, fmt.Errorf("tts synthesize: %w", err)
	}
	defer response.Close()

	written, err := io.Copy(w, response)
	if err != nil {
		return written, fmt.Errorf("tts synthesize: read audio: %w", err)
	}
	if written == 0 {
		return 0, errors.New("tts synthesize: empty audio response")
	}
	return written, nil
}
