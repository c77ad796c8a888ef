package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/moments/internal/config"
	"github.com/timmy/moments/internal/prompts"
	_ "golang.org/x/image/webp"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultVLMTimeout    = 60 * time.Second
)

// ImageInput is one photo handed to the model.
type ImageInput struct {
	Data []byte
	Name string // used in error messages only
}

// VLMService wraps a hosted vision model that writes alt text and object
// tags for photos. Each call is single-shot; the transport timeout is the
// only bound on latency.
type VLMService struct {
	client   *resty.Client
	provider string
	model    string
	endpoint string
}

// NewVLMService creates a new VLM service.
// Parameters:
//   - cfg: VLM configuration including provider, model, and API key.
//
// Returns:
//   - *VLMService: initialized VLM client wrapper.
//   - error: non-nil if the API key, model or provider is missing or unknown.
func NewVLMService(cfg *config.VLMConfig) (*VLMService, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	if err := cfg.ValidateVLM(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultVLMTimeout
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	var endpoint string
	switch cfg.Provider {
	case ProviderGemini:
		if baseURL == "" {
			baseURL = defaultGeminiBaseURL
		}
		client.SetHeader("x-goog-api-key", cfg.APIKey)
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, cfg.Model)
	case ProviderOpenAI:
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
		endpoint = baseURL + "/chat/completions"
	}

	return &VLMService{
		client:   client,
		provider: cfg.Provider,
		model:    cfg.Model,
		endpoint: endpoint,
	}, nil
}

// GetModel returns the model name being used.
func (s *VLMService) GetModel() string {
	return s.model
}

// GenerateCaption asks the model for ALT text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - img: the photo bytes.
//
// Returns:
//   - string: trimmed caption of at most 160 characters, or "" when the
//     model returned nothing.
//   - error: non-nil if the image is undecodable or the API request fails.
func (s *VLMService) GenerateCaption(ctx context.Context, img ImageInput) (string, error) {
	text, err := s.generate(ctx, prompts.AltTextPrompt, img, false)
	if err != nil {
		return "", err
	}
	return TruncateAltText(text), nil
}

// GenerateLabels asks the model for a JSON list of salient objects.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - img: the photo bytes.
//
// Returns:
//   - []string: normalized labels; empty (never nil) when the model's
//     answer is missing or not the expected JSON shape.
//   - error: non-nil if the image is undecodable or the API request fails.
func (s *VLMService) GenerateLabels(ctx context.Context, img ImageInput) ([]string, error) {
	text, err := s.generate(ctx, prompts.ObjectTagsPrompt, img, true)
	if err != nil {
		return nil, err
	}
	return parseObjects(text), nil
}

// generate sends prompt plus the inline image and returns the model's text.
// An answer with no content yields "", nil.
func (s *VLMService) generate(ctx context.Context, prompt string, img ImageInput, wantJSON bool) (string, error) {
	mimeType, err := detectMIMEType(img.Data)
	if err != nil {
		return "", fmt.Errorf("unsupported image %s: %w", img.Name, err)
	}
	encoded := base64.StdEncoding.EncodeToString(img.Data)

	if s.provider == ProviderOpenAI {
		return s.generateOpenAI(ctx, prompt, mimeType, encoded, wantJSON)
	}
	return s.generateGemini(ctx, prompt, mimeType, encoded, wantJSON)
}

// detectMIMEType sniffs the image format from its header.
func detectMIMEType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return "image/" + format, nil
}

// Gemini generateContent request/response structures
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type geminiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (s *VLMService) generateGemini(ctx context.Context, prompt, mimeType, encoded string, wantJSON bool) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{MimeType: mimeType, Data: encoded}},
			},
		}},
	}
	if wantJSON {
		req.GenerationConfig = &geminiGenerationConfig{ResponseMimeType: "application/json"}
	}

	var resp geminiResponse
	var apiErr geminiError
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini API: %w", err)
	}

	if httpResp.IsError() {
		errorMsg := string(httpResp.Body())
		if apiErr.Error != nil {
			errorMsg = fmt.Sprintf("%s: %s", apiErr.Error.Status, apiErr.Error.Message)
		}
		return "", fmt.Errorf("gemini API returned HTTP %d: %s", httpResp.StatusCode(), errorMsg)
	}

	if len(resp.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIMessage struct {
	Role    string        `json:"role"`
	Content []interface{} `json:"content"`
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (s *VLMService) generateOpenAI(ctx context.Context, prompt, mimeType, encoded string, wantJSON bool) (string, error) {
	req := openAIRequest{
		Model: s.model,
		Messages: []openAIMessage{{
			Role: "user",
			Content: []interface{}{
				openAITextContent{Type: "text", Text: prompt},
				openAIImageContent{
					Type: "image_url",
					ImageURL: openAIImageURL{
						URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
						Detail: "auto",
					},
				},
			},
		}},
		MaxTokens: 300,
	}
	if wantJSON {
		req.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	var resp openAIResponse
	var apiErr openAIError
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call VLM API: %w", err)
	}

	if httpResp.IsError() {
		errorMsg := string(httpResp.Body())
		if apiErr.Error != nil {
			errorMsg = apiErr.Error.Message
		}
		return "", fmt.Errorf("VLM API returned HTTP %d: %s", httpResp.StatusCode(), errorMsg)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
