package geminiclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"chat-relay/cmd/api/clients/completionclient"
)

const ProviderName = "gemini"

// generator 는 *genai.Models 의 GenerateContent 시그니처다. 테스트에서 교체한다.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client 는 OpenAI 형식의 대화를 Gemini 요청으로 변환해 호출한다.
//   - system 턴은 SystemInstruction 으로 합친다.
//   - assistant 턴은 role "model" 로 보낸다.
type Client struct {
	models  generator
	model   string
	timeout time.Duration
}

// New 는 timeout 이 0 이면 호출 컨텍스트의 마감만 따른다.
func New(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for gemini provider")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{models: gc.Models, model: model, timeout: timeout}, nil
}

func (c *Client) Name() string  { return ProviderName }
func (c *Client) Model() string { return c.model }

func (c *Client) Complete(ctx context.Context, messages []completionclient.Message) (string, error) {
	contents, cfg := toGenai(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini: conversation has no user or assistant turns")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", normalizeError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", completionclient.ErrMissingReply
	}
	text := resp.Text()
	if text == "" {
		return "", completionclient.ErrMissingReply
	}
	return text, nil
}

func toGenai(messages []completionclient.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n")}}}
	}
	return contents, cfg
}

// normalizeError 는 genai.APIError 를 completionclient.HTTPError 로 맞춰
// 서비스 계층이 공급자와 무관하게 상태 코드를 분류할 수 있게 한다.
func normalizeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &completionclient.HTTPError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &completionclient.HTTPError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return err
}
