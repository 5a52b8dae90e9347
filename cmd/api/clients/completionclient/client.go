package completionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat-relay/cmd/api/httpclient"
)

const ProviderName = "openrouter"

// Message 는 OpenAI 호환 chat-completion API 의 role/content 한 턴이다.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message struct {
		Content *string `json:"content"`
	} `json:"message"`
}

var (
	// ErrInvalidJSON 은 업스트림 응답 본문이 JSON 이 아닐 때 반환된다.
	ErrInvalidJSON = errors.New("completion api returned invalid json")
	// ErrMissingReply 는 200 응답에 choices[0].message.content 가 없을 때 반환된다.
	ErrMissingReply = errors.New("completion api response has no reply")
)

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("completion api request failed: status=%d body=%s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient 가 nil 이면 httpclient.New(Timeout) 을 사용한다.
	HTTPClient *http.Client
}

type Client struct {
	base   *httpclient.BaseClient
	apiKey string
	model  string
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	}
	return &Client{
		base:   httpclient.NewBaseClientWithClient(hc, cfg.BaseURL),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (c *Client) Name() string  { return ProviderName }
func (c *Client) Model() string { return c.model }

// Complete 는 전체 대화를 고정 모델로 전송하고 첫 번째 choice 의 content 를 반환한다.
// 재시도는 하지 않는다.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	buf, err := json.Marshal(ChatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := c.base.NewRequest(ctx, http.MethodPost, "/chat/completions", nil, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	const maxBodySize = 5 * 1024 * 1024
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if readErr != nil {
		return "", fmt.Errorf("completion api response read failed: %w", readErr)
	}

	if !json.Valid(body) {
		return "", fmt.Errorf("%w: status=%d", ErrInvalidJSON, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", ErrMissingReply
	}
	return *out.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max])
}
