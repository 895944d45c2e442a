package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/admi-n/solidity-assistant/src/internal"
)

// DefaultOllamaHost 本地 Ollama 服务地址
const DefaultOllamaHost = "http://localhost:11434"

// OllamaHTTPEngine 通过本地 Ollama HTTP 接口推理
type OllamaHTTPEngine struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// OllamaHTTPConfig HTTP 引擎配置
type OllamaHTTPConfig struct {
	BaseURL string // 例如 "http://localhost:11434"
	Model   string // 例如 "gemma3:4b"
	Timeout time.Duration
	Logger  *zap.Logger
}

// Ollama API 请求/响应结构
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaHTTPEngine 创建 HTTP 引擎
func NewOllamaHTTPEngine(cfg OllamaHTTPConfig) (*OllamaHTTPEngine, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("inference timeout cannot be negative: %v", cfg.Timeout)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	// 本地服务不走显式代理，环境变量里的代理设置仍然生效
	httpClient, err := internal.CreateProxyHTTPClient("", cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return &OllamaHTTPEngine{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// Run 发送一次非流式 /api/generate 请求
func (c *OllamaHTTPEngine) Run(ctx context.Context, prompt string) (string, error) {
	fail := func(body string, err error) error {
		return &InferenceEngineError{
			Engine:   c.Name(),
			Model:    c.model,
			ExitCode: -1,
			Stderr:   body,
			Err:      err,
		}
	}

	jsonData, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fail("", fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fail("", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending generate request", zap.String("url", url), zap.String("model", c.model))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fail("", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fail("", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", fail(string(body), fmt.Errorf("API returned status %d", resp.StatusCode))
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fail(string(body), fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if apiResp.Error != "" {
		return "", fail(apiResp.Error, fmt.Errorf("ollama API error"))
	}

	return apiResp.Response, nil
}

// Name 返回引擎名称
func (c *OllamaHTTPEngine) Name() string {
	return fmt.Sprintf("ollama-http %s", c.model)
}

// Model 返回模型名称
func (c *OllamaHTTPEngine) Model() string {
	return c.model
}

// Close 清理资源
func (c *OllamaHTTPEngine) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
