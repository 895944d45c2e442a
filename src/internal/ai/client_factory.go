package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/admi-n/solidity-assistant/src/internal/ai/client"
)

// InferenceEngine 所有推理引擎必须实现的接口：prompt 进，文本出
type InferenceEngine interface {
	Run(ctx context.Context, prompt string) (string, error)
	Name() string
	Close() error
}

// InferenceEngineError 见 client.InferenceEngineError
type InferenceEngineError = client.InferenceEngineError

// 支持的引擎名称
const (
	EngineOllama     = "ollama"
	EngineOllamaCLI  = "ollama-cli"
	EngineOllamaHTTP = "ollama-http"
	EngineLocalLLM   = "local-llm"
)

// EngineConfig 引擎配置
type EngineConfig struct {
	Engine  string
	Binary  string // CLI 引擎使用
	BaseURL string // HTTP 引擎使用
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewEngine 根据名称创建对应的推理引擎，名称为空时使用 ollama 子进程
func NewEngine(cfg EngineConfig) (InferenceEngine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineOllama, EngineOllamaCLI:
		return client.NewOllamaCLIEngine(client.OllamaCLIConfig{
			Binary:  cfg.Binary,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})

	case EngineOllamaHTTP, EngineLocalLLM:
		return client.NewOllamaHTTPEngine(client.OllamaHTTPConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})

	default:
		return nil, fmt.Errorf("unsupported inference engine: %s (supported: %s)", cfg.Engine, strings.Join(EngineNames(), ", "))
	}
}

// EngineNames 返回支持的引擎名称
func EngineNames() []string {
	return []string{EngineOllama, EngineOllamaCLI, EngineOllamaHTTP, EngineLocalLLM}
}

// ValidateEngine 验证引擎名称是否有效
func ValidateEngine(engine string) error {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineOllama, EngineOllamaCLI, EngineOllamaHTTP, EngineLocalLLM:
		return nil
	}
	return fmt.Errorf("invalid engine '%s', must be one of: %s", engine, strings.Join(EngineNames(), ", "))
}
