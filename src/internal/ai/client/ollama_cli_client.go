package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultOllamaBinary 默认的 ollama 可执行文件
	DefaultOllamaBinary = "ollama"
	// DefaultModel 默认模型
	DefaultModel = "gemma3:4b"
)

// 进程被杀死后等待输出管道关闭的最长时间
const waitDelay = 2 * time.Second

// OllamaCLIEngine 通过 `ollama run <model>` 子进程推理，
// prompt 写入 stdin，stdout 原样作为结果
type OllamaCLIEngine struct {
	binary  string
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// OllamaCLIConfig 子进程引擎配置
type OllamaCLIConfig struct {
	Binary  string        // 默认 "ollama"
	Model   string        // 默认 "gemma3:4b"
	Timeout time.Duration // 0 表示不限制
	Logger  *zap.Logger
}

// NewOllamaCLIEngine 创建子进程引擎
func NewOllamaCLIEngine(cfg OllamaCLIConfig) (*OllamaCLIEngine, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("inference timeout cannot be negative: %v", cfg.Timeout)
	}
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultOllamaBinary
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &OllamaCLIEngine{
		binary:  cfg.Binary,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// Run 执行一次推理。每次调用都启动新进程，调用之间不共享状态。
func (e *OllamaCLIEngine) Run(ctx context.Context, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.binary, "run", e.model)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("starting inference process",
		zap.String("binary", e.binary),
		zap.String("model", e.model),
		zap.Int("prompt_bytes", len(prompt)))

	start := time.Now()
	if err := cmd.Run(); err != nil {
		engineErr := &InferenceEngineError{
			Engine:   e.Name(),
			Model:    e.model,
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      err,
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			engineErr.ExitCode = exitErr.ExitCode()
		}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			engineErr.Err = fmt.Errorf("timed out after %v: %w", e.timeout, context.DeadlineExceeded)
		case errors.Is(ctx.Err(), context.Canceled):
			engineErr.Err = fmt.Errorf("cancelled: %w", context.Canceled)
		}

		e.logger.Debug("inference process failed",
			zap.Int("exit_code", engineErr.ExitCode),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return "", engineErr
	}

	e.logger.Debug("inference process finished",
		zap.Int("output_bytes", stdout.Len()),
		zap.Duration("took", time.Since(start)))

	return stdout.String(), nil
}

// Name 返回引擎名称
func (e *OllamaCLIEngine) Name() string {
	return fmt.Sprintf("%s run %s", e.binary, e.model)
}

// Model 返回模型名称
func (e *OllamaCLIEngine) Model() string {
	return e.model
}

// Close 子进程引擎不持有资源
func (e *OllamaCLIEngine) Close() error {
	return nil
}
