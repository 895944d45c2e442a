package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/admi-n/solidity-assistant/src/strategy/prompts"
)

// ErrNoTask 调用时没有给出任务
var ErrNoTask = errors.New("no prompt task given")

// Invoker 把任务渲染成 prompt 交给推理引擎，并原样返回输出。
// 只持有引擎和日志，没有可变状态。
type Invoker struct {
	engine InferenceEngine
	logger *zap.Logger
}

// NewInvoker 创建 Invoker，logger 为 nil 时不输出日志
func NewInvoker(engine InferenceEngine, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{engine: engine, logger: logger}
}

// Invoke 渲染 prompt 并执行一次推理。
// 失败时不返回部分结果，也不重试或切换模型。
func (i *Invoker) Invoke(ctx context.Context, task prompts.Task) (string, error) {
	if task == nil {
		return "", ErrNoTask
	}

	prompt, err := task.Render()
	if err != nil {
		return "", err
	}

	i.logger.Debug("invoking inference engine",
		zap.String("engine", i.engine.Name()),
		zap.String("task", string(task.Kind())),
		zap.Int("prompt_bytes", len(prompt)))

	start := time.Now()
	output, err := i.engine.Run(ctx, prompt)
	if err != nil {
		var engineErr *InferenceEngineError
		if errors.As(err, &engineErr) {
			return "", err
		}
		return "", &InferenceEngineError{
			Engine:   i.engine.Name(),
			ExitCode: -1,
			Err:      err,
		}
	}

	i.logger.Info("inference finished",
		zap.String("engine", i.engine.Name()),
		zap.String("task", string(task.Kind())),
		zap.Duration("took", time.Since(start)))

	return output, nil
}

// EngineName 返回当前引擎名称
func (i *Invoker) EngineName() string {
	return i.engine.Name()
}

// Close 释放引擎资源
func (i *Invoker) Close() error {
	if i.engine != nil {
		if err := i.engine.Close(); err != nil {
			return fmt.Errorf("failed to close engine: %w", err)
		}
	}
	return nil
}
