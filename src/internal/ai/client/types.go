package client

import (
	"fmt"
	"strings"
)

// 共享的错误类型定义

// InferenceEngineError 推理引擎调用失败：进程无法启动、非零退出、超时，
// 或 HTTP 接口返回错误。Stderr 保存引擎的诊断输出（HTTP 引擎为响应体）。
type InferenceEngineError struct {
	Engine   string
	Model    string
	ExitCode int // 进程未正常退出时为 -1
	Stderr   string
	Err      error
}

func (e *InferenceEngineError) Error() string {
	msg := fmt.Sprintf("inference engine %s (model %s) failed", e.Engine, e.Model)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += fmt.Sprintf(" (stderr: %s)", stderr)
	}
	return msg
}

func (e *InferenceEngineError) Unwrap() error {
	return e.Err
}
