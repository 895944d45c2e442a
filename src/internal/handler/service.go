// Package handler 实现两个用户动作：根据指令生成 Solidity，以及解释合约。
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/admi-n/solidity-assistant/src/config"
	"github.com/admi-n/solidity-assistant/src/internal"
	"github.com/admi-n/solidity-assistant/src/internal/ai"
	"github.com/admi-n/solidity-assistant/src/internal/resolver"
	"github.com/admi-n/solidity-assistant/src/strategy/prompts"
)

// ErrEmptyInput 输入为空或只有空白
var ErrEmptyInput = errors.New("input is empty")

// SourceResolver 查询地址对应的已验证源码
type SourceResolver interface {
	Lookup(ctx context.Context, address string) (resolver.LookupResult, error)
	Network() config.Network
}

// TaskInvoker 执行一次推理任务
type TaskInvoker interface {
	Invoke(ctx context.Context, task prompts.Task) (string, error)
	EngineName() string
}

// CodeProbe 检查地址上是否部署了代码
type CodeProbe interface {
	HasCode(ctx context.Context, address string) (bool, error)
}

// Result 一次动作的结果
type Result struct {
	Action    internal.Action
	Input     string
	Kind      resolver.Kind // 仅 explain
	Source    string        // 交给模型的源码，仅 explain
	NotFound  bool          // 浏览器上没有已验证源码，Source 为占位文本
	HasCode   *bool         // 配置了节点且输入是地址时才有值
	Output    string
	Engine    string
	Network   string
	CreatedAt time.Time
	Duration  time.Duration
}

// Service 把解析器和推理串起来，没有可变状态
type Service struct {
	resolver SourceResolver
	invoker  TaskInvoker
	probe    CodeProbe
	logger   *zap.Logger
	progress io.Writer
}

// Option 可选项
type Option func(*Service)

// WithProbe 在解释地址前检查链上是否有代码
func WithProbe(probe CodeProbe) Option {
	return func(s *Service) {
		s.probe = probe
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProgress 进度提示输出位置，默认不输出
func WithProgress(w io.Writer) Option {
	return func(s *Service) {
		s.progress = w
	}
}

// NewService 创建服务
func NewService(res SourceResolver, inv TaskInvoker, opts ...Option) *Service {
	s := &Service{
		resolver: res,
		invoker:  inv,
		logger:   zap.NewNop(),
		progress: io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) printf(format string, args ...any) {
	fmt.Fprintf(s.progress, format, args...)
}

// Generate 根据自然语言指令生成合约
func (s *Service) Generate(ctx context.Context, instruction string) (*Result, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	s.printf("🤖 正在使用 %s 生成合约...\n", s.invoker.EngineName())

	output, err := s.invoker.Invoke(ctx, prompts.Generate{Instruction: instruction})
	if err != nil {
		return nil, fmt.Errorf("generate failed: %w", err)
	}

	result := &Result{
		Action:    internal.ActionGenerate,
		Input:     instruction,
		Output:    output,
		Engine:    s.invoker.EngineName(),
		Network:   s.resolver.Network().Name,
		CreatedAt: start,
		Duration:  time.Since(start),
	}
	s.printf("✅ 生成完成，耗时: %v\n", result.Duration.Round(time.Millisecond))
	return result, nil
}

// Explain 解释合约：地址先查询已验证源码，源码直接交给模型
func (s *Service) Explain(ctx context.Context, input string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	result := &Result{
		Action:    internal.ActionExplain,
		Input:     input,
		Kind:      resolver.Classify(input),
		Source:    input,
		Engine:    s.invoker.EngineName(),
		Network:   s.resolver.Network().Name,
		CreatedAt: start,
	}

	if result.Kind == resolver.KindAddress {
		s.checkCode(ctx, result)

		s.printf("🔍 正在从 %s 浏览器获取已验证源码: %s\n", result.Network, input)
		lookup, err := s.resolver.Lookup(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("resolve source failed: %w", err)
		}
		result.Source = lookup.Text()
		result.NotFound = lookup.NotFound
		if lookup.NotFound {
			s.printf("⚠️  未找到已验证源码，继续解释占位内容\n")
		} else {
			s.printf("  ✓ 获取源码成功 (%d 字节)\n", len(lookup.Source))
		}
	}

	s.printf("🤖 正在使用 %s 解释合约...\n", result.Engine)
	output, err := s.invoker.Invoke(ctx, prompts.Explain{Code: result.Source})
	if err != nil {
		return nil, fmt.Errorf("explain failed: %w", err)
	}

	result.Output = output
	result.Duration = time.Since(start)
	s.printf("✅ 解释完成，耗时: %v\n", result.Duration.Round(time.Millisecond))
	return result, nil
}

// checkCode 探测失败只记录日志，不影响动作本身
func (s *Service) checkCode(ctx context.Context, result *Result) {
	if s.probe == nil {
		return
	}

	hasCode, err := s.probe.HasCode(ctx, result.Input)
	if err != nil {
		s.logger.Warn("chain probe failed", zap.String("address", result.Input), zap.Error(err))
		return
	}

	result.HasCode = &hasCode
	if !hasCode {
		s.logger.Warn("no code deployed at address, it may be an EOA",
			zap.String("address", result.Input),
			zap.String("network", result.Network))
		s.printf("⚠️  地址 %s 上没有合约代码\n", result.Input)
	}
}

// Describe 把错误转成一行用户可读的提示
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var transportErr *resolver.TransportError
	var engineErr *ai.InferenceEngineError

	switch {
	case errors.Is(err, ErrEmptyInput):
		return "nothing to do: input is empty"
	case errors.As(err, &transportErr):
		return fmt.Sprintf("could not fetch source for %s from the %s explorer: %v",
			transportErr.Address, transportErr.Network, transportErr.Err)
	case errors.As(err, &engineErr):
		msg := fmt.Sprintf("inference engine %s failed", engineErr.Engine)
		stderr := firstLine(engineErr.Stderr)
		switch {
		case errors.Is(engineErr, context.DeadlineExceeded):
			msg += ": timed out"
		case errors.Is(engineErr, context.Canceled):
			msg += ": cancelled"
		case engineErr.ExitCode > 0:
			msg += fmt.Sprintf(" with exit code %d", engineErr.ExitCode)
		case stderr == "" && engineErr.Err != nil:
			msg += ": " + engineErr.Err.Error()
		}
		if stderr != "" {
			msg += ": " + stderr
		}
		return msg
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
