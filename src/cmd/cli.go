package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/admi-n/solidity-assistant/src/config"
	"github.com/admi-n/solidity-assistant/src/internal"
	"github.com/admi-n/solidity-assistant/src/internal/ai"
	"github.com/admi-n/solidity-assistant/src/internal/handler"
	"github.com/admi-n/solidity-assistant/src/internal/logging"
)

// CLIConfig 保存解析好的全局 CLI 选项，非空字段覆盖配置文件和环境变量
type CLIConfig struct {
	ConfigPath string        // --config
	Network    string        // --network，例如 sepolia
	Engine     string        // --engine，例如 ollama
	Model      string        // --model，例如 gemma3:4b
	Timeout    time.Duration // --timeout，推理超时，0 表示不限制
	Proxy      string        // --proxy，例如 http://127.0.0.1:7897
	RPC        string        // --rpc，可选的以太坊节点
	Output     string        // --output，报告文件或目录
	Verbose    bool

	timeoutSet bool
}

// Validate 检查 CLIConfig 的一致性
func (c *CLIConfig) Validate() error {
	if c.Network != "" {
		if _, err := config.GetNetwork(c.Network); err != nil {
			return err
		}
	}
	if c.Engine != "" {
		if err := ai.ValidateEngine(c.Engine); err != nil {
			return err
		}
	}
	if c.Timeout < 0 {
		return errors.New("--timeout must not be negative")
	}
	if err := internal.ValidateProxyURL(c.Proxy); err != nil {
		return fmt.Errorf("--proxy: %w", err)
	}
	return nil
}

// Apply 将命令行覆盖写入配置
func (c *CLIConfig) Apply(s *config.Settings) {
	if c.Network != "" {
		s.Explorer.Network = strings.ToLower(strings.TrimSpace(c.Network))
	}
	if c.Engine != "" {
		s.Inference.Engine = c.Engine
	}
	if c.Model != "" {
		s.Inference.Model = c.Model
	}
	if c.timeoutSet {
		s.Inference.Timeout = c.Timeout
	}
	if c.Proxy != "" {
		s.Explorer.Proxy = c.Proxy
	}
	if c.RPC != "" {
		s.RPC.URL = c.RPC
	}
}

// app 一次命令执行期间共享的配置和日志
type app struct {
	cfg      CLIConfig
	settings *config.Settings
	logger   *zap.Logger
}

// load 读取配置并初始化日志
func (a *app) load(cmd *cobra.Command) error {
	a.cfg.timeoutSet = cmd.Flags().Changed("timeout")
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	settings, err := config.Load(a.cfg.ConfigPath)
	if err != nil {
		return err
	}
	a.cfg.Apply(settings)
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := ai.ValidateEngine(settings.Inference.Engine); err != nil {
		return err
	}

	logger, err := logging.New(settings.Log.Level, a.cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.settings = settings
	a.logger = logger
	return nil
}

// NewRootCommand 构建命令树
func NewRootCommand() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "solidity-assistant",
		Short: "Generate and explain Solidity contracts with a local model",
		Long: `solidity-assistant turns a plain-English instruction into Solidity code,
or explains an existing contract given its source or a verified contract address.

Addresses are looked up on an Etherscan compatible explorer (sepolia by default).
Inference runs locally through "ollama run gemma3:4b" unless configured otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ConfigPath, "config", "", "settings file (default "+config.DefaultSettingsPath+" if present)")
	flags.StringVarP(&a.cfg.Network, "network", "n", "", "explorer network: "+strings.Join(config.NetworkNames(), ", "))
	flags.StringVar(&a.cfg.Engine, "engine", "", "inference engine: "+strings.Join(ai.EngineNames(), ", "))
	flags.StringVarP(&a.cfg.Model, "model", "m", "", "model name (default "+config.DefaultModel+")")
	flags.DurationVar(&a.cfg.Timeout, "timeout", config.DefaultInferenceTimeout, "inference timeout, 0 disables it")
	flags.StringVar(&a.cfg.Proxy, "proxy", "", "HTTP proxy for explorer and RPC requests")
	flags.StringVar(&a.cfg.RPC, "rpc", "", "ethereum JSON-RPC URL used to check that an address holds code")
	flags.StringVarP(&a.cfg.Output, "output", "o", "", "also save a markdown report to this file or directory")
	flags.BoolVarP(&a.cfg.Verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newGenerateCommand(a),
		newExplainCommand(a),
		newResolveCommand(a),
		newNetworksCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Run 解析命令行并执行，Ctrl-C 会取消正在进行的请求和推理进程
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

// PrintFatal 将错误打印到 stderr 并以非零代码退出。
func PrintFatal(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "error:", handler.Describe(err))
	os.Exit(1)
}
