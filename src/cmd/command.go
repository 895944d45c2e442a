package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/admi-n/solidity-assistant/src/config"
	"github.com/admi-n/solidity-assistant/src/internal"
	"github.com/admi-n/solidity-assistant/src/internal/ai"
	"github.com/admi-n/solidity-assistant/src/internal/chain"
	"github.com/admi-n/solidity-assistant/src/internal/handler"
	"github.com/admi-n/solidity-assistant/src/internal/logging"
	"github.com/admi-n/solidity-assistant/src/internal/report"
	"github.com/admi-n/solidity-assistant/src/internal/resolver"
)

// 启动时确认 RPC 节点所在链的最长等待时间
const chainCheckTimeout = 5 * time.Second

func newGenerateCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "generate [instruction...]",
		Short: "Generate Solidity code from a plain-English instruction",
		Example: `  solidity-assistant generate "Create an ERC20 token with a capped supply"
  echo "Create a multisig wallet" | solidity-assistant generate -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.execute(cmd, func(ctx context.Context, svc *handler.Service) (*handler.Result, error) {
				return svc.Generate(ctx, input)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the instruction from a file, - for stdin")
	return cmd
}

func newExplainCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "explain [address-or-source...]",
		Short: "Explain a contract given its source or a verified contract address",
		Example: `  solidity-assistant explain 0x5FbDB2315678afecb367f032d93F642f64180aa3
  solidity-assistant explain --file Token.sol
  cat Token.sol | solidity-assistant explain -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.execute(cmd, func(ctx context.Context, svc *handler.Service) (*handler.Result, error) {
				return svc.Explain(ctx, input)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the contract from a file, - for stdin")
	return cmd
}

func newResolveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <address-or-source>",
		Short: "Print the source that explain would send to the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal(cmd.ErrOrStderr()) && !a.cfg.Verbose {
				a.logger = logging.Quiet(a.logger)
			}
			res, err := a.newResolver()
			if err != nil {
				return err
			}

			stop := startSpinner(cmd.ErrOrStderr(), "Resolving "+args[0])
			source, err := res.Resolve(cmd.Context(), args[0])
			stop()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), withNewline(source))
			return nil
		},
	}
}

func newNetworksCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List supported explorer networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.settings.ExplorerNetwork()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHAIN ID\tEXPLORER API\tALIASES")
			for _, n := range config.Networks() {
				name := n.Name
				if n.Name == current.Name {
					name += " *"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, n.ChainID, n.ExplorerAPIURL, strings.Join(n.AlternativeNames, ", "))
			}
			return w.Flush()
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with the API key masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *a.settings
			shown.Explorer.APIKey = a.settings.MaskedAPIKey()

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("failed to encode settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}

// execute 构建服务、运行动作、打印结果，并按需保存报告
func (a *app) execute(cmd *cobra.Command, action func(context.Context, *handler.Service) (*handler.Result, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	errOut := cmd.ErrOrStderr()

	// 终端上用 spinner，否则输出逐行进度
	interactive := isTerminal(errOut)
	progress := errOut
	if interactive {
		progress = io.Discard
		if !a.cfg.Verbose {
			a.logger = logging.Quiet(a.logger)
		}
	}

	svc, cleanup, err := a.newService(ctx, progress)
	if err != nil {
		return err
	}
	defer cleanup()

	stop := func() {}
	if interactive {
		stop = startSpinner(errOut, fmt.Sprintf("Running %s...", a.settings.Inference.Model))
	}
	result, err := action(ctx, svc)
	stop()
	if err != nil {
		return err
	}

	// 非终端时进度里已经输出过这些提示
	if interactive {
		if result.HasCode != nil && !*result.HasCode {
			fmt.Fprintf(errOut, "⚠️  地址 %s 上没有合约代码\n", result.Input)
		}
		if result.NotFound {
			fmt.Fprintf(errOut, "⚠️  %s 上未找到已验证源码\n", result.Network)
		}
	}

	out := cmd.OutOrStdout()
	if result.Action == internal.ActionExplain {
		fmt.Fprint(out, "### Explanation\n\n")
	}
	fmt.Fprint(out, withNewline(result.Output))

	if a.cfg.Output != "" {
		path, err := report.NewMarkdownFileReporter(a.cfg.Output).GenerateAndSave(toDocument(result))
		if err != nil {
			return err
		}
		fmt.Fprintf(errOut, "✅ 报告已保存: %s\n", path)
	}
	return nil
}

func (a *app) newResolver() (*resolver.Resolver, error) {
	network, err := a.settings.ExplorerNetwork()
	if err != nil {
		return nil, err
	}
	return resolver.New(resolver.Config{
		APIKey:  a.settings.Explorer.APIKey,
		Network: network,
		Timeout: a.settings.Explorer.Timeout,
		Proxy:   a.settings.Explorer.Proxy,
	}, resolver.WithLogger(a.logger.Named("resolver")))
}

// newService 组装解析器、推理引擎和可选的链上检查
func (a *app) newService(ctx context.Context, progress io.Writer) (*handler.Service, func(), error) {
	res, err := a.newResolver()
	if err != nil {
		return nil, nil, err
	}

	inf := a.settings.Inference
	engine, err := ai.NewEngine(ai.EngineConfig{
		Engine:  inf.Engine,
		Binary:  inf.Binary,
		BaseURL: inf.BaseURL,
		Model:   inf.Model,
		Timeout: inf.Timeout,
		Logger:  a.logger.Named("engine"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create inference engine: %w", err)
	}
	invoker := ai.NewInvoker(engine, a.logger.Named("invoker"))

	closers := []func(){func() { _ = invoker.Close() }}
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	opts := []handler.Option{
		handler.WithLogger(a.logger.Named("handler")),
		handler.WithProgress(progress),
	}
	if probe := a.newProbe(ctx, res.Network()); probe != nil {
		closers = append(closers, probe.Close)
		opts = append(opts, handler.WithProbe(probe))
	}

	return handler.NewService(res, invoker, opts...), cleanup, nil
}

// newProbe 没有配置 RPC 或连接失败时返回 nil，链上检查只是附加信息
func (a *app) newProbe(ctx context.Context, network config.Network) *chain.Probe {
	if a.settings.RPC.URL == "" {
		return nil
	}

	probe, err := chain.Dial(ctx, chain.Config{
		RPCURL: a.settings.RPC.URL,
		Proxy:  a.settings.Explorer.Proxy,
		Logger: a.logger.Named("chain"),
	})
	if err != nil {
		a.logger.Warn("chain probe disabled", zap.Error(err))
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, chainCheckTimeout)
	defer cancel()
	if err := probe.CheckChain(checkCtx, network.ChainID); err != nil {
		a.logger.Warn("chain probe disabled", zap.String("network", network.Name), zap.Error(err))
		probe.Close()
		return nil
	}
	return probe
}

func toDocument(result *handler.Result) *report.Document {
	doc := report.NewDocument(result.Action, result.Network, result.Engine)
	doc.CreatedAt = result.CreatedAt
	doc.Duration = result.Duration
	doc.Input = result.Input
	doc.Source = result.Source
	doc.NotFound = result.NotFound
	doc.Output = result.Output
	if result.Action == internal.ActionExplain {
		doc.InputKind = result.Kind.String()
	}
	return doc
}

// readInput 优先读取 --file，其次是参数；参数只有 "-" 时读取 stdin
func readInput(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case file == "-" || (file == "" && len(args) == 1 && args[0] == "-"):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return trimLineEnding(string(data)), nil
	case file != "":
		if len(args) > 0 {
			return "", fmt.Errorf("--file cannot be combined with positional arguments")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return trimLineEnding(string(data)), nil
	default:
		return strings.Join(args, " "), nil
	}
}

// trimLineEnding 去掉 echo 或编辑器留下的一个行尾，地址才能按原样识别
func trimLineEnding(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
