// Package chain 通过 JSON-RPC 节点检查地址上是否部署了合约代码
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/admi-n/solidity-assistant/src/internal"
)

// DefaultTimeout RPC 请求默认超时
const DefaultTimeout = 15 * time.Second

// Probe 只读的链上检查器
type Probe struct {
	client *ethclient.Client
	rpcURL string
	logger *zap.Logger
}

// Config 链上检查器配置
type Config struct {
	RPCURL  string
	Proxy   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Dial 连接以太坊节点。代理只作用于本客户端，不修改全局 Transport。
func Dial(ctx context.Context, cfg Config) (*Probe, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	httpClient, err := internal.CreateProxyHTTPClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum node: %w", err)
	}

	cfg.Logger.Debug("connected to ethereum node", zap.String("rpc", rpcURL))

	return &Probe{
		client: ethclient.NewClient(rpcClient),
		rpcURL: rpcURL,
		logger: cfg.Logger,
	}, nil
}

// HasCode 检查地址在最新区块是否有合约代码，EOA 返回 false
func (p *Probe) HasCode(ctx context.Context, address string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("invalid address: %s", address)
	}

	code, err := p.client.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code for %s: %w", address, err)
	}

	p.logger.Debug("fetched code",
		zap.String("address", address),
		zap.Int("bytes", len(code)))

	return len(code) > 0, nil
}

// ChainID 获取节点所在链的 ID
func (p *Probe) ChainID(ctx context.Context) (uint64, error) {
	id, err := p.client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id out of range: %s", id)
	}
	return id.Uint64(), nil
}

// CheckChain 确认节点与浏览器网络属于同一条链
func (p *Probe) CheckChain(ctx context.Context, want uint64) error {
	if want == 0 {
		return nil
	}
	got, err := p.ChainID(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("RPC node is on chain %s, expected %s", new(big.Int).SetUint64(got), new(big.Int).SetUint64(want))
	}
	return nil
}

// Close 关闭连接
func (p *Probe) Close() {
	p.client.Close()
}
