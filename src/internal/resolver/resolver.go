// Package resolver turns a user supplied contract identifier into Solidity
// source text, looking up verified source on an Etherscan compatible explorer
// when the identifier is an address.
package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/admi-n/solidity-assistant/src/config"
	"github.com/admi-n/solidity-assistant/src/internal"
)

// NotFoundFormat 未找到已验证源码时的占位文本格式
const NotFoundFormat = "// No verified source code found for address %s on %s"

// Config 解析器配置，API Key 由调用方注入
type Config struct {
	APIKey  string
	Network config.Network
	Timeout time.Duration
	Proxy   string
}

// Option 可选项
type Option func(*Resolver)

// WithHTTPClient 替换默认的 HTTP 客户端
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = client
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver 无状态：除只读配置外不持有任何数据，也不缓存查询结果
type Resolver struct {
	apiKey     string
	network    config.Network
	httpClient *http.Client
	logger     *zap.Logger
}

// LookupResult 一次浏览器查询的结果：要么是源码，要么是 NotFound
type LookupResult struct {
	Address  string
	Network  string
	Source   string
	NotFound bool
}

// Sentinel 返回未找到时的占位文本
func (r LookupResult) Sentinel() string {
	return fmt.Sprintf(NotFoundFormat, r.Address, r.Network)
}

// Text 找到时返回源码，否则返回占位文本
func (r LookupResult) Text() string {
	if r.NotFound {
		return r.Sentinel()
	}
	return r.Source
}

// New 创建解析器
func New(cfg Config, opts ...Option) (*Resolver, error) {
	if strings.TrimSpace(cfg.Network.ExplorerAPIURL) == "" {
		return nil, fmt.Errorf("explorer API URL is required for network %q", cfg.Network.Name)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = config.DefaultExplorerTimeout
	}

	r := &Resolver{
		apiKey:  cfg.APIKey,
		network: cfg.Network,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.httpClient == nil {
		client, err := internal.CreateProxyHTTPClient(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		r.httpClient = client
	}

	return r, nil
}

// Network 返回解析器查询的网络
func (r *Resolver) Network() config.Network {
	return r.network
}

// Resolve 地址则查询浏览器，源码则原样返回。
// 未找到已验证源码时返回占位文本而不是错误；传输失败返回 *TransportError。
func (r *Resolver) Resolve(ctx context.Context, identifier string) (string, error) {
	if Classify(identifier) == KindRawSource {
		return identifier, nil
	}

	result, err := r.Lookup(ctx, identifier)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// Lookup 对地址发起一次 getsourcecode 查询
func (r *Resolver) Lookup(ctx context.Context, address string) (LookupResult, error) {
	if !common.IsHexAddress(address) {
		r.logger.Warn("address-shaped input is not valid hex, querying anyway",
			zap.String("address", address))
	}

	r.logger.Debug("querying explorer",
		zap.String("address", address),
		zap.String("network", r.network.Name),
		zap.Uint64("chain_id", r.network.ChainID))

	start := time.Now()
	resp, err := fetchSourceCode(ctx, r.httpClient, r.network, address, r.apiKey)
	if err != nil {
		return LookupResult{}, err
	}

	result := LookupResult{
		Address: address,
		Network: r.network.Name,
	}
	source, ok := resp.VerifiedSource()
	if !ok {
		result.NotFound = true
		r.logger.Info("no verified source",
			zap.String("address", address),
			zap.String("status", resp.Status),
			zap.String("message", resp.Message),
			zap.Duration("took", time.Since(start)))
		return result, nil
	}

	result.Source = source
	r.logger.Debug("verified source found",
		zap.String("address", address),
		zap.Int("bytes", len(source)),
		zap.Duration("took", time.Since(start)))
	return result, nil
}
