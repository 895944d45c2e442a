package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// DefaultNetwork 默认使用的公共测试网
const DefaultNetwork = "sepolia"

// ErrUnknownNetwork 网络名称不在支持列表中
var ErrUnknownNetwork = errors.New("unknown network")

// Network 一个 Etherscan 兼容浏览器所服务的链
type Network struct {
	Name             string
	AlternativeNames []string
	ChainID          uint64
	ExplorerAPIURL   string
}

var supportedNetworks = []Network{
	{
		Name:             "sepolia",
		AlternativeNames: []string{"sepolia-testnet"},
		ChainID:          params.SepoliaChainConfig.ChainID.Uint64(),
		ExplorerAPIURL:   "https://api-sepolia.etherscan.io/api",
	},
	{
		Name:             "mainnet",
		AlternativeNames: []string{"eth", "ethereum"},
		ChainID:          params.MainnetChainConfig.ChainID.Uint64(),
		ExplorerAPIURL:   "https://api.etherscan.io/api",
	},
	{
		Name:             "holesky",
		AlternativeNames: []string{"holesky-testnet"},
		ChainID:          params.HoleskyChainConfig.ChainID.Uint64(),
		ExplorerAPIURL:   "https://api-holesky.etherscan.io/api",
	},
}

// GetNetwork 按名称或别名查找网络，大小写不敏感
func GetNetwork(name string) (Network, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultNetwork
	}
	for _, n := range supportedNetworks {
		if n.Name == key {
			return n, nil
		}
		for _, alt := range n.AlternativeNames {
			if alt == key {
				return n, nil
			}
		}
	}
	return Network{}, fmt.Errorf("network name '%s': %w (supported: %s)", name, ErrUnknownNetwork, strings.Join(NetworkNames(), ", "))
}

// NetworkNames 返回所有支持网络的主名称（已排序）
func NetworkNames() []string {
	names := make([]string, 0, len(supportedNetworks))
	for _, n := range supportedNetworks {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}

// Networks 返回支持的网络列表副本
func Networks() []Network {
	out := make([]Network, len(supportedNetworks))
	copy(out, supportedNetworks)
	return out
}
