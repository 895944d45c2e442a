package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/admi-n/solidity-assistant/src/internal"
)

// DefaultSettingsPath 未指定 --config 时尝试读取的配置文件
const DefaultSettingsPath = "config/settings.yaml"

// 默认值
const (
	DefaultEngine           = "ollama"
	DefaultOllamaBinary     = "ollama"
	DefaultModel            = "gemma3:4b"
	DefaultOllamaHost       = "http://localhost:11434"
	DefaultExplorerTimeout  = 20 * time.Second
	DefaultInferenceTimeout = 5 * time.Minute
	DefaultLogLevel         = "info"
)

// ExplorerSettings 区块浏览器相关配置
type ExplorerSettings struct {
	APIKey  string        `yaml:"api_key"`
	Network string        `yaml:"network"`
	BaseURL string        `yaml:"base_url"` // 可选，覆盖网络默认的 API 地址
	Timeout time.Duration `yaml:"timeout"`
	Proxy   string        `yaml:"proxy"` // 例如 http://127.0.0.1:7897
}

// InferenceSettings 本地推理引擎配置
type InferenceSettings struct {
	Engine  string        `yaml:"engine"`   // ollama | ollama-http
	Binary  string        `yaml:"binary"`   // ollama 可执行文件
	Model   string        `yaml:"model"`    // 例如 gemma3:4b
	BaseURL string        `yaml:"base_url"` // ollama-http 使用
	Timeout time.Duration `yaml:"timeout"`  // 0 表示不限制
}

// Settings 全局配置结构
type Settings struct {
	Explorer  ExplorerSettings  `yaml:"explorer"`
	Inference InferenceSettings `yaml:"inference"`

	RPC struct {
		URL string `yaml:"url"` // 可选，用于检查地址上是否部署了代码
	} `yaml:"rpc"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default 返回带默认值的配置
func Default() *Settings {
	s := &Settings{
		Explorer: ExplorerSettings{
			Network: DefaultNetwork,
			Timeout: DefaultExplorerTimeout,
		},
		Inference: InferenceSettings{
			Engine:  DefaultEngine,
			Binary:  DefaultOllamaBinary,
			Model:   DefaultModel,
			BaseURL: DefaultOllamaHost,
			Timeout: DefaultInferenceTimeout,
		},
	}
	s.Log.Level = DefaultLogLevel
	return s
}

// Load 加载配置文件并应用环境变量覆盖。
// configPath 为空时读取 DefaultSettingsPath，文件不存在不算错误；
// 显式指定的文件不存在则返回错误。
func Load(configPath string) (*Settings, error) {
	settings := Default()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultSettingsPath
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// 没有配置文件时只使用默认值和环境变量
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	settings.applyEnv()
	settings.normalize()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyEnv 环境变量优先于配置文件。
// ETHERSCAN_API_KEY 只在这里读取一次，之后以参数形式注入。
func (s *Settings) applyEnv() {
	overrideString(&s.Explorer.APIKey, "ETHERSCAN_API_KEY")
	overrideString(&s.Explorer.BaseURL, "ETHERSCAN_BASE_URL")
	overrideString(&s.Explorer.Network, "EXPLORER_NETWORK")
	overrideString(&s.Explorer.Proxy, "HTTP_PROXY_URL")
	overrideString(&s.Inference.Engine, "INFERENCE_ENGINE")
	overrideString(&s.Inference.Binary, "OLLAMA_BIN")
	overrideString(&s.Inference.Model, "OLLAMA_MODEL")
	overrideString(&s.Inference.BaseURL, "OLLAMA_HOST")
	overrideString(&s.RPC.URL, "ETH_RPC_URL")
	overrideString(&s.Log.Level, "LOG_LEVEL")
}

func (s *Settings) normalize() {
	s.Explorer.APIKey = strings.TrimSpace(s.Explorer.APIKey)
	s.Explorer.Network = strings.ToLower(strings.TrimSpace(s.Explorer.Network))
	if s.Explorer.Network == "" {
		s.Explorer.Network = DefaultNetwork
	}
	if s.Inference.Engine == "" {
		s.Inference.Engine = DefaultEngine
	}
	if s.Inference.Binary == "" {
		s.Inference.Binary = DefaultOllamaBinary
	}
	if s.Inference.Model == "" {
		s.Inference.Model = DefaultModel
	}
	if s.Inference.BaseURL == "" {
		s.Inference.BaseURL = DefaultOllamaHost
	}
	if s.Log.Level == "" {
		s.Log.Level = DefaultLogLevel
	}
}

// Validate 检查配置的一致性。API Key 缺失不在这里校验，由浏览器接口自己返回错误。
func (s *Settings) Validate() error {
	if _, err := GetNetwork(s.Explorer.Network); err != nil {
		return err
	}
	if err := internal.ValidateProxyURL(s.Explorer.Proxy); err != nil {
		return fmt.Errorf("explorer.proxy: %w", err)
	}
	if s.Explorer.Timeout < 0 {
		return fmt.Errorf("explorer.timeout must not be negative")
	}
	if s.Inference.Timeout < 0 {
		return fmt.Errorf("inference.timeout must not be negative")
	}
	return nil
}

// ExplorerNetwork 返回当前网络，base_url 不为空时覆盖默认 API 地址
func (s *Settings) ExplorerNetwork() (Network, error) {
	n, err := GetNetwork(s.Explorer.Network)
	if err != nil {
		return Network{}, err
	}
	if base := strings.TrimSpace(s.Explorer.BaseURL); base != "" {
		n.ExplorerAPIURL = base
	}
	return n, nil
}

// MaskedAPIKey 用于展示的脱敏 API Key
func (s *Settings) MaskedAPIKey() string {
	key := s.Explorer.APIKey
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
	}
}

func overrideString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}
