package internal

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProxyManager 为 Etherscan 和本地模型 HTTP 接口构建带可选代理的客户端
type ProxyManager struct {
	proxyURL *url.URL
}

// NewProxyManager 创建代理管理器，proxyURL 为空表示直连
func NewProxyManager(proxyURL string) (*ProxyManager, error) {
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return &ProxyManager{}, nil
	}

	if err := ValidateProxyURL(proxyURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	return &ProxyManager{proxyURL: u}, nil
}

// CreateHTTPClient 创建HTTP客户端，timeout 为 0 时不设置超时
func (pm *ProxyManager) CreateHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: pm.CreateHTTPTransport(),
	}
}

// CreateHTTPTransport 创建 Transport，不修改全局 http.DefaultTransport
func (pm *ProxyManager) CreateHTTPTransport() *http.Transport {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     30 * time.Second,
	}

	if pm.proxyURL != nil {
		transport.Proxy = http.ProxyURL(pm.proxyURL)
	}

	return transport
}

// IsEnabled 检查代理是否启用
func (pm *ProxyManager) IsEnabled() bool {
	return pm.proxyURL != nil
}

// GetProxyURL 获取代理URL
func (pm *ProxyManager) GetProxyURL() string {
	if pm.proxyURL != nil {
		return pm.proxyURL.String()
	}
	return ""
}

// ValidateProxyURL 验证代理URL格式
func ValidateProxyURL(proxyURL string) error {
	if strings.TrimSpace(proxyURL) == "" {
		return nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "socks5" {
		return fmt.Errorf("unsupported proxy scheme: %q (supported: http, https, socks5)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("proxy host cannot be empty")
	}

	return nil
}

// CreateProxyHTTPClient 便捷函数：创建带代理的HTTP客户端
func CreateProxyHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	pm, err := NewProxyManager(proxyURL)
	if err != nil {
		return nil, err
	}

	return pm.CreateHTTPClient(timeout), nil
}
