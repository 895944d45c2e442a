package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/admi-n/solidity-assistant/src/config"
)

// maxErrorSnippet 非 2xx 时错误信息中保留的响应体长度
const maxErrorSnippet = 1024

// EtherscanResponse Etherscan getsourcecode 响应结构。
// 出错时 result 是一个字符串（例如 "Invalid API Key"），所以先保留原始 JSON。
type EtherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// SourceCodeEntry result 数组中的单个元素
type SourceCodeEntry struct {
	SourceCode      string `json:"SourceCode"`
	ABI             string `json:"ABI"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
	Proxy           string `json:"Proxy"`
	Implementation  string `json:"Implementation"`
}

// Entries 解析 result 数组。result 不是数组（例如错误说明文本）时返回 nil, nil；
// 是数组但元素结构不对时返回错误
func (r *EtherscanResponse) Entries() ([]SourceCodeEntry, error) {
	trimmed := bytes.TrimSpace(r.Result)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}
	var entries []SourceCodeEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// VerifiedSource 只有 status=="1" 且 result[0].SourceCode 非空才算成功，源码原样返回
func (r *EtherscanResponse) VerifiedSource() (string, bool) {
	if r.Status != "1" {
		return "", false
	}
	entries, err := r.Entries()
	if err != nil || len(entries) == 0 || entries[0].SourceCode == "" {
		return "", false
	}
	return entries[0].SourceCode, true
}

// buildSourceCodeURL 使用 url.Values 构建查询，避免拼接错误
func buildSourceCodeURL(network config.Network, address, apiKey string) (string, error) {
	u, err := url.Parse(network.ExplorerAPIURL)
	if err != nil {
		return "", fmt.Errorf("invalid explorer API URL %q: %w", network.ExplorerAPIURL, err)
	}

	q := u.Query()
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", address)
	q.Set("apikey", apiKey)
	if network.ChainID != 0 {
		q.Set("chainid", strconv.FormatUint(network.ChainID, 10))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// fetchSourceCode 发起一次 getsourcecode 请求，不重试。
// 网络错误、非 2xx、响应体不可读或 JSON 损坏都返回 *TransportError。
func fetchSourceCode(ctx context.Context, client *http.Client, network config.Network, address, apiKey string) (*EtherscanResponse, error) {
	transportErr := func(status int, err error) error {
		return &TransportError{
			Address:    address,
			Network:    network.Name,
			StatusCode: status,
			Err:        err,
		}
	}

	finalURL, err := buildSourceCodeURL(network, address, apiKey)
	if err != nil {
		return nil, transportErr(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, transportErr(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", "solidity-assistant/1.0")

	resp, err := client.Do(req)
	if err != nil {
		// 不把带 apikey 的 URL 带进错误信息
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, transportErr(0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr(0, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet]
		}
		return nil, transportErr(resp.StatusCode, fmt.Errorf("unexpected status, body: %s", snippet))
	}

	var etherscanResp EtherscanResponse
	if err := json.Unmarshal(body, &etherscanResp); err != nil {
		return nil, transportErr(0, fmt.Errorf("malformed JSON response: %w", err))
	}
	if _, err := etherscanResp.Entries(); err != nil {
		return nil, transportErr(0, fmt.Errorf("malformed result: %w", err))
	}

	return &etherscanResp, nil
}
