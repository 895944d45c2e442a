package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/solidity-assistant/src/config"
	"github.com/admi-n/solidity-assistant/src/internal/ai"
	"github.com/admi-n/solidity-assistant/src/internal/handler"
)

const testAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// isolate 清空相关环境变量并切到空目录，避免读取本机配置
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ETHERSCAN_API_KEY", "ETHERSCAN_BASE_URL", "EXPLORER_NETWORK", "HTTP_PROXY_URL",
		"INFERENCE_ENGINE", "OLLAMA_BIN", "OLLAMA_MODEL", "OLLAMA_HOST", "ETH_RPC_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

// fakeOllama 写一个假的 ollama 并通过 OLLAMA_BIN 指向它
func fakeOllama(t *testing.T, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ollama")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	t.Setenv("OLLAMA_BIN", path)
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestGenerateCommand(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat >/dev/null\nprintf 'contract Token {}'\n")

	stdout, stderr, err := run(t, "", "generate", "Create", "a", "token")
	require.NoError(t, err)
	assert.Equal(t, "contract Token {}\n", stdout)
	assert.Contains(t, stderr, "生成完成")
}

func TestGenerateCommandPromptFromStdin(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat\n")

	stdout, _, err := run(t, "Create a token", "generate", "-")
	require.NoError(t, err)
	assert.Equal(t, "Instruction: Create a token\nOutput format:\n[Solidity Code]\n[Explanation]\n[Security Tradeoffs]\n", stdout)
}

func TestExplainCommandRawSource(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat\n")

	stdout, _, err := run(t, "pragma solidity ^0.8.0; contract X {}", "explain", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "### Explanation\n\n"))
	assert.Contains(t, stdout, "Analyze the following smart contract code:\npragma solidity ^0.8.0; contract X {}\n\n")
}

func TestExplainCommandAddressWithReport(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat\n")

	var gotAddress, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		gotKey = r.URL.Query().Get("apikey")
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract Verified {}"}]}`))
	}))
	defer srv.Close()
	t.Setenv("ETHERSCAN_BASE_URL", srv.URL)
	t.Setenv("ETHERSCAN_API_KEY", "key-123")

	target := filepath.Join(t.TempDir(), "explain.md")
	stdout, stderr, err := run(t, "", "explain", testAddress, "--output", target)
	require.NoError(t, err)

	assert.Equal(t, testAddress, gotAddress)
	assert.Equal(t, "key-123", gotKey)
	assert.Contains(t, stdout, "contract Verified {}")
	assert.Contains(t, stderr, target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Explain Contract")
	assert.Contains(t, string(data), "```solidity\ncontract Verified {}\n```")
}

func TestExplainCommandAddressFromStdin(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat\n")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, testAddress, r.URL.Query().Get("address"))
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract Piped {}"}]}`))
	}))
	defer srv.Close()
	t.Setenv("ETHERSCAN_BASE_URL", srv.URL)

	stdout, _, err := run(t, testAddress+"\n", "explain", "-")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, stdout, "Analyze the following smart contract code:\ncontract Piped {}\n")
}

func TestExplainCommandNotFound(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Contract source code not verified"}`))
	}))
	defer srv.Close()
	t.Setenv("ETHERSCAN_BASE_URL", srv.URL)

	stdout, _, err := run(t, "", "explain", testAddress, "--network", "mainnet")
	require.NoError(t, err)
	assert.Contains(t, stdout, "// No verified source code found for address "+testAddress+" on mainnet")
}

func TestExplainCommandEmptyInput(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat\n")

	_, _, err := run(t, "", "explain", "   ")
	assert.ErrorIs(t, err, handler.ErrEmptyInput)
}

func TestGenerateCommandEngineFailure(t *testing.T) {
	isolate(t)
	fakeOllama(t, "cat >/dev/null\necho 'Error: model \"gemma3:4b\" not found' >&2\nexit 1\n")

	stdout, _, err := run(t, "", "generate", "Create a token")
	assert.Empty(t, stdout)

	var engineErr *ai.InferenceEngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, 1, engineErr.ExitCode)
	assert.Contains(t, handler.Describe(err), "not found")
}

func TestGenerateCommandTimeoutFlag(t *testing.T) {
	isolate(t)
	fakeOllama(t, "exec sleep 10\n")

	_, _, err := run(t, "", "generate", "Create a token", "--timeout", "200ms")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, strings.HasSuffix(handler.Describe(err), "run gemma3:4b failed: timed out"))
}

func TestResolveCommandRawSource(t *testing.T) {
	isolate(t)

	stdout, _, err := run(t, "", "resolve", "contract A {}")
	require.NoError(t, err)
	assert.Equal(t, "contract A {}\n", stdout)
}

func TestNetworksCommand(t *testing.T) {
	isolate(t)

	stdout, _, err := run(t, "", "networks")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sepolia *")
	assert.Contains(t, stdout, "11155111")
	assert.Contains(t, stdout, "https://api.etherscan.io/api")
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	isolate(t)
	t.Setenv("ETHERSCAN_API_KEY", "abcd1234efgh5678")

	stdout, _, err := run(t, "", "config", "show", "--model", "llama3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "abcd********5678")
	assert.NotContains(t, stdout, "abcd1234efgh5678")
	assert.Contains(t, stdout, "model: llama3")
}

func TestInvalidFlags(t *testing.T) {
	isolate(t)

	_, _, err := run(t, "", "networks", "--network", "goerli")
	assert.ErrorIs(t, err, config.ErrUnknownNetwork)

	_, _, err = run(t, "", "networks", "--engine", "chatgpt5")
	assert.Error(t, err)

	_, _, err = run(t, "", "networks", "--proxy", "ftp://127.0.0.1")
	assert.Error(t, err)
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Token.sol")
	require.NoError(t, os.WriteFile(file, []byte("contract Token {}\n"), 0o644))

	tests := []struct {
		name    string
		args    []string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "args joined", args: []string{"Create", "a", "token"}, want: "Create a token"},
		{name: "dash reads stdin", args: []string{"-"}, stdin: "from stdin", want: "from stdin"},
		{name: "file", file: file, want: "contract Token {}"},
		{name: "stdin keeps inner newlines", args: []string{"-"}, stdin: "a\n\nb\n\n", want: "a\n\nb\n"},
		{name: "stdin crlf", args: []string{"-"}, stdin: testAddress + "\r\n", want: testAddress},
		{name: "file dash reads stdin", file: "-", stdin: "piped", want: "piped"},
		{name: "file with args", file: file, args: []string{"x"}, wantErr: true},
		{name: "missing file", file: filepath.Join(dir, "missing.sol"), wantErr: true},
		{name: "no input", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readInput(tt.args, tt.file, strings.NewReader(tt.stdin))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
