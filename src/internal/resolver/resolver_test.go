package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/solidity-assistant/src/config"
)

const testAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// newTestResolver 启动一个假的浏览器接口，返回解析器和请求计数
func newTestResolver(t *testing.T, handler http.HandlerFunc) (*Resolver, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	network := config.Network{Name: "sepolia", ChainID: 11155111, ExplorerAPIURL: srv.URL + "/api"}
	r, err := New(Config{APIKey: "test-key", Network: network, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return r, &calls
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestResolveRawSourcePassThrough(t *testing.T) {
	r, calls := newTestResolver(t, jsonHandler(`{}`))

	inputs := []string{
		"pragma solidity ^0.8.0;\ncontract A {}",
		"",
		"0x1234",
		"  " + testAddress,
	}
	for _, in := range inputs {
		got, err := r.Resolve(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
	assert.Equal(t, int32(0), calls.Load(), "raw source must not hit the explorer")
}

func TestResolveVerifiedSource(t *testing.T) {
	source := "// SPDX-License-Identifier: MIT\npragma solidity ^0.8.20;\n\ncontract Counter {\n\tuint256 public n;\n}\n"

	var gotQuery map[string]string
	r, calls := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		gotQuery = map[string]string{
			"module":  q.Get("module"),
			"action":  q.Get("action"),
			"address": q.Get("address"),
			"apikey":  q.Get("apikey"),
			"chainid": q.Get("chainid"),
		}
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/api", req.URL.Path)
		jsonHandler(`{"status":"1","message":"OK","result":[{"SourceCode":` + quote(source) + `,"ContractName":"Counter"}]}`)(w, req)
	})

	got, err := r.Resolve(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, source, got)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, map[string]string{
		"module":  "contract",
		"action":  "getsourcecode",
		"address": testAddress,
		"apikey":  "test-key",
		"chainid": "11155111",
	}, gotQuery)
}

func TestResolveNotFoundSentinel(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty source code", body: `{"status":"1","message":"OK","result":[{"SourceCode":"","ABI":"Contract source code not verified"}]}`},
		{name: "status zero", body: `{"status":"0","message":"NOTOK","result":[{"SourceCode":"contract A {}"}]}`},
		{name: "string result", body: `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`},
		{name: "empty result array", body: `{"status":"1","message":"OK","result":[]}`},
		{name: "missing result", body: `{"status":"1","message":"OK"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, calls := newTestResolver(t, jsonHandler(tt.body))

			got, err := r.Resolve(context.Background(), testAddress)
			require.NoError(t, err)
			assert.Equal(t, "// No verified source code found for address "+testAddress+" on sepolia", got)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestResolveTransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "malformed json",
			handler: jsonHandler(`{"status":`),
		},
		{
			name:    "malformed result entries",
			handler: jsonHandler(`{"status":"1","message":"OK","result":[{"SourceCode":123}]}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, calls := newTestResolver(t, tt.handler)

			got, err := r.Resolve(context.Background(), testAddress)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.Equal(t, int32(1), calls.Load(), "no retries")

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, testAddress, te.Address)
			assert.Equal(t, "sepolia", te.Network)
			assert.Equal(t, tt.wantStatus, te.StatusCode)
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r, err := New(Config{
		APIKey:  "secret-key",
		Network: config.Network{Name: "sepolia", ExplorerAPIURL: url},
		Timeout: time.Second,
	})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), testAddress)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestResolveContextCanceled(t *testing.T) {
	r, _ := newTestResolver(t, jsonHandler(`{"status":"1","result":[]}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, testAddress)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveIsIdempotent(t *testing.T) {
	r, calls := newTestResolver(t, jsonHandler(`{"status":"1","message":"OK","result":[{"SourceCode":"contract A {}"}]}`))

	first, err := r.Resolve(context.Background(), testAddress)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), calls.Load(), "results are not cached")
}

func TestLookupResult(t *testing.T) {
	r, _ := newTestResolver(t, jsonHandler(`{"status":"1","message":"OK","result":[{"SourceCode":""}]}`))

	res, err := r.Lookup(context.Background(), testAddress)
	require.NoError(t, err)
	assert.True(t, res.NotFound)
	assert.Empty(t, res.Source)
	assert.Equal(t, res.Sentinel(), res.Text())
	assert.True(t, strings.HasPrefix(res.Text(), "// No verified source code found"))
}

func TestNewRequiresExplorerURL(t *testing.T) {
	_, err := New(Config{Network: config.Network{Name: "sepolia"}})
	require.Error(t, err)
}

func TestNewRejectsBadProxy(t *testing.T) {
	_, err := New(Config{
		Network: config.Network{Name: "sepolia", ExplorerAPIURL: "https://api-sepolia.etherscan.io/api"},
		Proxy:   "ftp://127.0.0.1:21",
	})
	require.Error(t, err)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
