package resolver

import "fmt"

// TransportError 浏览器接口不可达或返回了无法解析的数据。
// 与 NotFound 不同，这是真正的错误，调用方可以用 errors.As 区分。
type TransportError struct {
	Address    string
	Network    string
	StatusCode int // 非 2xx 时的 HTTP 状态码，其余情况为 0
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("explorer lookup for %s on %s failed with HTTP %d: %v", e.Address, e.Network, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("explorer lookup for %s on %s failed: %v", e.Address, e.Network, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
