package resolver

import "strings"

const (
	// AddressPrefix 地址必须以此开头
	AddressPrefix = "0x"
	// AddressLength 含前缀的地址总长度
	AddressLength = 42
)

// Kind 用户输入的分类结果
type Kind int

const (
	KindRawSource Kind = iota
	KindAddress
)

func (k Kind) String() string {
	if k == KindAddress {
		return "address"
	}
	return "source"
}

// Classify 判断输入是合约地址还是源码。
// 以 0x 开头且总长度恰好为 42 即视为地址，其余一律视为源码，不会拒绝任何输入。
// 这里不校验十六进制字符，保持与界面原有行为一致。
func Classify(identifier string) Kind {
	if strings.HasPrefix(identifier, AddressPrefix) && len(identifier) == AddressLength {
		return KindAddress
	}
	return KindRawSource
}

// IsAddress 是 Classify 的便捷形式
func IsAddress(identifier string) bool {
	return Classify(identifier) == KindAddress
}
