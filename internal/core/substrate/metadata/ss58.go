package metadata

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// ss58Prefix 校验和哈希前缀
var ss58Prefix = []byte("SS58PRE")

// ErrInvalidAddress 地址格式或校验和错误
var ErrInvalidAddress = errors.New("invalid ss58 address")

// DecodeAddress 解析 SS58 地址，返回 32 字节公钥与网络前缀
func DecodeAddress(addr string) ([]byte, uint16, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	var (
		format    uint16
		prefixLen int
	)
	switch {
	case len(raw) == 0:
		return nil, 0, ErrInvalidAddress
	case raw[0] < 64:
		format, prefixLen = uint16(raw[0]), 1
	case raw[0] < 128 && len(raw) > 1:
		// 两字节前缀：低 6 位在第一字节，其余在第二字节
		lower := ((raw[0] & 0x3f) << 2) | (raw[1] >> 6)
		upper := raw[1] & 0x3f
		format, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return nil, 0, ErrInvalidAddress
	}

	if len(raw) != prefixLen+32+2 {
		return nil, 0, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(raw))
	}
	body := raw[:prefixLen+32]
	sum := ss58Checksum(body)
	if !bytes.Equal(sum[:2], raw[prefixLen+32:]) {
		return nil, 0, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return append([]byte(nil), raw[prefixLen:prefixLen+32]...), format, nil
}

// EncodeAddress 以单字节网络前缀编码 SS58 地址
func EncodeAddress(pub []byte, format uint8) (string, error) {
	if len(pub) != 32 || format >= 64 {
		return "", ErrInvalidAddress
	}
	body := append([]byte{format}, pub...)
	sum := ss58Checksum(body)
	return base58.Encode(append(body, sum[:2]...)), nil
}

func ss58Checksum(body []byte) [64]byte {
	return blake2b.Sum512(append(append([]byte(nil), ss58Prefix...), body...))
}
