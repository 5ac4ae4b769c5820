package lightmanager

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCode 地址/住宅码格式错误
var ErrInvalidCode = errors.New("invalid FS20 code")

// ParseCode 解析 FS20 四进制地址串（每位 1-4，长度为偶数）。
// 每两位组成一个半字节：(a-1)*4 + (b-1)，高位在前。
// maxDigits 限制最大位数（地址 4 位，住宅码 8 位）。
func ParseCode(s string, maxDigits int) (uint16, error) {
	if len(s) == 0 || len(s)%2 != 0 || len(s) > maxDigits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	var v uint16
	for i := 0; i < len(s); i += 2 {
		a, b := s[i]-'0', s[i+1]-'0'
		if a < 1 || a > 4 || b < 1 || b > 4 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCode, s)
		}
		v = v<<4 | uint16((a-1)*4+(b-1))
	}
	return v, nil
}

// FormatCode 将编码值格式化为 digits 位四进制串
func FormatCode(v uint16, digits int) string {
	var b strings.Builder
	for shift := (digits/2 - 1) * 4; shift >= 0; shift -= 4 {
		n := byte(v>>uint(shift)) & 0x0f
		b.WriteByte('1' + n/4)
		b.WriteByte('1' + n%4)
	}
	return b.String()
}

// ParseHousecode 解析 2-8 位住宅码
func ParseHousecode(s string) (uint16, error) { return ParseCode(s, 8) }

// FormatHousecode 住宅码总是输出 8 位
func FormatHousecode(v uint16) string { return FormatCode(v, 8) }

// ParseAddress 解析 FS20 设备地址（2 或 4 位，ggss）
func ParseAddress(s string) (uint8, error) {
	v, err := ParseCode(s, 4)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | v%10)
}
