// Package phone 把访客输入的手机号规范化为 11 位本地号码（01XXXXXXXXX）。
package phone

import (
	"errors"
	"strings"
)

// ErrInvalid 表示号码无法规范化为合法的本地手机号。
var ErrInvalid = errors.New("invalid phone number")

const (
	countryPrefix = "88"
	localLength   = 11
)

// Normalize 去掉非数字字符与国家码前缀，对 10 位裸号补回前导 0。
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == localLength+len(countryPrefix) && strings.HasPrefix(digits, countryPrefix) {
		digits = strings.TrimPrefix(digits, countryPrefix)
	}
	if len(digits) == localLength-1 && strings.HasPrefix(digits, "1") {
		digits = "0" + digits
	}

	if len(digits) != localLength || !strings.HasPrefix(digits, "01") {
		return "", ErrInvalid
	}
	return digits, nil
}

// Valid 报告号码能否被规范化。
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
