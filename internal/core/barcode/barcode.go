// Package barcode validates EAN-8 and EAN-13 product codes.
package barcode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBarcode 條碼格式或校驗碼錯誤
var ErrInvalidBarcode = errors.New("invalid barcode")

// InvalidBarcodeError 描述條碼無效的原因
type InvalidBarcodeError struct {
	Code   string
	Reason string
}

func (e *InvalidBarcodeError) Error() string {
	return fmt.Sprintf("invalid barcode %q: %s", e.Code, e.Reason)
}

func (e *InvalidBarcodeError) Unwrap() error {
	return ErrInvalidBarcode
}

// Format 條碼格式
type Format string

const (
	EAN8  Format = "EAN-8"
	EAN13 Format = "EAN-13"
)

// Barcode 已通過驗證的條碼，只能由 Validate 產生
type Barcode struct {
	code   string
	format Format
}

// String 條碼數字
func (b Barcode) String() string { return b.code }

// Format 條碼格式
func (b Barcode) Format() Format { return b.format }

// IsZero 是否為零值
func (b Barcode) IsZero() bool { return b.code == "" }

// Prefix GS1 三位數前綴；EAN-8 同樣取前三碼
func (b Barcode) Prefix() string {
	if len(b.code) < 3 {
		return ""
	}
	return b.code[:3]
}

// Validate 驗證 8 或 13 位數字條碼與 GS1 mod-10 校驗碼
func Validate(code string) (Barcode, error) {
	c := strings.TrimSpace(code)
	if c == "" {
		return Barcode{}, &InvalidBarcodeError{Code: code, Reason: "empty"}
	}
	for _, r := range c {
		if r < '0' || r > '9' {
			return Barcode{}, &InvalidBarcodeError{Code: code, Reason: "must contain only digits"}
		}
	}

	var format Format
	switch len(c) {
	case 8:
		format = EAN8
	case 13:
		format = EAN13
	default:
		return Barcode{}, &InvalidBarcodeError{Code: code, Reason: "must be 8 or 13 digits"}
	}

	if want := CheckDigit(c[:len(c)-1]); int(c[len(c)-1]-'0') != want {
		return Barcode{}, &InvalidBarcodeError{Code: code, Reason: "checksum mismatch"}
	}
	return Barcode{code: c, format: format}, nil
}

// CheckDigit 計算 GS1 校驗碼；自右至左第一位權重 3，交替 1
func CheckDigit(payload string) int {
	sum := 0
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if (len(payload)-1-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// IsValid 便利函式
func IsValid(code string) bool {
	_, err := Validate(code)
	return err == nil
}
