package field

import (
	"encoding/base32"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the ISO-8601 date layout accepted by Date fields.
const DateLayout = "2006-01-02"

// minTOTPSecretBytes is the RFC 6238 minimum shared secret size (128 bits).
const minTOTPSecretBytes = 16

// vld is the shared validator instance used for format checks. A single
// instance is safe for concurrent use and caches compiled tag pipelines.
var vld = validator.New()

// Validate checks a value against the rules of its kind and returns a
// user-displayable message, or "" when the value is valid.
//
// An unknown kind is a programming error, not user input, and panics.
func Validate(kind Kind, value string) string {
	switch kind {
	case Number:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "Invalid number"
		}
		return ""
	case LongText:
		// Free-form notes: always valid, including empty.
		return ""
	case Text, SensitiveText, Password:
		if strings.TrimSpace(value) == "" {
			return "Value cannot be empty"
		}
		return ""
	case Date:
		if _, err := time.Parse(DateLayout, value); err != nil {
			return "Invalid date"
		}
		return ""
	case TOTPSecret:
		if _, err := ParseTOTPSecret(value); err != nil {
			return "Invalid OTP Secret"
		}
		return ""
	case URL:
		// A URL field also accepts a bare IPv4 or IPv6 host.
		if vld.Var(value, "url") == nil ||
			vld.Var(value, "ip4_addr") == nil ||
			vld.Var(value, "ip6_addr") == nil {
			return ""
		}
		return "Invalid URL"
	case Email:
		if vld.Var(value, "email") != nil {
			return "Invalid email"
		}
		return ""
	case PhoneNumber:
		if vld.Var(value, "e164") != nil {
			return "Invalid phone number"
		}
		return ""
	case BankCardNumber:
		return validateCardNumber(value)
	default:
		panic(fmt.Sprintf("field: unknown kind %q", kind))
	}
}

// ParseTOTPSecret canonicalizes a base32 TOTP shared secret: whitespace and
// padding are stripped, letters are uppercased. The decoded secret must meet
// the RFC 6238 minimum of 128 bits. Returns the canonical base32 form.
func ParseTOTPSecret(secret string) (string, error) {
	canonical := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	canonical = strings.TrimRight(canonical, "=")
	if canonical == "" {
		return "", fmt.Errorf("field: empty TOTP secret")
	}

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(canonical)
	if err != nil {
		return "", fmt.Errorf("field: malformed base32 secret: %w", err)
	}
	if len(raw) < minTOTPSecretBytes {
		return "", fmt.Errorf("field: TOTP secret below %d-bit minimum", minTOTPSecretBytes*8)
	}
	return canonical, nil
}
