// Package field implements the typed content-value model of the vault: the
// eleven field kinds, their validation rules, and bank card network
// detection.
//
// Validation is deliberately side-effect free: the same kind and value always
// produce the same verdict, and an invalid value yields a user-displayable
// message rather than an error.
package field

// Kind identifies the type of a content field. The kind decides how a value
// is validated and whether it is stored with field-level encryption.
type Kind string

// The supported field kinds.
const (
	Number         Kind = "Number"
	Text           Kind = "Text"
	LongText       Kind = "LongText"
	SensitiveText  Kind = "SensitiveText"
	Date           Kind = "Date"
	Password       Kind = "Password"
	TOTPSecret     Kind = "TOTPSecret"
	URL            Kind = "Url"
	Email          Kind = "Email"
	PhoneNumber    Kind = "PhoneNumber"
	BankCardNumber Kind = "BankCardNumber"
)

// Kinds lists every supported kind.
var Kinds = []Kind{
	Number,
	Text,
	LongText,
	SensitiveText,
	Date,
	Password,
	TOTPSecret,
	URL,
	Email,
	PhoneNumber,
	BankCardNumber,
}

// Known reports whether k is one of the supported kinds.
func Known(k Kind) bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Sensitive reports whether values of this kind are stored with field-level
// authenticated encryption and are only decrypted on demand.
func Sensitive(k Kind) bool {
	switch k {
	case SensitiveText, Password, TOTPSecret, BankCardNumber:
		return true
	default:
		return false
	}
}
