package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 13
)

// PhoneRejection is the structured reason a phone candidate was refused.
type PhoneRejection string

const (
	PhoneTooShort PhoneRejection = "too_short"
	PhoneTooLong  PhoneRejection = "too_long"
)

// PhoneError is returned by PhoneNormalizer.Normalize for out-of-range input.
type PhoneError struct {
	Reason PhoneRejection
	Digits int
}

func (e *PhoneError) Error() string {
	return fmt.Sprintf("phone rejected: %s (%d digits)", e.Reason, e.Digits)
}

// Phone is a canonicalized phone candidate.
type Phone struct {
	// Digits is the raw digit string as typed, used for storage and display.
	Digits string
	// Handle is the dialable international number without '+'.
	Handle string
	// Plausible reports whether libphonenumber considers the handle a valid
	// number. Informational only.
	Plausible bool
}

// PhoneNormalizer turns user-typed phone strings into dialable handles.
type PhoneNormalizer struct {
	CountryCode string
	Region      string
}

// NewPhoneNormalizer returns a normalizer for the given country calling code
// (e.g. "55") and region (e.g. "BR").
func NewPhoneNormalizer(countryCode, region string) PhoneNormalizer {
	if countryCode == "" {
		countryCode = "55"
	}
	if region == "" {
		region = "BR"
	}
	return PhoneNormalizer{CountryCode: countryCode, Region: strings.ToUpper(region)}
}

// Normalize strips non-digits and builds the handle:
//
//	10 digits  AA########  -> CC AA 9 ########
//	11 digits              -> CC + digits
//	starts with CC         -> digits
//	otherwise              -> CC + digits
//
// Fewer than 10 or more than 13 digits is rejected with a *PhoneError.
func (p PhoneNormalizer) Normalize(raw string) (Phone, error) {
	digits := onlyDigits(raw)
	switch n := len(digits); {
	case n < minPhoneDigits:
		return Phone{}, &PhoneError{Reason: PhoneTooShort, Digits: n}
	case n > maxPhoneDigits:
		return Phone{}, &PhoneError{Reason: PhoneTooLong, Digits: n}
	}

	var handle string
	switch {
	case len(digits) == 10:
		handle = p.CountryCode + digits[:2] + "9" + digits[2:]
	case len(digits) == 11:
		handle = p.CountryCode + digits
	case strings.HasPrefix(digits, p.CountryCode):
		handle = digits
	default:
		handle = p.CountryCode + digits
	}

	return Phone{Digits: digits, Handle: handle, Plausible: p.plausible(handle)}, nil
}

func (p PhoneNormalizer) plausible(handle string) bool {
	num, err := phonenumbers.Parse("+"+handle, p.Region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// LooksLikePhone reports whether msg carries 10 to 13 digits once everything
// else is stripped.
func LooksLikePhone(msg string) bool {
	n := len(onlyDigits(msg))
	return n >= minPhoneDigits && n <= maxPhoneDigits
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
