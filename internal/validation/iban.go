package validation

import (
	"errors"
	"regexp"
)

var (
	// ErrIBANFormat - the value is not shaped like an IBAN
	ErrIBANFormat = errors.New("iban: malformed")
	// ErrIBANLength - the length does not match the country's registered IBAN length
	ErrIBANLength = errors.New("iban: wrong length for country")
	// ErrIBANChecksum - mod-97 check failed
	ErrIBANChecksum = errors.New("iban: checksum mismatch")
)

// country code, two check digits, 10 to 30 alphanumeric BBAN characters
var rxIBAN = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{10,30}$`)

// registered IBAN lengths for the countries we see most; others only get the generic shape check
var ibanLengths = map[string]int{
	"AT": 20, "BE": 16, "CH": 21, "CZ": 24, "DE": 22, "DK": 18, "EE": 20, "ES": 24,
	"FI": 18, "FR": 27, "GB": 22, "IE": 22, "IT": 27, "LT": 20, "LU": 20, "LV": 21,
	"NL": 18, "NO": 15, "PL": 28, "PT": 25, "SE": 24,
}

// ValidateIBAN checks structure and the ISO 7064 mod-97 checksum.
func ValidateIBAN(iban string) error {
	if !rxIBAN.MatchString(iban) {
		return ErrIBANFormat
	}
	if n, ok := ibanLengths[iban[:2]]; ok && len(iban) != n {
		return ErrIBANLength
	}
	if mod97(iban[4:]+iban[:4]) != 1 {
		return ErrIBANChecksum
	}
	return nil
}

// IsValidIBAN is the boolean form of ValidateIBAN
func IsValidIBAN(iban string) bool {
	return ValidateIBAN(iban) == nil
}

// IBANCountry returns the country code of a structurally valid IBAN, or "".
func IBANCountry(iban string) string {
	if len(iban) < 2 {
		return ""
	}
	return iban[:2]
}

// mod97 folds the numeral digit by digit, letters expand to two digits (A=10 ... Z=35).
func mod97(s string) int {
	r := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			r = (r*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			r = (r*100 + int(c-'A') + 10) % 97
		}
	}
	return r
}
