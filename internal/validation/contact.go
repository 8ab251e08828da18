package validation

import (
	"regexp"
	"strings"

	"travel_booking/internal/domain"
)

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigit = regexp.MustCompile(`\D`)
)

const phoneDigits = 10

// Contact checks every field and returns all violations, ordered name, email, phone, address.
// Format rules only run on non-blank values, so a blank field reports Required alone.
func Contact(c domain.ContactFields) domain.FieldErrors {
	var errs domain.FieldErrors
	required := func(field, v string) bool {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, domain.FieldError{Field: field, Code: domain.Required})
			return false
		}
		return true
	}

	required("name", c.Name)
	if required("email", c.Email) && !ValidEmail(c.Email) {
		errs = append(errs, domain.FieldError{Field: "email", Code: domain.InvalidFormat})
	}
	if required("phone", c.Phone) && !ValidPhone(c.Phone) {
		errs = append(errs, domain.FieldError{Field: "phone", Code: domain.InvalidFormat})
	}
	required("address", c.Address)

	return errs
}

func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func ValidPhone(s string) bool {
	return len(NormalizePhone(s)) == phoneDigits
}

// NormalizePhone strips everything but digits.
func NormalizePhone(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}
