package extract

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

var (
	phoneStrip  = regexp.MustCompile(`[\s\-\.\(\)]`)
	phoneDigits = regexp.MustCompile(`^\+?\d{7,15}$`)
)

// ValidEmail reports whether s is a well-formed email address.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && govalidator.IsEmail(s)
}

// NormalizePhone strips common separators and returns "" when s is not a phone number.
func NormalizePhone(s string) string {
	p := phoneStrip.ReplaceAllString(strings.TrimSpace(s), "")
	if !phoneDigits.MatchString(p) {
		return ""
	}
	return p
}

func ValidPhone(s string) bool {
	return NormalizePhone(s) != ""
}

// Valid applies the format check implied by the field name or its validation
// rule. Fields without a known rule are valid whenever they hold a real value.
func Valid(field, rule string, value any) bool {
	if !model.HasRealValue(value) {
		return false
	}
	s := model.StringValue(value)
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case "email":
		return ValidEmail(s)
	case "phone":
		return ValidPhone(s)
	}
	switch field {
	case model.FieldEmail:
		return ValidEmail(s)
	case model.FieldPhone:
		return ValidPhone(s)
	}
	return true
}

// ValidatedContact returns the first contact field in data that passes its format check.
func ValidatedContact(data map[string]any) (field, value string, ok bool) {
	if v := model.Lookup(data, model.FieldEmail); v != "" && ValidEmail(v) {
		return model.FieldEmail, v, true
	}
	if v := model.Lookup(data, model.FieldPhone); v != "" && ValidPhone(v) {
		return model.FieldPhone, v, true
	}
	return "", "", false
}
