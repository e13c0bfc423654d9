package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// password policy
var (
	pwdMinLen = 8
	pwdMaxSim = .7

	pwdMinLenText  = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)
	pwdNoSpaceText = "password must not contain whitespace"
	pwdAllNumText  = "password cannot be entirely numeric"
	pwdAttrSimText = "password cannot be similar to account attributes"
	pwdPolicyField = "newPass"
)

func pwdPolicyError(text string) error {
	return NewValidationError(errors.New(text), FieldError{Field: pwdPolicyField, Error: text})
}

// ValidatePassword applies the password policy to a chosen password. attrs are
// the account's known attributes (name, email); a password too similar to any
// of them is rejected.
func ValidatePassword(pwd string, attrs ...string) error {
	if len(pwd) < pwdMinLen {
		return pwdPolicyError(pwdMinLenText)
	}

	digitCount := 0
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdPolicyError(pwdNoSpaceText)
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(pwd) {
		return pwdPolicyError(pwdAllNumText)
	}

	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		m := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, ""))
		if m.QuickRatio() >= pwdMaxSim {
			return pwdPolicyError(pwdAttrSimText)
		}
	}
	return nil
}
