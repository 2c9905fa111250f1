package user

import (
	"bufio"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/tutora/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"

	//go:embed assets/common-passwords.txt
	commonPasswordsRaw string
	commonPasswords    = loadCommonPasswords(commonPasswordsRaw)

	passwordTexts = map[string]string{
		pwdMinLenTag:     pwdMinLenText,
		pwdNoSpaceTag:    pwdNoSpaceText,
		pwdNotAllNumTag:  pwdNotAllNumText,
		pwdComplexityTag: pwdComplexityText,
		pwdAttrSimTag:    pwdAttrSimText,
		pwdNoCommonTag:   pwdNoCommonText,
	}
)

// InitValidators registers the password policy on NewUser.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(userStructValidation, NewUser{})
	for tag, text := range passwordTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

func loadCommonPasswords(raw string) []string {
	pwds := make([]string, 0, 64)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, strings.ToLower(pwd))
		}
	}
	sort.Strings(pwds)
	return pwds
}

// userStructValidation does struct level validation on NewUser.
func userStructValidation(sl validator.StructLevel) {
	if nu, ok := sl.Current().Interface().(NewUser); ok {
		if tag := checkPassword(nu.Password, nu.Name, nu.Email); tag != "" {
			sl.ReportError(nu.Password, "password", "Password", tag, "")
		}
	}
}

// passwordError returns a ValidationError when pwd breaks the policy, nil otherwise.
func passwordError(pwd string, attrs ...string) error {
	tag := checkPassword(pwd, attrs...)
	if tag == "" {
		return nil
	}
	text := passwordTexts[tag]
	return core.NewValidationError(nil, core.FieldError{Field: "password", Error: text})
}

// checkPassword applies the password policy to pwd and returns the tag of the first broken rule:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func checkPassword(pwd string, attrs ...string) string {
	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		return pwdComplexityTag
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(usrAttr), "")).QuickRatio()
	}
	for _, attr := range attrs {
		if getRatio(pwd, attr) >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdNoCommonTag
	}
	return ""
}
