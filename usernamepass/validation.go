package usernamepass

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/goliatone/go-userbase"
)

// Form fields read by the module.
const (
	FieldUsername        = "username"
	FieldPassword        = "pass"
	FieldRepeatPassword  = "repeatpass"
	FieldCurrentPassword = "currentpass"
	FieldName            = "name"
	FieldEmail           = "email"
	FieldRemember        = "remember"
)

const (
	msgPasswordMismatch   = "Passwords don't match"
	msgPasswordTooShort   = "Passwords must be at least %d characters long"
	msgPasswordMissing    = "Passwords must be specified"
	msgNewPasswordMissing = "You must specify new password"
	msgPasswordRequired   = "You must set password when setting username and email"
	msgWrongCurrentPass   = "You entered wrong current password"
	msgUsernameTooShort   = "Username must be at least %d characters long"
	msgUsernameTooLong    = "Username must be no more then %d characters long"
	msgUsernamePattern    = "Username must start with the letter and contain only latin letters, digits or '.' symbols"
	msgUsernameMissing    = "No username passed"
	msgNameEmpty          = "Name can't be empty"
	msgNameMissing        = "No name specified"
	msgEmailInvalid       = "Invalid email address"
	msgEmailMissing       = "No email specified"
	msgUsernameTaken      = "This username is already used, please pick another one"
	msgEmailTaken         = "This email is already used by another user, please enter another email address."
)

var usernamePattern = regexp.MustCompile(`^[a-z][a-z0-9.]*[a-z0-9]$`)

// NormalizeUsername lower-cases and trims a submitted username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// check runs every rule against value on its own so one field can collect
// several messages. Rules that ozzo skips for empty values are paired with
// a Required rule carrying the same message.
func check(errs *userbase.FieldErrors, field, value string, rules ...validation.Rule) {
	for _, rule := range rules {
		if err := validation.Validate(value, rule); err != nil {
			addOnce(errs, field, err.Error())
		}
	}
}

func addOnce(errs *userbase.FieldErrors, field, message string) {
	for _, existing := range errs.Get(field) {
		if existing == message {
			return
		}
	}
	errs.Add(field, message)
}

func equals(other, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != other {
			return errors.New(message)
		}
		return nil
	}
}

func (m *Module) validateUsername(errs *userbase.FieldErrors, form userbase.FormData) string {
	raw, ok := form.Lookup(FieldUsername)
	if !ok {
		errs.Add(FieldUsername, msgUsernameMissing)
		return ""
	}

	username := NormalizeUsername(raw)
	tooShort := fmt.Sprintf(msgUsernameTooShort, m.policy.UsernameMinLength)
	tooLong := fmt.Sprintf(msgUsernameTooLong, m.policy.UsernameMaxLength)

	rules := []validation.Rule{
		validation.Required.Error(tooShort),
		validation.Length(m.policy.UsernameMinLength, 0).Error(tooShort),
	}
	if m.policy.UsernameMaxLength > 0 {
		rules = append(rules, validation.Length(0, m.policy.UsernameMaxLength).Error(tooLong))
	}
	rules = append(rules,
		validation.Required.Error(msgUsernamePattern),
		validation.Match(usernamePattern).Error(msgUsernamePattern),
	)

	check(errs, FieldUsername, username, rules...)
	return username
}

func (m *Module) validateName(errs *userbase.FieldErrors, form userbase.FormData) string {
	if !form.Has(FieldName) {
		errs.Add(FieldName, msgNameMissing)
		return ""
	}
	name := form.Trimmed(FieldName)
	check(errs, FieldName, name, validation.Required.Error(msgNameEmpty))
	return name
}

func (m *Module) validateEmail(errs *userbase.FieldErrors, form userbase.FormData) string {
	if !form.Has(FieldEmail) {
		errs.Add(FieldEmail, msgEmailMissing)
		return ""
	}
	email := form.Trimmed(FieldEmail)
	check(errs, FieldEmail, email,
		validation.Required.Error(msgEmailInvalid),
		is.Email.Error(msgEmailInvalid),
	)
	return email
}

// validatePassword checks pass against the length policy and repeatpass
// against pass when both were submitted. A missing pass is treated as
// empty.
func (m *Module) validatePassword(errs *userbase.FieldErrors, form userbase.FormData) {
	pass := form.Get(FieldPassword)
	tooShort := fmt.Sprintf(msgPasswordTooShort, m.policy.MinPasswordLength)

	if repeat, ok := form.Lookup(FieldRepeatPassword); ok && form.Has(FieldPassword) {
		check(errs, FieldRepeatPassword, repeat, validation.By(equals(pass, msgPasswordMismatch)))
	}

	rules := []validation.Rule{validation.Length(m.policy.MinPasswordLength, 0).Error(tooShort)}
	if m.policy.MinPasswordLength > 0 {
		rules = append([]validation.Rule{validation.Required.Error(tooShort)}, rules...)
	}
	check(errs, FieldPassword, pass, rules...)
}

// conflictField maps the field named by a duplicate error to the form
// field it came from.
func conflictField(err error) (string, string) {
	switch userbase.DuplicateField(err) {
	case userbase.DuplicateFieldEmail:
		return FieldEmail, msgEmailTaken
	default:
		return FieldUsername, msgUsernameTaken
	}
}
