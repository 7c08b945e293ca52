package membership

import (
	"github.com/mcnijman/go-emailaddress"
)

// IsValidEmail reports whether email is syntactically valid
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := emailaddress.Parse(email)
	return err == nil
}

// checkUserFields validates the syntactic invariants on a user record:
// email format and the length bounds on the optional fields.
func checkUserFields(u User) error {
	if !IsValidEmail(u.Email) {
		return ErrInvalidEmail
	}
	if len(u.FirstName) > FirstNameMaxLen {
		return ErrFieldTooLong
	}
	if len(u.LastName) > LastNameMaxLen {
		return ErrFieldTooLong
	}
	if len(u.PasswordQuestion) > PasswordQuestionMaxLen {
		return ErrFieldTooLong
	}
	return nil
}

// checkRoleNames validates a batch of role names: the batch must be non-empty
// and contain no empty names.
func checkRoleNames(names []string) error {
	if len(names) == 0 {
		return ErrEmptyBatch
	}
	for _, name := range names {
		if name == "" {
			return ErrEmptyRoleName
		}
	}
	return nil
}
