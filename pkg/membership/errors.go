package membership

import "errors"

// Validation rejections. Callers distinguish "operation did not apply" from
// backend faults with errors.Is against these sentinels; anything else
// propagating out of a service method is a store error.
var (
	ErrEmptyRoleName    = errors.New("role name cannot be empty")
	ErrRoleExists       = errors.New("role already exists")
	ErrRoleNotFound     = errors.New("role not found")
	ErrRoleInUse        = errors.New("role has users assigned")
	ErrEmptyBatch       = errors.New("batch cannot be nil or empty")
	ErrNilUser          = errors.New("user cannot be nil")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrEmailExists      = errors.New("email already registered")
	ErrUserNotFound     = errors.New("user not found")
	ErrFieldTooLong     = errors.New("field exceeds maximum length")
	ErrAlreadyInRole    = errors.New("user already assigned to role")
	ErrNotInRole        = errors.New("user not assigned to role")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrWrongAnswer      = errors.New("password recovery answer does not match")
	ErrSignInNotAllowed = errors.New("sign-in not allowed for user")
	ErrInvalidPassword  = errors.New("invalid password")
)

// IsRejection reports whether err is a validation rejection rather than a
// backend fault. Rejections are safe to retry after correcting input.
func IsRejection(err error) bool {
	for _, sentinel := range []error{
		ErrEmptyRoleName, ErrRoleExists, ErrRoleNotFound, ErrRoleInUse,
		ErrEmptyBatch, ErrNilUser, ErrInvalidEmail, ErrEmailExists,
		ErrUserNotFound, ErrFieldTooLong, ErrAlreadyInRole, ErrNotInRole,
		ErrEmptyPassword, ErrWrongAnswer, ErrSignInNotAllowed, ErrInvalidPassword,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
