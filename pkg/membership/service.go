package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// MembershipService coordinates role and user lifecycle operations.
// It validates every input against the relational store before delegating
// mutations to the store or the credential backend.
//
// Validation rejections surface as the sentinel errors in errors.go;
// anything else is a store fault wrapped with context.
type MembershipService struct {
	repo   Repository
	creds  CredentialStore
	hasher PasswordHasher
}

// NewMembershipService creates a new membership service
func NewMembershipService(repo Repository, creds CredentialStore, hasher PasswordHasher) *MembershipService {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &MembershipService{
		repo:   repo,
		creds:  creds,
		hasher: hasher,
	}
}

// roleByName resolves a role name, mapping empty names and missing rows to
// validation rejections.
func (s *MembershipService) roleByName(ctx context.Context, name string) (Role, error) {
	if name == "" {
		return Role{}, ErrEmptyRoleName
	}
	role, err := s.repo.GetRoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, fmt.Errorf("failed to look up role: %w", err)
	}
	return role, nil
}

// checkUser verifies that user is non-nil, syntactically valid and present
// in the store.
func (s *MembershipService) checkUser(ctx context.Context, user *User) error {
	if user == nil {
		return ErrNilUser
	}
	if err := checkUserFields(*user); err != nil {
		return err
	}
	_, err := s.repo.GetUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return nil
}

// AddRole creates a new role. The name must be non-empty and not already
// taken.
func (s *MembershipService) AddRole(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyRoleName
	}

	_, err := s.repo.GetRoleByName(ctx, name)
	if err == nil {
		return ErrRoleExists
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return fmt.Errorf("failed to look up role: %w", err)
	}

	if _, err := s.repo.CreateRole(ctx, name); err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	slog.Info("Created role", "name", name)
	return nil
}

// AddRoles creates a batch of roles, all or nothing: if any name is empty or
// already exists, no role is added.
func (s *MembershipService) AddRoles(ctx context.Context, names []string) error {
	if err := checkRoleNames(names); err != nil {
		return err
	}

	for _, name := range names {
		_, err := s.repo.GetRoleByName(ctx, name)
		if err == nil {
			return ErrRoleExists
		}
		if !errors.Is(err, ErrRoleNotFound) {
			return fmt.Errorf("failed to look up role: %w", err)
		}
	}

	if _, err := s.repo.CreateRoles(ctx, names); err != nil {
		return fmt.Errorf("failed to create roles: %w", err)
	}

	slog.Info("Created roles", "count", len(names))
	return nil
}

// RemoveRole deletes a role. Fails when the role does not exist or still has
// users assigned.
func (s *MembershipService) RemoveRole(ctx context.Context, name string) error {
	role, err := s.roleByName(ctx, name)
	if err != nil {
		return err
	}

	count, err := s.repo.CountUsersInRole(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("failed to count users in role: %w", err)
	}
	if count > 0 {
		return ErrRoleInUse
	}

	if err := s.repo.DeleteRole(ctx, role.ID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	slog.Info("Removed role", "name", name)
	return nil
}

// RemoveRoles deletes a batch of roles. Every named role must exist and have
// zero assigned users, otherwise none is removed.
func (s *MembershipService) RemoveRoles(ctx context.Context, names []string) error {
	if err := checkRoleNames(names); err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		role, err := s.roleByName(ctx, name)
		if err != nil {
			return err
		}
		count, err := s.repo.CountUsersInRole(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("failed to count users in role: %w", err)
		}
		if count > 0 {
			return ErrRoleInUse
		}
		ids = append(ids, role.ID)
	}

	if err := s.repo.DeleteRoles(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete roles: %w", err)
	}

	slog.Info("Removed roles", "count", len(ids))
	return nil
}

// GetAllRoles returns the names of all roles. Order is not guaranteed.
func (s *MembershipService) GetAllRoles(ctx context.Context) ([]string, error) {
	roles, err := s.repo.FindRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find roles: %w", err)
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names, nil
}

// GetAllUsersInRole returns all users assigned to the named role. An unknown
// role yields an empty slice, not an error.
func (s *MembershipService) GetAllUsersInRole(ctx context.Context, name string) ([]User, error) {
	role, err := s.roleByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) || errors.Is(err, ErrEmptyRoleName) {
			return []User{}, nil
		}
		return nil, err
	}

	users, err := s.repo.FindUsersByRole(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find users in role: %w", err)
	}
	return users, nil
}

// AddUser validates and creates a new user account. Validation order: email
// syntax, role existence (when a role is requested), field length bounds,
// email uniqueness. When no password is given the default initial password
// is used. The recovery answer is hashed before it is persisted.
func (s *MembershipService) AddUser(ctx context.Context, params AddUserParams) (User, error) {
	if !IsValidEmail(params.Email) {
		return User{}, ErrInvalidEmail
	}

	var role Role
	if params.Role != nil {
		var err error
		role, err = s.roleByName(ctx, *params.Role)
		if err != nil {
			return User{}, err
		}
	}

	candidate := User{
		Email:            params.Email,
		FirstName:        params.FirstName,
		LastName:         params.LastName,
		PasswordQuestion: params.Question,
	}
	if err := checkUserFields(candidate); err != nil {
		return User{}, err
	}

	_, err := s.repo.GetUserByEmail(ctx, params.Email)
	if err == nil {
		return User{}, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	var answerHash string
	if params.Answer != "" {
		answerHash, err = s.hasher.Hash(params.Answer)
		if err != nil {
			return User{}, fmt.Errorf("failed to hash recovery answer: %w", err)
		}
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:              params.Email,
		FirstName:          params.FirstName,
		LastName:           params.LastName,
		PasswordQuestion:   params.Question,
		PasswordAnswerHash: answerHash,
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}

	password := params.Password
	if password == "" {
		password = DefaultInitialPassword
	}

	if err := s.creds.CreateCredential(ctx, user.ID, password); err != nil {
		// Roll back the user row so a failed credential write leaves no
		// half-created account behind.
		if delErr := s.repo.DeleteUser(ctx, user.ID); delErr != nil {
			slog.Error("Failed to roll back user after credential failure", "userId", user.ID, "err", delErr)
		}
		return User{}, fmt.Errorf("failed to create credential: %w", err)
	}

	if params.Role != nil {
		if err := s.repo.CreateUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID}); err != nil {
			return User{}, fmt.Errorf("failed to assign role: %w", err)
		}
	}

	slog.Info("Created user", "userId", user.ID, "email", user.Email)
	return user, nil
}

// RemoveUser deletes a user, their role assignments and their credential
func (s *MembershipService) RemoveUser(ctx context.Context, user *User) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	return s.removeUser(ctx, user.ID)
}

// RemoveUserByEmail deletes the user matching email
func (s *MembershipService) RemoveUserByEmail(ctx context.Context, email string) error {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.RemoveUser(ctx, user)
}

// RemoveUsers deletes a batch of users. The batch is rejected when it is
// empty or any entry fails validation; removals short-circuit on the first
// store failure.
func (s *MembershipService) RemoveUsers(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return ErrEmptyBatch
	}

	for i := range users {
		if err := s.checkUser(ctx, &users[i]); err != nil {
			return err
		}
	}

	for i := range users {
		if err := s.removeUser(ctx, users[i].ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *MembershipService) removeUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteUserRoles(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}
	if err := s.creds.DeleteCredential(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("Removed user", "userId", userID)
	return nil
}

// UpdateUser persists changes to a user's email, name fields and recovery
// question. The updated email must not collide with a different user.
func (s *MembershipService) UpdateUser(ctx context.Context, user *User) error {
	if user == nil {
		return ErrNilUser
	}
	if err := checkUserFields(*user); err != nil {
		return err
	}

	if _, err := s.repo.GetUser(ctx, user.ID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	existing, err := s.repo.GetUserByEmail(ctx, user.Email)
	if err == nil && existing.ID != user.ID {
		return ErrEmailExists
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if _, err := s.repo.UpdateUser(ctx, UpdateUserParams{
		ID:                 user.ID,
		Email:              user.Email,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		PasswordQuestion:   user.PasswordQuestion,
		PasswordAnswerHash: user.PasswordAnswerHash,
	}); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("Updated user", "userId", user.ID)
	return nil
}

// GetUser returns the user matching email, or nil when no user matches.
// Not found is not an error.
func (s *MembershipService) GetUser(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

// GetAllUsers returns all users. Order is not guaranteed.
func (s *MembershipService) GetAllUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.FindUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	return users, nil
}

// AddUserToRole assigns user to the named role. Fails when the user or role
// does not exist or the assignment is already present.
func (s *MembershipService) AddUserToRole(ctx context.Context, user *User, roleName string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}

	role, err := s.roleByName(ctx, roleName)
	if err != nil {
		return err
	}

	assigned, err := s.repo.HasUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID})
	if err != nil {
		return fmt.Errorf("failed to check assignment: %w", err)
	}
	if assigned {
		return ErrAlreadyInRole
	}

	if err := s.repo.CreateUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID}); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	slog.Info("Assigned role", "userId", user.ID, "role", roleName)
	return nil
}

// AddUserToRoles assigns user to every named role, all or nothing. The batch
// is rejected when it is empty, when any role is missing, or when the user
// already holds any of the requested roles.
func (s *MembershipService) AddUserToRoles(ctx context.Context, user *User, roleNames []string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if err := checkRoleNames(roleNames); err != nil {
		return err
	}

	roles := make([]Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.roleByName(ctx, name)
		if err != nil {
			return err
		}
		assigned, err := s.repo.HasUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID})
		if err != nil {
			return fmt.Errorf("failed to check assignment: %w", err)
		}
		if assigned {
			return ErrAlreadyInRole
		}
		roles = append(roles, role)
	}

	for _, role := range roles {
		if err := s.repo.CreateUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID}); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
	}

	slog.Info("Assigned roles", "userId", user.ID, "count", len(roles))
	return nil
}

// RemoveUserFromRole removes an existing assignment
func (s *MembershipService) RemoveUserFromRole(ctx context.Context, user *User, roleName string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}

	role, err := s.roleByName(ctx, roleName)
	if err != nil {
		return err
	}

	assigned, err := s.repo.HasUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID})
	if err != nil {
		return fmt.Errorf("failed to check assignment: %w", err)
	}
	if !assigned {
		return ErrNotInRole
	}

	if err := s.repo.DeleteUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID}); err != nil {
		return fmt.Errorf("failed to remove assignment: %w", err)
	}

	slog.Info("Removed role assignment", "userId", user.ID, "role", roleName)
	return nil
}

// RemoveUserFromRoles removes every named assignment, all or nothing: each
// role must exist and the user must currently hold it.
func (s *MembershipService) RemoveUserFromRoles(ctx context.Context, user *User, roleNames []string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if err := checkRoleNames(roleNames); err != nil {
		return err
	}

	roles := make([]Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.roleByName(ctx, name)
		if err != nil {
			return err
		}
		assigned, err := s.repo.HasUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID})
		if err != nil {
			return fmt.Errorf("failed to check assignment: %w", err)
		}
		if !assigned {
			return ErrNotInRole
		}
		roles = append(roles, role)
	}

	for _, role := range roles {
		if err := s.repo.DeleteUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID}); err != nil {
			return fmt.Errorf("failed to remove assignment: %w", err)
		}
	}
	return nil
}

// IsUserInRole reports whether user holds the named role. Fails closed:
// a nil or unknown user, or an empty or unknown role, yields false.
func (s *MembershipService) IsUserInRole(ctx context.Context, user *User, roleName string) (bool, error) {
	if err := s.checkUser(ctx, user); err != nil {
		if IsRejection(err) {
			return false, nil
		}
		return false, err
	}

	role, err := s.roleByName(ctx, roleName)
	if err != nil {
		if IsRejection(err) {
			return false, nil
		}
		return false, err
	}

	return s.repo.HasUserRole(ctx, UserRoleParams{UserID: user.ID, RoleID: role.ID})
}

// GetRolesForUser returns the names of all roles assigned to user
func (s *MembershipService) GetRolesForUser(ctx context.Context, user *User) ([]string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}

	roles, err := s.repo.FindRolesByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find roles for user: %w", err)
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names, nil
}

// CheckPassword reports whether password authenticates user. Fails closed
// for a nil or unknown user and for an empty password.
func (s *MembershipService) CheckPassword(ctx context.Context, user *User, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	if err := s.checkUser(ctx, user); err != nil {
		if IsRejection(err) {
			return false, nil
		}
		return false, err
	}

	return s.creds.CheckPassword(ctx, user.ID, password)
}

// ChangePassword verifies oldPassword and replaces it with newPassword
func (s *MembershipService) ChangePassword(ctx context.Context, user *User, oldPassword, newPassword string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if oldPassword == "" || newPassword == "" {
		return ErrEmptyPassword
	}

	ok, err := s.creds.ChangePassword(ctx, user.ID, oldPassword, newPassword)
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	if !ok {
		return ErrInvalidPassword
	}

	slog.Info("Changed password", "userId", user.ID)
	return nil
}

// ResetPassword verifies the password-recovery answer against the stored
// hash and, on match, issues newPassword through a reset token. A mismatch
// leaves all state untouched.
func (s *MembershipService) ResetPassword(ctx context.Context, user *User, answer, newPassword string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if newPassword == "" {
		return ErrEmptyPassword
	}
	if answer == "" || user.PasswordAnswerHash == "" {
		return ErrWrongAnswer
	}

	match, err := VerifyHash(answer, user.PasswordAnswerHash)
	if err != nil {
		return fmt.Errorf("failed to verify recovery answer: %w", err)
	}
	if !match {
		return ErrWrongAnswer
	}

	token, err := s.creds.GeneratePasswordResetToken(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.creds.ResetPassword(ctx, user.ID, token, newPassword); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	slog.Info("Reset password", "userId", user.ID)
	return nil
}

// SignIn establishes a session for user. An empty password performs a
// persistent non-password sign-in; otherwise the password is verified first.
// Sign-in is refused while the user is locked out.
func (s *MembershipService) SignIn(ctx context.Context, user *User, password string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}

	allowed, err := s.creds.CanSignIn(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to check sign-in state: %w", err)
	}
	if !allowed {
		return ErrSignInNotAllowed
	}

	if password == "" {
		if err := s.creds.SignIn(ctx, user.ID, true); err != nil {
			return fmt.Errorf("failed to sign in: %w", err)
		}
		return nil
	}

	ok, err := s.creds.PasswordSignIn(ctx, user.ID, password, true, false)
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	if !ok {
		return ErrInvalidPassword
	}
	return nil
}

// SignInByEmail resolves email and signs the matching user in
func (s *MembershipService) SignInByEmail(ctx context.Context, email, password string) error {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.SignIn(ctx, user, password)
}

// AddUserExternalLogin links an external provider login to user
func (s *MembershipService) AddUserExternalLogin(ctx context.Context, user *User, login ExternalLogin) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if err := s.creds.AddExternalLogin(ctx, user.ID, login); err != nil {
		return fmt.Errorf("failed to add external login: %w", err)
	}
	return nil
}
