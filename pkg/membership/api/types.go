package api

// CreateUserRequest is the payload for creating a user
type CreateUserRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password,omitempty"`
	Question  string  `json:"question,omitempty"`
	Answer    string  `json:"answer,omitempty"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty"`
}

// CreateUserInput binds the create-user body via httpin
type CreateUserInput struct {
	Payload *CreateUserRequest `in:"body=json"`
}

// CreateRoleRequest is the payload for creating one or more roles
type CreateRoleRequest struct {
	Name  string   `json:"name,omitempty"`
	Names []string `json:"names,omitempty"`
}

// CreateRoleInput binds the create-role body via httpin
type CreateRoleInput struct {
	Payload *CreateRoleRequest `in:"body=json"`
}

// AssignRoleRequest is the payload for role assignment operations
type AssignRoleRequest struct {
	Roles []string `json:"roles"`
}

// AssignRoleInput binds the assign-role body via httpin
type AssignRoleInput struct {
	Payload *AssignRoleRequest `in:"body=json"`
}

// PasswordChangeRequest is the payload for changing a password
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// PasswordResetRequest is the payload for resetting a password via the
// recovery answer
type PasswordResetRequest struct {
	Answer      string `json:"answer"`
	NewPassword string `json:"new_password"`
}

// SignInRequest is the payload for signing in
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}
