package membership

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage.
// Intended for tests and quick starts; production deployments use
// PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]User
	roles     map[uuid.UUID]Role
	userRoles map[uuid.UUID][]uuid.UUID // userID -> []roleID
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:     make(map[uuid.UUID]User),
		roles:     make(map[uuid.UUID]Role),
		userRoles: make(map[uuid.UUID][]uuid.UUID),
	}
}

// CreateUser creates a new user row
func (r *InMemoryRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	user := User{
		ID:                 uuid.New(),
		Email:              params.Email,
		FirstName:          params.FirstName,
		LastName:           params.LastName,
		PasswordQuestion:   params.PasswordQuestion,
		PasswordAnswerHash: params.PasswordAnswerHash,
		CreatedAt:          now,
		LastModifiedAt:     now,
	}

	r.users[user.ID] = user
	r.userRoles[user.ID] = []uuid.UUID{}
	return user, nil
}

// GetUser gets a user by ID
func (r *InMemoryRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail gets a user by email
func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

// FindUsers returns all users
func (r *InMemoryRepository) FindUsers(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

// UpdateUser updates a user row
func (r *InMemoryRepository) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[params.ID]
	if !ok {
		return User{}, ErrUserNotFound
	}

	user.Email = params.Email
	user.FirstName = params.FirstName
	user.LastName = params.LastName
	user.PasswordQuestion = params.PasswordQuestion
	user.PasswordAnswerHash = params.PasswordAnswerHash
	user.LastModifiedAt = time.Now()
	r.users[params.ID] = user
	return user, nil
}

// DeleteUser deletes a user row
func (r *InMemoryRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	delete(r.userRoles, id)
	return nil
}

// AnyUserExists reports whether any user row exists
func (r *InMemoryRepository) AnyUserExists(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users) > 0, nil
}

// CreateRole creates a new role row
func (r *InMemoryRepository) CreateRole(ctx context.Context, name string) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role := Role{ID: uuid.New(), Name: name}
	r.roles[role.ID] = role
	return role, nil
}

// CreateRoles creates a batch of role rows atomically
func (r *InMemoryRepository) CreateRoles(ctx context.Context, names []string) ([]Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roles := make([]Role, 0, len(names))
	for _, name := range names {
		role := Role{ID: uuid.New(), Name: name}
		r.roles[role.ID] = role
		roles = append(roles, role)
	}
	return roles, nil
}

// GetRoleByName gets a role by name
func (r *InMemoryRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

// FindRoles returns all roles
func (r *InMemoryRepository) FindRoles(ctx context.Context) ([]Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

// DeleteRole deletes a role row
func (r *InMemoryRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[id]; !ok {
		return ErrRoleNotFound
	}
	delete(r.roles, id)
	for userID, roleIDs := range r.userRoles {
		r.userRoles[userID] = removeID(roleIDs, id)
	}
	return nil
}

// DeleteRoles deletes a batch of role rows atomically
func (r *InMemoryRepository) DeleteRoles(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if _, ok := r.roles[id]; !ok {
			return ErrRoleNotFound
		}
	}
	for _, id := range ids {
		delete(r.roles, id)
		for userID, roleIDs := range r.userRoles {
			r.userRoles[userID] = removeID(roleIDs, id)
		}
	}
	return nil
}

// CreateUserRole creates a user-role assignment
func (r *InMemoryRepository) CreateUserRole(ctx context.Context, params UserRoleParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[params.UserID]; !ok {
		return ErrUserNotFound
	}
	if _, ok := r.roles[params.RoleID]; !ok {
		return ErrRoleNotFound
	}

	// At most one assignment per pair
	for _, roleID := range r.userRoles[params.UserID] {
		if roleID == params.RoleID {
			return nil
		}
	}
	r.userRoles[params.UserID] = append(r.userRoles[params.UserID], params.RoleID)
	return nil
}

// DeleteUserRole deletes a user-role assignment
func (r *InMemoryRepository) DeleteUserRole(ctx context.Context, params UserRoleParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userRoles[params.UserID] = removeID(r.userRoles[params.UserID], params.RoleID)
	return nil
}

// DeleteUserRoles deletes all assignments for a user
func (r *InMemoryRepository) DeleteUserRoles(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userRoles[userID] = []uuid.UUID{}
	return nil
}

// HasUserRole reports whether the assignment exists
func (r *InMemoryRepository) HasUserRole(ctx context.Context, params UserRoleParams) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, roleID := range r.userRoles[params.UserID] {
		if roleID == params.RoleID {
			return true, nil
		}
	}
	return false, nil
}

// FindUsersByRole returns all users assigned to a role
func (r *InMemoryRepository) FindUsersByRole(ctx context.Context, roleID uuid.UUID) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0)
	for userID, roleIDs := range r.userRoles {
		for _, id := range roleIDs {
			if id == roleID {
				if user, ok := r.users[userID]; ok {
					users = append(users, user)
				}
				break
			}
		}
	}
	return users, nil
}

// FindRolesByUser returns all roles assigned to a user
func (r *InMemoryRepository) FindRolesByUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roleIDs := r.userRoles[userID]
	roles := make([]Role, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		if role, ok := r.roles[roleID]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

// CountUsersInRole counts users assigned to a role
func (r *InMemoryRepository) CountUsersInRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, roleIDs := range r.userRoles {
		for _, id := range roleIDs {
			if id == roleID {
				count++
				break
			}
		}
	}
	return count, nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
