package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL.
// Unique constraints on users.email and roles.name back up the service's
// pre-checks against concurrent writers.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	email varchar(255) NOT NULL UNIQUE,
	first_name varchar(100),
	last_name varchar(100),
	password_question varchar(100),
	password_answer_hash text,
	created_at timestamptz NOT NULL DEFAULT now(),
	last_modified_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS roles (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name varchar(255) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	role_id uuid NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, role_id)
);
`

// EnsureSchema creates the membership tables when they do not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const userColumns = "id, email, first_name, last_name, password_question, password_answer_hash, created_at, last_modified_at"

func scanUser(row pgx.Row) (User, error) {
	var user User
	var firstName, lastName, question, answerHash *string
	err := row.Scan(&user.ID, &user.Email, &firstName, &lastName, &question, &answerHash, &user.CreatedAt, &user.LastModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.FirstName = deref(firstName)
	user.LastName = deref(lastName)
	user.PasswordQuestion = deref(question)
	user.PasswordAnswerHash = deref(answerHash)
	return user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toNull(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateUser creates a new user row
func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	query := `
		INSERT INTO users (email, first_name, last_name, password_question, password_answer_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	row := r.db.QueryRow(ctx, query,
		params.Email,
		toNull(params.FirstName),
		toNull(params.LastName),
		toNull(params.PasswordQuestion),
		toNull(params.PasswordAnswerHash),
	)
	return scanUser(row)
}

// GetUser gets a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetUserByEmail gets a user by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindUsers returns all users
func (r *PostgresRepository) FindUsers(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser updates a user row
func (r *PostgresRepository) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, password_question = $5,
		    password_answer_hash = $6, last_modified_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	row := r.db.QueryRow(ctx, query,
		params.ID,
		params.Email,
		toNull(params.FirstName),
		toNull(params.LastName),
		toNull(params.PasswordQuestion),
		toNull(params.PasswordAnswerHash),
	)
	return scanUser(row)
}

// DeleteUser deletes a user row
func (r *PostgresRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AnyUserExists reports whether any user row exists
func (r *PostgresRepository) AnyUserExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists)
	return exists, err
}

// CreateRole creates a new role row
func (r *PostgresRepository) CreateRole(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.db.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id, name`, name).
		Scan(&role.ID, &role.Name)
	return role, err
}

// CreateRoles creates a batch of role rows in one statement so the batch is
// atomic without an explicit transaction
func (r *PostgresRepository) CreateRoles(ctx context.Context, names []string) ([]Role, error) {
	if len(names) == 0 {
		return []Role{}, nil
	}

	placeholders := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names))
	for i, name := range names {
		placeholders = append(placeholders, fmt.Sprintf("($%d)", i+1))
		args = append(args, name)
	}

	query := `INSERT INTO roles (name) VALUES ` + strings.Join(placeholders, ", ") + ` RETURNING id, name`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]Role, 0, len(names))
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRoleByName gets a role by name
func (r *PostgresRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// FindRoles returns all roles
func (r *PostgresRepository) FindRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM roles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]Role, 0)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// DeleteRole deletes a role row
func (r *PostgresRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// DeleteRoles deletes a batch of role rows in one statement
func (r *PostgresRepository) DeleteRoles(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return ErrRoleNotFound
	}
	return nil
}

// CreateUserRole creates a user-role assignment
func (r *PostgresRepository) CreateUserRole(ctx context.Context, params UserRoleParams) error {
	query := `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, params.UserID, params.RoleID)
	return err
}

// DeleteUserRole deletes a user-role assignment
func (r *PostgresRepository) DeleteUserRole(ctx context.Context, params UserRoleParams) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		params.UserID, params.RoleID)
	return err
}

// DeleteUserRoles deletes all assignments for a user
func (r *PostgresRepository) DeleteUserRoles(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	return err
}

// HasUserRole reports whether the assignment exists
func (r *PostgresRepository) HasUserRole(ctx context.Context, params UserRoleParams) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`,
		params.UserID, params.RoleID).Scan(&exists)
	return exists, err
}

// FindUsersByRole returns all users assigned to a role
func (r *PostgresRepository) FindUsersByRole(ctx context.Context, roleID uuid.UUID) ([]User, error) {
	query := `
		SELECT ` + prefixColumns("u", userColumns) + `
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role_id = $1
	`
	rows, err := r.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

// FindRolesByUser returns all roles assigned to a user
func (r *PostgresRepository) FindRolesByUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	query := `
		SELECT r.id, r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]Role, 0)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CountUsersInRole counts users assigned to a role
func (r *PostgresRepository) CountUsersInRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = prefix + "." + part
	}
	return strings.Join(parts, ", ")
}
