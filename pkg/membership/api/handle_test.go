package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-membership/pkg/membership"
	"github.com/tendant/simple-membership/pkg/notification"
)

// recordingNotifier captures every notification instead of sending it
type recordingNotifier struct {
	sent []notification.NotificationData
}

func (n *recordingNotifier) Send(data notification.NotificationData) error {
	n.sent = append(n.sent, data)
	return nil
}

func setupTestRouter(t *testing.T) (chi.Router, *membership.MembershipService, *recordingNotifier) {
	repo := membership.NewInMemoryRepository()
	creds := membership.NewInMemoryCredentialStore(&membership.BcryptV1Hasher{})
	service := membership.NewMembershipService(repo, creds, &membership.BcryptV1Hasher{})

	notifier := &recordingNotifier{}
	handle := NewHandle(service, notifier)

	r := chi.NewRouter()
	handle.RegisterRoutes(r)
	return r, service, notifier
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRoleEndpoints(t *testing.T) {
	t.Run("create and list roles", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/roles", CreateRoleRequest{Name: "admin"})
		assert.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/roles", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var roles []string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
		assert.Equal(t, []string{"admin"}, roles)
	})

	t.Run("batch create", func(t *testing.T) {
		router, service, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/roles", CreateRoleRequest{Names: []string{"a", "b"}})
		assert.Equal(t, http.StatusCreated, rec.Code)

		roles, err := service.GetAllRoles(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, roles)
	})

	t.Run("duplicate role yields conflict", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		doJSON(t, router, http.MethodPost, "/api/roles", CreateRoleRequest{Name: "admin"})
		rec := doJSON(t, router, http.MethodPost, "/api/roles", CreateRoleRequest{Name: "admin"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("empty name yields bad request", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/roles", CreateRoleRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete role", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		doJSON(t, router, http.MethodPost, "/api/roles", CreateRoleRequest{Name: "temp"})
		rec := doJSON(t, router, http.MethodDelete, "/api/roles/temp", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodDelete, "/api/roles/temp", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUserEndpoints(t *testing.T) {
	t.Run("create and fetch user", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{
			Email:     "jane@example.com",
			Password:  "Secret1!",
			FirstName: "Jane",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/users/jane@example.com", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var user membership.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "Jane", user.FirstName)
	})

	t.Run("invalid email yields bad request", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Email: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate email yields conflict", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Email: "dup@example.com", Password: "x1"})
		rec := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Email: "dup@example.com", Password: "x1"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown user yields not found", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodGet, "/api/users/ghost@example.com", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create without password notifies the initial password", func(t *testing.T) {
		router, _, notifier := setupTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Email: "invited@example.com"})
		require.Equal(t, http.StatusCreated, rec.Code)

		require.Len(t, notifier.sent, 1)
		assert.Equal(t, "invited@example.com", notifier.sent[0].To)
	})

	t.Run("delete user", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Email: "gone@example.com", Password: "x1"})
		rec := doJSON(t, router, http.MethodDelete, "/api/users/gone@example.com", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/users/gone@example.com", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRoleAssignmentEndpoints(t *testing.T) {
	setup := func(t *testing.T) (chi.Router, *membership.MembershipService) {
		router, service, _ := setupTestRouter(t)
		doJSON(t, router, http.MethodPost, "/api/roles", CreateRoleRequest{Names: []string{"admin", "user"}})
		doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Email: "jane@example.com", Password: "x1"})
		return router, service
	}

	t.Run("assign and list", func(t *testing.T) {
		router, _ := setup(t)

		rec := doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/roles", AssignRoleRequest{Roles: []string{"admin"}})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/users/jane@example.com/roles", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var roles []string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
		assert.Equal(t, []string{"admin"}, roles)
	})

	t.Run("duplicate assignment yields conflict", func(t *testing.T) {
		router, _ := setup(t)

		doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/roles", AssignRoleRequest{Roles: []string{"admin"}})
		rec := doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/roles", AssignRoleRequest{Roles: []string{"admin"}})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unassign", func(t *testing.T) {
		router, _ := setup(t)

		doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/roles", AssignRoleRequest{Roles: []string{"admin"}})
		rec := doJSON(t, router, http.MethodDelete, "/api/users/jane@example.com/roles/admin", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodDelete, "/api/users/jane@example.com/roles/admin", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("role in use cannot be deleted", func(t *testing.T) {
		router, _ := setup(t)

		doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/roles", AssignRoleRequest{Roles: []string{"admin"}})
		rec := doJSON(t, router, http.MethodDelete, "/api/roles/admin", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("list users in role", func(t *testing.T) {
		router, _ := setup(t)

		doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/roles", AssignRoleRequest{Roles: []string{"admin"}})
		rec := doJSON(t, router, http.MethodGet, "/api/roles/admin/users", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var users []membership.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		require.Len(t, users, 1)
		assert.Equal(t, "jane@example.com", users[0].Email)
	})
}

func TestPasswordEndpoints(t *testing.T) {
	setup := func(t *testing.T) (chi.Router, *membership.MembershipService) {
		router, service, _ := setupTestRouter(t)
		doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{
			Email:    "jane@example.com",
			Password: "Original1!",
			Question: "favorite color",
			Answer:   "blue",
		})
		return router, service
	}

	t.Run("change password", func(t *testing.T) {
		router, _ := setup(t)

		rec := doJSON(t, router, http.MethodPut, "/api/users/jane@example.com/password", PasswordChangeRequest{
			OldPassword: "Original1!",
			NewPassword: "Fresh1!",
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/api/signin", SignInRequest{Email: "jane@example.com", Password: "Fresh1!"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong old password yields bad request", func(t *testing.T) {
		router, _ := setup(t)

		rec := doJSON(t, router, http.MethodPut, "/api/users/jane@example.com/password", PasswordChangeRequest{
			OldPassword: "wrong",
			NewPassword: "Fresh1!",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reset with recovery answer", func(t *testing.T) {
		router, _ := setup(t)

		rec := doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/password/reset", PasswordResetRequest{
			Answer:      "blue",
			NewPassword: "Fresh1!",
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/api/signin", SignInRequest{Email: "jane@example.com", Password: "Fresh1!"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong answer yields bad request", func(t *testing.T) {
		router, _ := setup(t)

		rec := doJSON(t, router, http.MethodPost, "/api/users/jane@example.com/password/reset", PasswordResetRequest{
			Answer:      "red",
			NewPassword: "Fresh1!",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/api/signin", SignInRequest{Email: "jane@example.com", Password: "Original1!"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSignInEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Email: "jane@example.com", Password: "Secret1!"})

	t.Run("valid credentials", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/signin", SignInRequest{Email: "jane@example.com", Password: "Secret1!"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/signin", SignInRequest{Email: "jane@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/signin", SignInRequest{Email: "ghost@example.com", Password: "Secret1!"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
