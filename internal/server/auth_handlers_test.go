package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRegisterHandler(t *testing.T) {
	t.Run("creates the account and sets the session cookie", func(t *testing.T) {
		d := newTestServer(t)
		d.users.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 1
		}).Return(nil)

		req := jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username":  "alice",
			"email":     "alice@example.com",
			"password":  "hunter22x",
			"full_name": "Alice Liddell",
		})
		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Set-Cookie"), authCookieName+"=")

		body := decodeBody(t, resp)
		assert.NotEmpty(t, body["token"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "alice", user["username"])
		assert.Equal(t, string(models.RoleUser), user["role"])
		// The password hash never leaves the server.
		_, leaked := user["password"]
		assert.False(t, leaked)
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		d := newTestServer(t)
		d.users.On("Create", mock.Anything, mock.Anything).
			Return(models.NewConflictError("Username is already taken"))

		req := jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username":  "alice",
			"email":     "alice@example.com",
			"password":  "hunter22x",
			"full_name": "Alice Liddell",
		})
		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Username is already taken", decodeBody(t, resp)["message"])
	})

	t.Run("invalid payload is a 400", func(t *testing.T) {
		d := newTestServer(t)

		req := jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "alice",
		})
		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLoginHandler(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	account := &models.User{ID: 1, Username: "alice", Email: "alice@example.com", Password: string(hashed), Role: models.RoleUser}

	t.Run("success sets the cookie", func(t *testing.T) {
		d := newTestServer(t)
		d.users.On("GetByUsername", mock.Anything, "alice").Return(account, nil)

		req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "alice",
			"password":   "hunter22",
		})
		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Set-Cookie"), authCookieName+"=")
		assert.NotEmpty(t, decodeBody(t, resp)["token"])
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		d := newTestServer(t)
		d.users.On("GetByUsername", mock.Anything, "alice").Return(account, nil)

		req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "alice",
			"password":   "wrong",
		})
		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", decodeBody(t, resp)["message"])
	})

	t.Run("username is accepted as identifier alias", func(t *testing.T) {
		d := newTestServer(t)
		d.users.On("GetByUsername", mock.Anything, "alice").Return(account, nil)

		req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"username": "alice",
			"password": "hunter22",
		})
		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLogoutHandler(t *testing.T) {
	d := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	resp, err := d.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, authCookieName+"=")
	assert.Contains(t, setCookie, "expires=")
}

func TestProfileHandler(t *testing.T) {
	d := newTestServer(t)
	d.users.On("GetByID", mock.Anything, uint(5)).
		Return(&models.User{ID: 5, Username: "bob"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 5, models.RoleUser)})

	resp, err := d.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bob", decodeBody(t, resp)["username"])
}

func TestForgetPasswordHandler(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("oldpass99"), bcrypt.MinCost)
	require.NoError(t, err)

	d := newTestServer(t)
	d.users.On("GetByUsername", mock.Anything, "alice").
		Return(&models.User{ID: 1, Username: "alice", Email: "alice@example.com", Password: string(hashed)}, nil)
	d.users.On("Update", mock.Anything, mock.Anything).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/forget-password", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
	})
	resp, err := d.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["temp_password"])
}

func TestListUsersHandler(t *testing.T) {
	d := newTestServer(t)
	d.users.On("List", mock.Anything, 10, 0).
		Return([]models.User{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}, int64(12), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 1, models.RoleAdmin)})

	resp, err := d.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["data"], 2)
	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), pagination["page"])
	assert.Equal(t, float64(10), pagination["limit"])
	assert.Equal(t, float64(12), pagination["totalRows"])
	assert.Equal(t, float64(2), pagination["totalPages"])
}

func TestUpdateUserRoleHandler(t *testing.T) {
	t.Run("admin may promote", func(t *testing.T) {
		d := newTestServer(t)
		d.users.On("GetByID", mock.Anything, uint(2)).
			Return(&models.User{ID: 2, Role: models.RoleUser}, nil)
		d.users.On("Update", mock.Anything, mock.Anything).Return(nil)

		req := jsonRequest(t, http.MethodPut, "/api/auth/users/2/role", map[string]string{"role": "admin"})
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 1, models.RoleAdmin)})

		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "admin", decodeBody(t, resp)["role"])
	})

	t.Run("non-admin is forbidden by the middleware", func(t *testing.T) {
		d := newTestServer(t)

		req := jsonRequest(t, http.MethodPut, "/api/auth/users/2/role", map[string]string{"role": "admin"})
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 1, models.RoleUser)})

		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown role is a 400", func(t *testing.T) {
		d := newTestServer(t)

		req := jsonRequest(t, http.MethodPut, "/api/auth/users/2/role", map[string]string{"role": "superadmin"})
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 1, models.RoleAdmin)})

		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteUserHandler(t *testing.T) {
	t.Run("cascades before removing the account", func(t *testing.T) {
		d := newTestServer(t)
		d.users.On("GetByID", mock.Anything, uint(2)).
			Return(&models.User{ID: 2}, nil)
		d.posts.On("SoftDeleteByAuthor", mock.Anything, uint(2), uint(1)).Return(nil)
		d.comments.On("SoftDeleteByAuthor", mock.Anything, uint(2), uint(1)).Return(nil)
		d.users.On("Delete", mock.Anything, uint(2)).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/auth/users/2", nil)
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 1, models.RoleAdmin)})

		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		d.posts.AssertExpectations(t)
		d.comments.AssertExpectations(t)
		d.users.AssertExpectations(t)
	})

	t.Run("self deletion is rejected", func(t *testing.T) {
		d := newTestServer(t)

		req := httptest.NewRequest(http.MethodDelete, "/api/auth/users/1", nil)
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 1, models.RoleAdmin)})

		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad id is a 400", func(t *testing.T) {
		d := newTestServer(t)

		req := httptest.NewRequest(http.MethodDelete, "/api/auth/users/zero", nil)
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: d.authToken(t, 1, models.RoleAdmin)})

		resp, err := d.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
