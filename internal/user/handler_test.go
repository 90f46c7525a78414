package user_test

import (
	"net/http"
	"strings"
	"testing"

	"student-manager/internal/user"
	"student-manager/testing/testapp"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler(t *testing.T) {
	env := testapp.New(t)
	defer env.Cleanup(t)

	t.Run("CreateUser_Success", func(t *testing.T) {
		env.Reset(t)

		payload := testapp.UserPayload("student")
		payload["email"] = "A@X.com"
		payload["phoneNumber"] = 912345678
		resp := env.Do(t, http.MethodPost, "/users", payload)

		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "Created User", resp.Message)
		assert.NotContains(t, string(resp.Data), "password")
		assert.NotContains(t, string(resp.Data), "secret123")

		var got user.User
		resp.Decode(t, &got)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "a@x.com", got.Email)
		assert.Equal(t, user.RoleStudent, got.Role)
		assert.Equal(t, user.PhoneNumber("912345678"), got.PhoneNumber)
		assert.Equal(t, []string{}, got.ClassIDs)
	})

	t.Run("CreateUser_DuplicateEmail", func(t *testing.T) {
		env.Reset(t)

		payload := testapp.UserPayload("student")
		resp := env.Do(t, http.MethodPost, "/users", payload)
		require.Equal(t, http.StatusCreated, resp.Code)

		resp = env.Do(t, http.MethodPost, "/users", payload)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Email Already Exists", resp.Message)
		assert.True(t, resp.IsNull())
	})

	t.Run("CreateUser_ValidationErrors", func(t *testing.T) {
		env.Reset(t)

		tests := []struct {
			name    string
			mutate  func(p map[string]any)
			message string
		}{
			{"MissingUsername", func(p map[string]any) { delete(p, "username") }, "Username Is Required"},
			{"InvalidEmail", func(p map[string]any) { p["email"] = "not-an-email" }, "Email Is Invalid"},
			{"UnknownRole", func(p map[string]any) { p["role"] = "teacher" }, "User Role Invalid"},
			{"BadDate", func(p map[string]any) { p["dateOfBirth"] = "12/04/2001" }, "Date Of Birth Is Invalid"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				payload := testapp.UserPayload("student")
				tt.mutate(payload)

				resp := env.Do(t, http.MethodPost, "/users", payload)
				assert.Equal(t, http.StatusBadRequest, resp.Code)
				assert.Equal(t, tt.message, resp.Message)
			})
		}
	})

	t.Run("CreateUser_MalformedBody", func(t *testing.T) {
		resp := env.Do(t, http.MethodPost, "/users", "{not json")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Bad Request", resp.Message)
	})

	t.Run("GetUsers", func(t *testing.T) {
		env.Reset(t)
		first := env.CreateUser(t, "student")
		second := env.CreateUser(t, "admin")

		resp := env.Do(t, http.MethodGet, "/users", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Get All Users Success", resp.Message)

		var users []user.User
		resp.Decode(t, &users)
		require.Len(t, users, 2)
		assert.Equal(t, first, users[0].ID)
		assert.Equal(t, second, users[1].ID)

		resp = env.Do(t, http.MethodGet, "/users/"+first, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Get One User Success", resp.Message)
	})

	t.Run("GetUser_InvalidAndMissing", func(t *testing.T) {
		env.Reset(t)

		resp := env.Do(t, http.MethodGet, "/users/123", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "User Id Invalid", resp.Message)

		resp = env.Do(t, http.MethodGet, "/users/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "User Not Found", resp.Message)
	})

	t.Run("UpdateUser", func(t *testing.T) {
		env.Reset(t)
		id := env.CreateUser(t, "student")
		other := testapp.UserPayload("student")
		env.Do(t, http.MethodPost, "/users", other)

		resp := env.Do(t, http.MethodPatch, "/users/"+id, map[string]any{"username": "renamed", "note": "front row"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Updated User", resp.Message)

		var got user.User
		resp.Decode(t, &got)
		assert.Equal(t, "renamed", got.Username)
		require.NotNil(t, got.Note)
		assert.Equal(t, "front row", *got.Note)

		resp = env.Do(t, http.MethodPatch, "/users/"+id, map[string]any{"email": other["email"]})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Email Already Exists", resp.Message)

		resp = env.Do(t, http.MethodPatch, "/users/"+id, map[string]any{"role": "teachingAssistant"})
		require.Equal(t, http.StatusOK, resp.Code)
		resp.Decode(t, &got)
		assert.Equal(t, user.RoleTeachingAssistant, got.Role)
	})

	t.Run("UpdateUser_RoleLockedWhileInClass", func(t *testing.T) {
		env.Reset(t)
		id := env.CreateUser(t, "student")
		classID := env.CreateClass(t, "C1")
		resp := env.Do(t, http.MethodPost, "/users/"+id+"/class/"+classID, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		resp = env.Do(t, http.MethodPatch, "/users/"+id, map[string]any{"role": "admin"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Can't Change Role Of User In Class", resp.Message)
	})

	t.Run("AddAndRemoveClass", func(t *testing.T) {
		env.Reset(t)
		id := env.CreateUser(t, "student")
		classID := env.CreateClass(t, "C1")

		resp := env.Do(t, http.MethodPost, "/users/"+id+"/class/"+classID, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Added Class For User", resp.Message)

		var got user.User
		resp.Decode(t, &got)
		assert.Equal(t, []string{classID}, got.ClassIDs)

		resp = env.Do(t, http.MethodPost, "/users/"+id+"/class/"+classID, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "User Already Has This Class", resp.Message)

		resp = env.Do(t, http.MethodDelete, "/users/"+id+"/class/"+classID, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Removed Class For User", resp.Message)
		resp.Decode(t, &got)
		assert.Empty(t, got.ClassIDs)

		resp = env.Do(t, http.MethodDelete, "/users/"+id+"/class/"+classID, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "User Doesn't Have This Class", resp.Message)
	})

	t.Run("AddClass_AdminRejected", func(t *testing.T) {
		env.Reset(t)
		id := env.CreateUser(t, "admin")
		classID := env.CreateClass(t, "C1")

		resp := env.Do(t, http.MethodPost, "/users/"+id+"/class/"+classID, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Admin Can't Have Class", resp.Message)

		resp = env.Do(t, http.MethodPost, "/users/"+id+"/class/not-a-class", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Class Id Invalid", resp.Message)
	})

	t.Run("Password_TooLong", func(t *testing.T) {
		env.Reset(t)

		tests := []struct {
			name     string
			password string
		}{
			{"Ascii", strings.Repeat("a", 73)},
			{"MultiByte", strings.Repeat("€", 25)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				payload := testapp.UserPayload("student")
				payload["password"] = tt.password
				resp := env.Do(t, http.MethodPost, "/users", payload)
				assert.Equal(t, http.StatusBadRequest, resp.Code)
				assert.Equal(t, "Password Is Too Long", resp.Message)

				id := env.CreateUser(t, "student")
				resp = env.Do(t, http.MethodPatch, "/users/"+id, map[string]any{"password": tt.password})
				assert.Equal(t, http.StatusBadRequest, resp.Code)
				assert.Equal(t, "Password Is Too Long", resp.Message)
			})
		}

		payload := testapp.UserPayload("student")
		payload["password"] = strings.Repeat("a", 72)
		resp := env.Do(t, http.MethodPost, "/users", payload)
		assert.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("DeleteUser", func(t *testing.T) {
		env.Reset(t)
		id := env.CreateUser(t, "student")
		classID := env.CreateClass(t, "C1")
		env.Do(t, http.MethodPost, "/classes/"+classID+"/user/"+id, nil)

		resp := env.Do(t, http.MethodDelete, "/users/"+id, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Deleted User", resp.Message)

		resp = env.Do(t, http.MethodGet, "/users/"+id, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = env.Do(t, http.MethodGet, "/classes/"+classID, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, string(resp.Data), `"studentIds":[]`)
	})
}
