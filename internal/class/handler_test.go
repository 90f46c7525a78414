package class_test

import (
	"net/http"
	"testing"

	"student-manager/internal/class"
	"student-manager/internal/user"
	"student-manager/testing/testapp"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassHandler(t *testing.T) {
	env := testapp.New(t)
	defer env.Cleanup(t)

	t.Run("CreateClass", func(t *testing.T) {
		env.Reset(t)

		resp := env.Do(t, http.MethodPost, "/classes", map[string]any{"name": "C1"})
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "Created Class", resp.Message)

		var got class.Class
		resp.Decode(t, &got)
		assert.Equal(t, "C1", got.Name)
		assert.Equal(t, []string{}, got.SessionIDs)
		assert.Equal(t, []string{}, got.StudentIDs)
		assert.Equal(t, []string{}, got.TeachingAssistantIDs)

		resp = env.Do(t, http.MethodPost, "/classes", map[string]any{"name": "C1"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Class Name Already Exists", resp.Message)

		resp = env.Do(t, http.MethodPost, "/classes", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Name Is Required", resp.Message)
	})

	t.Run("CreateClass_ListsNotWritable", func(t *testing.T) {
		env.Reset(t)

		resp := env.Do(t, http.MethodPost, "/classes", map[string]any{
			"name":       "C1",
			"studentIds": []string{uuid.NewString()},
			"sessionIds": []string{uuid.NewString()},
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		var got class.Class
		resp.Decode(t, &got)
		assert.Empty(t, got.StudentIDs)
		assert.Empty(t, got.SessionIDs)
	})

	t.Run("GetClasses", func(t *testing.T) {
		env.Reset(t)
		id := env.CreateClass(t, "C1")
		env.CreateClass(t, "C2")

		resp := env.Do(t, http.MethodGet, "/classes", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Get All Classes Success", resp.Message)

		var classes []class.Class
		resp.Decode(t, &classes)
		assert.Len(t, classes, 2)

		resp = env.Do(t, http.MethodGet, "/classes/"+id, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Get One Class Success", resp.Message)

		resp = env.Do(t, http.MethodGet, "/classes/xyz", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Class Id Invalid", resp.Message)

		resp = env.Do(t, http.MethodGet, "/classes/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "Class Not Found", resp.Message)
	})

	t.Run("UpdateClass", func(t *testing.T) {
		env.Reset(t)
		id := env.CreateClass(t, "C1")
		env.CreateClass(t, "C2")

		resp := env.Do(t, http.MethodPatch, "/classes/"+id, map[string]any{"name": "C1"})
		require.Equal(t, http.StatusOK, resp.Code)

		resp = env.Do(t, http.MethodPatch, "/classes/"+id, map[string]any{"name": "C2"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Class Name Already Exists", resp.Message)

		resp = env.Do(t, http.MethodPatch, "/classes/"+id, map[string]any{"name": "Evening Go"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Updated Class", resp.Message)

		var got class.Class
		resp.Decode(t, &got)
		assert.Equal(t, "Evening Go", got.Name)
		assert.Equal(t, id, got.ID)
	})

	t.Run("AddAndRemoveUser", func(t *testing.T) {
		env.Reset(t)
		classID := env.CreateClass(t, "C1")
		student := env.CreateUser(t, "student")
		ta := env.CreateUser(t, "teachingAssistant")

		resp := env.Do(t, http.MethodPost, "/classes/"+classID+"/user/"+student, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Added User For Class", resp.Message)

		resp = env.Do(t, http.MethodPost, "/classes/"+classID+"/user/"+ta, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var got class.Class
		resp.Decode(t, &got)
		assert.Equal(t, []string{student}, got.StudentIDs)
		assert.Equal(t, []string{ta}, got.TeachingAssistantIDs)

		resp = env.Do(t, http.MethodGet, "/users/"+student, nil)
		var u user.User
		resp.Decode(t, &u)
		assert.Equal(t, []string{classID}, u.ClassIDs)

		resp = env.Do(t, http.MethodPost, "/classes/"+classID+"/user/"+student, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Student Already In Class", resp.Message)

		resp = env.Do(t, http.MethodPost, "/classes/"+classID+"/user/"+ta, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Teaching Assistant Already In Class", resp.Message)

		resp = env.Do(t, http.MethodDelete, "/classes/"+classID+"/user/"+student, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Removed User From Class", resp.Message)
		resp.Decode(t, &got)
		assert.Empty(t, got.StudentIDs)

		resp = env.Do(t, http.MethodGet, "/users/"+student, nil)
		resp.Decode(t, &u)
		assert.Empty(t, u.ClassIDs)

		resp = env.Do(t, http.MethodDelete, "/classes/"+classID+"/user/"+student, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "User Not In Class To Remove", resp.Message)
	})

	t.Run("AddUser_AdminRejected", func(t *testing.T) {
		env.Reset(t)
		classID := env.CreateClass(t, "C1")
		admin := env.CreateUser(t, "admin")

		for range 2 {
			resp := env.Do(t, http.MethodPost, "/classes/"+classID+"/user/"+admin, nil)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, "Can't Add Admin To Class", resp.Message)
		}
	})

	t.Run("DeleteClass_BlockedBySessions", func(t *testing.T) {
		env.Reset(t)
		classID := env.CreateClass(t, "C1")
		student := env.CreateUser(t, "student")
		env.Do(t, http.MethodPost, "/classes/"+classID+"/user/"+student, nil)
		sessionID := env.CreateSession(t, classID, 1)

		resp := env.Do(t, http.MethodDelete, "/classes/"+classID, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Can't Delete Class If It Has Sessions", resp.Message)

		resp = env.Do(t, http.MethodDelete, "/sessions/"+sessionID, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		resp = env.Do(t, http.MethodDelete, "/classes/"+classID, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Deleted Class", resp.Message)

		resp = env.Do(t, http.MethodGet, "/classes/"+classID, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = env.Do(t, http.MethodGet, "/users/"+student, nil)
		var u user.User
		resp.Decode(t, &u)
		assert.Empty(t, u.ClassIDs)
	})
}
