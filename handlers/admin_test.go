package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCheck(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t, "boss@example.com")
	user := ts.user(t, "jane@example.com")

	rr := serve(t, ts.admins.Check, http.MethodGet, admin.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["isAdmin"])

	rr = serve(t, ts.admins.Check, http.MethodGet, user.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Permission denied! You cannot access this service", decodeBody(t, rr)["message"])
}

func TestAdminListDeniedForNonAdmin(t *testing.T) {
	ts := newTestServer(t)
	ts.admin(t, "boss@example.com")
	user := ts.user(t, "jane@example.com")

	rr := serve(t, ts.admins.List, http.MethodGet, user.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decodeBody(t, rr)
	assert.NotContains(t, body, "data")
}

func TestAdminAddListDelete(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t, "boss@example.com")

	rr := serve(t, ts.admins.Add, http.MethodPost, admin.ID, map[string]string{"email": "Second@Example.com"})
	require.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Email added to admin group", body["message"])
	added := body["data"].(map[string]interface{})
	assert.Equal(t, "second@example.com", added["email"])

	rr = serve(t, ts.admins.Add, http.MethodPost, admin.ID, map[string]string{"email": "second@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = serve(t, ts.admins.Add, http.MethodPost, admin.ID, map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Email invalid", decodeBody(t, rr)["message"])

	rr = serve(t, ts.admins.List, http.MethodGet, admin.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decodeBody(t, rr)
	assert.Equal(t, "Fetch successful", body["message"])
	assert.Len(t, body["data"], 2)

	rr = serve(t, ts.admins.Delete, http.MethodDelete, admin.ID, map[string]string{"_id": added["_id"].(string)})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Email removed from the admin group", decodeBody(t, rr)["message"])

	rr = serve(t, ts.admins.List, http.MethodGet, admin.ID, nil)
	assert.Len(t, decodeBody(t, rr)["data"], 1)
}
