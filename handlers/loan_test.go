package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLoan(t *testing.T) {
	ts := newTestServer(t)
	ts.admin(t, "boss@example.com")
	u := ts.user(t, "jane@example.com")

	rr := serve(t, ts.loans.Create, http.MethodPost, u.ID, carLoanBody())
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Your loan application has been submitted for review", body["message"])

	loan := body["data"].(map[string]interface{})
	assert.Equal(t, false, loan["verified"])
	assert.Equal(t, "pending", loan["status"])
	assert.Equal(t, u.ID, loan["creator"])

	stored, err := ts.store.Repos().Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{loan["_id"].(string)}, stored.Loans)
	assert.Equal(t, [][]string{{"boss@example.com"}}, ts.notifier.adminMails)
}

func TestCreateLoanValidation(t *testing.T) {
	ts := newTestServer(t)
	u := ts.user(t, "jane@example.com")

	in := carLoanBody()
	delete(in, "fixed")
	rr := serve(t, ts.loans.Create, http.MethodPost, u.ID, in)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Invalid inputs passed, please check your data.", decodeBody(t, rr)["message"])
}

func TestCreateLoanAdminMailFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.admin(t, "boss@example.com")
	u := ts.user(t, "jane@example.com")
	ts.notifier.adminErr = errors.New("smtp down")

	rr := serve(t, ts.loans.Create, http.MethodPost, u.ID, carLoanBody())
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Something went wrong, please try again later", decodeBody(t, rr)["message"])

	rr = serve(t, ts.loans.ListMine, http.MethodGet, u.ID, nil)
	assert.Len(t, decodeBody(t, rr)["data"], 1)
}

func TestListMineEmpty(t *testing.T) {
	ts := newTestServer(t)
	u := ts.user(t, "jane@example.com")

	rr := serve(t, ts.loans.ListMine, http.MethodGet, u.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Fetch successful", body["message"])
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestUpdateLoan(t *testing.T) {
	ts := newTestServer(t)
	u := ts.user(t, "jane@example.com")
	created := decodeBody(t, serve(t, ts.loans.Create, http.MethodPost, u.ID, carLoanBody()))["data"].(map[string]interface{})

	in := carLoanBody()
	in["_id"] = created["_id"]
	in["amount"] = "2500"
	rr := serve(t, ts.loans.Update, http.MethodPost, u.ID, in)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Loan application updated", body["message"])
	assert.Equal(t, "2500", body["data"].(map[string]interface{})["amount"])

	in["_id"] = "missing"
	rr = serve(t, ts.loans.Update, http.MethodPost, u.ID, in)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Could not find any loan application for this id", decodeBody(t, rr)["message"])
}

func TestDeleteLoan(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.user(t, "jane@example.com")
	other := ts.user(t, "mallory@example.com")
	created := decodeBody(t, serve(t, ts.loans.Create, http.MethodPost, owner.ID, carLoanBody()))["data"].(map[string]interface{})
	body := map[string]interface{}{"loanId": created["_id"]}

	rr := serve(t, ts.loans.Delete, http.MethodDelete, other.ID, body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "You do not have the access to delete this Loan application", decodeBody(t, rr)["message"])

	rr = serve(t, ts.loans.Delete, http.MethodDelete, owner.ID, body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Loan application deleted successfully", decodeBody(t, rr)["message"])

	stored, err := ts.store.Repos().Users.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Loans)
}

func TestDecideResponseShapes(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t, "boss@example.com")
	u := ts.user(t, "jane@example.com")

	first := decodeBody(t, serve(t, ts.loans.Create, http.MethodPost, u.ID, carLoanBody()))["data"].(map[string]interface{})
	second := decodeBody(t, serve(t, ts.loans.Create, http.MethodPost, u.ID, carLoanBody()))["data"].(map[string]interface{})

	rr := serve(t, ts.loans.Decide, http.MethodPost, admin.ID, map[string]interface{}{
		"loanId":   first["_id"],
		"verified": true,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{"message": "Approval successful"}, decodeBody(t, rr))

	rr = serve(t, ts.loans.Decide, http.MethodPost, admin.ID, map[string]interface{}{
		"loanId":       second["_id"],
		"verified":     false,
		"adminComment": "insufficient income",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.NotContains(t, body, "message")
	data := body["data"].(map[string]interface{})
	assert.Equal(t, false, data["verified"])
	assert.Equal(t, "insufficient income", data["adminComment"])
	assert.Equal(t, "rejected", data["status"])

	rr = serve(t, ts.loans.ListPending, http.MethodGet, admin.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []interface{}{}, decodeBody(t, rr)["data"])
}

func TestAdminLoanRoutesDeniedForNonAdmin(t *testing.T) {
	ts := newTestServer(t)
	u := ts.user(t, "jane@example.com")

	rr := serve(t, ts.loans.ListPending, http.MethodGet, u.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, ts.loans.Decide, http.MethodPost, u.ID, map[string]interface{}{"loanId": "x", "verified": true})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	u := ts.user(t, "jane@example.com")

	rr := serve(t, ts.loans.Create, http.MethodPost, u.ID, "not an object")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
