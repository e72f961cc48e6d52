package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFlow(t *testing.T) {
	ts := newTestServer(t)

	rr := serve(t, ts.users.Auth, http.MethodPost, "", map[string]string{"email": "jane@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Please enter the verification code we have sent to your email", decodeBody(t, rr)["message"])

	code := ts.notifier.codes["jane@example.com"]
	require.Len(t, code, 6)

	rr = serve(t, ts.users.Verify, http.MethodPost, "", map[string]string{"email": "jane@example.com", "otp": code})
	require.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Login Successfull", body["message"])
	assert.Equal(t, true, body["isValid"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, map[string]interface{}{"email": "jane@example.com", "name": "jane"}, body["data"])
}

func TestAuthRejectsInvalidEmail(t *testing.T) {
	ts := newTestServer(t)

	rr := serve(t, ts.users.Auth, http.MethodPost, "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Invalid or no email passed", decodeBody(t, rr)["message"])
}

func TestVerifyWrongCode(t *testing.T) {
	ts := newTestServer(t)

	serve(t, ts.users.Auth, http.MethodPost, "", map[string]string{"email": "jane@example.com"})
	code := []byte(ts.notifier.codes["jane@example.com"])
	require.Len(t, code, 6)
	code[5] = '0' + (code[5]-'0'+1)%10

	rr := serve(t, ts.users.Verify, http.MethodPost, "", map[string]string{"email": "jane@example.com", "otp": string(code)})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "You have entered wrong OTP", decodeBody(t, rr)["message"])
}

func TestSavePushToken(t *testing.T) {
	ts := newTestServer(t)
	u := ts.user(t, "jane@example.com")

	rr := serve(t, ts.users.SavePushToken, http.MethodPost, u.ID, map[string]string{"fcmToken": "device-1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Saved FCM TOKEN", decodeBody(t, rr)["message"])

	stored, err := ts.store.Repos().Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PushToken)
	assert.NotEqual(t, "device-1", stored.PushToken)

	rr = serve(t, ts.users.SavePushToken, http.MethodPost, u.ID, map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "FCM Token not found", decodeBody(t, rr)["message"])
}
