package handlers

import (
	"net/http"

	"loanmanager/apperrors"
	"loanmanager/httputil"
	"loanmanager/middleware"
	"loanmanager/models"
	"loanmanager/services"
)

type UserHandler struct {
	auth *services.AuthService
}

func NewUserHandler(auth *services.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// Auth handles POST /user/auth: it mails a login code, creating the user on
// first contact.
func (h *UserHandler) Auth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.Error(w, apperrors.Validation(services.MsgInvalidEmail))
		return
	}

	if err := h.auth.RequestLogin(r.Context(), req.Email); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Please enter the verification code we have sent to your email")
}

type verifyResponse struct {
	Data    models.PublicUser `json:"data"`
	IsValid bool              `json:"isValid"`
	Token   string            `json:"token"`
	Message string            `json:"message"`
}

// Verify handles POST /user/verify and returns a session token.
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.Error(w, apperrors.Validation(services.MsgInvalidLogin))
		return
	}

	res, err := h.auth.VerifyLogin(r.Context(), req.Email, req.OTP)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, verifyResponse{
		Data:    res.User,
		IsValid: true,
		Token:   res.Token,
		Message: "Login Successfull",
	})
}

// SavePushToken handles POST /user/fcm.
func (h *UserHandler) SavePushToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FCMToken string `json:"fcmToken"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.Error(w, apperrors.Validation(services.MsgPushTokenMissing))
		return
	}

	if err := h.auth.SavePushToken(r.Context(), middleware.UserID(r.Context()), req.FCMToken); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Saved FCM TOKEN")
}
