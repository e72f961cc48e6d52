package handlers

import (
	"net/http"

	"loanmanager/apperrors"
	"loanmanager/httputil"
	"loanmanager/middleware"
	"loanmanager/models"
	"loanmanager/services"
)

type AdminHandler struct {
	admins *services.AdminService
}

func NewAdminHandler(admins *services.AdminService) *AdminHandler {
	return &AdminHandler{admins: admins}
}

// Check handles GET /admin/check.
func (h *AdminHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.admins.Check(r.Context(), middleware.UserID(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"isAdmin": true})
}

// List handles GET /admin/get.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if admins == nil {
		admins = []models.Admin{}
	}
	httputil.JSON(w, http.StatusOK, envelope{Data: admins, Message: "Fetch successful"})
}

// Add handles POST /admin/add.
func (h *AdminHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.Error(w, apperrors.Validation(services.MsgEmailInvalid))
		return
	}

	admin, err := h.admins.Add(r.Context(), middleware.UserID(r.Context()), req.Email)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, envelope{Data: admin, Message: "Email added to admin group"})
}

// Delete handles DELETE /admin/delete with the entry id in the body.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.Error(w, apperrors.Validation(services.MsgEmailInvalid))
		return
	}

	if err := h.admins.Remove(r.Context(), middleware.UserID(r.Context()), req.ID); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Email removed from the admin group")
}
