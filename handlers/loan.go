package handlers

import (
	"net/http"

	"loanmanager/apperrors"
	"loanmanager/httputil"
	"loanmanager/middleware"
	"loanmanager/models"
	"loanmanager/services"
)

type LoanHandler struct {
	loans *services.LoanService
}

func NewLoanHandler(loans *services.LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

func invalidInputs() error {
	return apperrors.Validation(services.MsgInvalidInputs)
}

func listBody(loans []models.LoanApplication) envelope {
	if loans == nil {
		loans = []models.LoanApplication{}
	}
	return envelope{Data: loans, Message: "Fetch successful"}
}

// Create handles POST /loan/create.
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.LoanInput
	if err := decodeJSON(r, &in); err != nil {
		httputil.Error(w, invalidInputs())
		return
	}

	loan, err := h.loans.Submit(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, envelope{
		Data:    loan,
		Message: "Your loan application has been submitted for review",
	})
}

// Update handles POST /loan/update.
func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.LoanUpdate
	if err := decodeJSON(r, &in); err != nil {
		httputil.Error(w, invalidInputs())
		return
	}

	loan, err := h.loans.Update(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, envelope{Data: loan, Message: "Loan application updated"})
}

// ListMine handles GET /loan/getByUser.
func (h *LoanHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ListMine(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, listBody(loans))
}

// Delete handles DELETE /loan/delete with the loan id in the body.
func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanID string `json:"loanId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.Error(w, invalidInputs())
		return
	}

	if err := h.loans.Delete(r.Context(), middleware.UserID(r.Context()), req.LoanID); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Loan application deleted successfully")
}

// ListPending handles GET /loan/getForApproval.
func (h *LoanHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ListPending(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, listBody(loans))
}

// Decide handles POST /loan/approve. An approval answers with a message
// only; a rejection returns the updated application.
func (h *LoanHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var d services.Decision
	if err := decodeJSON(r, &d); err != nil {
		httputil.Error(w, invalidInputs())
		return
	}

	loan, err := h.loans.Decide(r.Context(), middleware.UserID(r.Context()), d)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if loan.Verified() {
		httputil.Message(w, http.StatusOK, "Approval successful")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]*models.LoanApplication{"data": loan})
}
