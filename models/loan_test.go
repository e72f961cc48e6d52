package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLoanTransitions(t *testing.T) {
	loan := LoanApplication{Status: LoanPending}

	loan.Reject("insufficient income")
	if loan.Status != LoanRejected || loan.AdminComment != "insufficient income" {
		t.Errorf("Expected rejected with comment, got %s/%q", loan.Status, loan.AdminComment)
	}
	if loan.Verified() {
		t.Error("Rejected loan must not be verified")
	}

	loan.Approve("")
	if loan.Status != LoanApproved || !loan.Verified() {
		t.Errorf("Expected approved, got %s", loan.Status)
	}
}

func TestApplyVerified(t *testing.T) {
	testCases := []struct {
		name     string
		comment  string
		verified bool
		expected LoanStatus
	}{
		{"verified flag approves", "", true, LoanApproved},
		{"unverified without comment is pending", "", false, LoanPending},
		{"unverified with comment is rejected", "missing payslip", false, LoanRejected},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			loan := LoanApplication{Status: LoanApproved, AdminComment: tc.comment}
			loan.ApplyVerified(tc.verified)
			if loan.Status != tc.expected {
				t.Errorf("Expected status %s, got %s", tc.expected, loan.Status)
			}
		})
	}
}

func TestLoanJSONShape(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan := LoanApplication{
		ID: "l1",
		LoanFields: LoanFields{
			Title:         "Car",
			ApplicantName: "A",
			Address:       "X",
			Phone:         "+15551234567",
			Email:         "a@x.com",
			Amount:        "1000",
			Installment:   "100",
			Fixed:         true,
		},
		Status:    LoanPending,
		Timestamp: ts,
		CreatorID: "u1",
	}

	data, err := json.Marshal(loan)
	if err != nil {
		t.Fatalf("Failed to marshal loan: %v", err)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Failed to unmarshal loan: %v", err)
	}

	if wire["verified"] != false {
		t.Errorf("Expected verified=false, got %v", wire["verified"])
	}
	if wire["status"] != "pending" {
		t.Errorf("Expected status 'pending', got %v", wire["status"])
	}
	if wire["creator"] != "u1" {
		t.Errorf("Expected creator 'u1', got %v", wire["creator"])
	}
	if _, ok := wire["adminComment"]; ok {
		t.Error("Pending loan should not carry an adminComment")
	}

	var decoded LoanApplication
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode loan: %v", err)
	}
	if decoded.Title != "Car" || decoded.Status != LoanPending || !decoded.Timestamp.Equal(ts) {
		t.Errorf("Unexpected decoded loan: %+v", decoded)
	}
}

func TestLoanUnmarshalLegacyDocument(t *testing.T) {
	var loan LoanApplication
	err := json.Unmarshal([]byte(`{"_id":"l1","verified":false,"adminComment":"no"}`), &loan)
	if err != nil {
		t.Fatalf("Failed to decode loan: %v", err)
	}
	if loan.Status != LoanRejected {
		t.Errorf("Expected legacy document to read as rejected, got %s", loan.Status)
	}
}
