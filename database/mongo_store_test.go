package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"loanmanager/models"
)

func TestToOID(t *testing.T) {
	_, err := toOID("")
	assert.Error(t, err)

	_, err = toOID("not-hex")
	assert.Error(t, err)

	id := primitive.NewObjectID()
	got, err := toOID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTranslateMongoError(t *testing.T) {
	assert.NoError(t, translateMongoError(nil))
	assert.ErrorIs(t, translateMongoError(mongo.ErrNoDocuments), ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translateMongoError(dup), ErrDuplicate)

	other := errors.New("network")
	assert.Equal(t, other, translateMongoError(other))
}

func TestLoanDocRoundTrip(t *testing.T) {
	creator := primitive.NewObjectID()
	loan := &models.LoanApplication{
		LoanFields: models.LoanFields{Title: "car", Amount: "100"},
		Status:     models.LoanApproved,
		Timestamp:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		CreatorID:  creator.Hex(),
	}

	doc, err := newLoanDoc(loan)
	require.NoError(t, err)
	assert.True(t, doc.Verified)
	assert.Equal(t, creator, doc.Creator)

	doc.ID = primitive.NewObjectID()
	back := doc.toModel()
	assert.Equal(t, doc.ID.Hex(), back.ID)
	assert.Equal(t, models.LoanApproved, back.Status)
	assert.Equal(t, creator.Hex(), back.CreatorID)

	_, err = newLoanDoc(&models.LoanApplication{CreatorID: "bad"})
	assert.Error(t, err)
}

func TestLoanDocWithoutStatusUsesLegacyFields(t *testing.T) {
	testCases := []struct {
		name     string
		doc      loanDoc
		expected models.LoanStatus
	}{
		{"verified", loanDoc{Verified: true}, models.LoanApproved},
		{"commented", loanDoc{AdminComment: "no income proof"}, models.LoanRejected},
		{"untouched", loanDoc{}, models.LoanPending},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.doc.toModel().Status)
		})
	}
}

func TestStatusFilterMatchesLegacyDocuments(t *testing.T) {
	noComment := bson.A{nil, ""}

	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"status": "pending"},
		bson.M{
			"status":       bson.M{"$in": bson.A{nil, ""}},
			"verified":     bson.M{"$ne": true},
			"adminComment": bson.M{"$in": noComment},
		},
	}}, statusFilter(models.LoanPending))

	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"status": "rejected"},
		bson.M{
			"status":       bson.M{"$in": bson.A{nil, ""}},
			"verified":     bson.M{"$ne": true},
			"adminComment": bson.M{"$nin": noComment},
		},
	}}, statusFilter(models.LoanRejected))

	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"status": "approved"},
		bson.M{"status": bson.M{"$in": bson.A{nil, ""}}, "verified": true},
	}}, statusFilter(models.LoanApproved))
}

func TestStatusFilterAgreesWithToModel(t *testing.T) {
	legacy := []loanDoc{
		{},
		{Verified: true},
		{AdminComment: "no income proof"},
		{Verified: true, AdminComment: "ok"},
	}
	statuses := []models.LoanStatus{models.LoanPending, models.LoanApproved, models.LoanRejected}

	for _, doc := range legacy {
		var matched []models.LoanStatus
		for _, status := range statuses {
			if legacyMatch(statusFilter(status), doc) {
				matched = append(matched, status)
			}
		}
		assert.Equal(t, []models.LoanStatus{doc.toModel().Status}, matched, "doc %+v", doc)
	}
}

// legacyMatch evaluates the status-less branch of a statusFilter against a
// document that has no status field.
func legacyMatch(filter bson.M, doc loanDoc) bool {
	branch := filter["$or"].(bson.A)[1].(bson.M)
	for field, cond := range branch {
		switch field {
		case "status":
			continue
		case "verified":
			if want, ok := cond.(bool); ok {
				if doc.Verified != want {
					return false
				}
			} else if doc.Verified == cond.(bson.M)["$ne"] {
				return false
			}
		case "adminComment":
			c := cond.(bson.M)
			if _, in := c["$in"]; in && doc.AdminComment != "" {
				return false
			}
			if _, nin := c["$nin"]; nin && doc.AdminComment == "" {
				return false
			}
		}
	}
	return true
}

func TestUserDocToModel(t *testing.T) {
	loanID := primitive.NewObjectID()
	doc := userDoc{ID: primitive.NewObjectID(), Email: "jane@example.com", Loans: []primitive.ObjectID{loanID}}

	u := doc.toModel()
	assert.Equal(t, []string{loanID.Hex()}, u.Loans)

	doc.Loans = nil
	assert.NotNil(t, doc.toModel().Loans)
}
