package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"loanmanager/database"
	"loanmanager/metrics"
	"loanmanager/middleware"
	"loanmanager/migrations"
	"loanmanager/models"
	"loanmanager/security"
	"loanmanager/services"
)

type recordingNotifier struct {
	codes      map[string]string
	adminMails [][]string
	decisions  []bool
	adminErr   error
}

func (n *recordingNotifier) SendLoginCode(ctx context.Context, email, code string) error {
	n.codes[email] = code
	return nil
}

func (n *recordingNotifier) NotifyAdmins(ctx context.Context, emails []string) error {
	if n.adminErr != nil {
		return n.adminErr
	}
	n.adminMails = append(n.adminMails, emails)
	return nil
}

func (n *recordingNotifier) NotifyDecision(ctx context.Context, token string, approved bool) error {
	n.decisions = append(n.decisions, approved)
	return nil
}

type testServer struct {
	store    database.Store
	notifier *recordingNotifier
	users    *UserHandler
	admins   *AdminHandler
	loans    *LoanHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.OpenSQLite(database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	require.NoError(t, migrations.RunMigrations(db, log))

	tokens, err := security.NewTokenIssuer("handler-secret")
	require.NoError(t, err)
	sealer, err := security.NewCipher("handler-key")
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	ts := &testServer{
		store:    database.NewSQLStore(db, log),
		notifier: &recordingNotifier{codes: map[string]string{}},
	}
	deps := services.Deps{
		Store:    ts.store,
		OTP:      security.NewOTP("").WithClock(now),
		Tokens:   tokens,
		Notifier: ts.notifier,
		Sealer:   sealer,
		Metrics:  metrics.New(),
		Log:      log,
		Now:      now,
	}
	adminSvc := services.NewAdminService(deps)
	ts.users = NewUserHandler(services.NewAuthService(deps))
	ts.admins = NewAdminHandler(adminSvc)
	ts.loans = NewLoanHandler(services.NewLoanService(deps, adminSvc))
	return ts
}

func (ts *testServer) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Name: models.NameFromEmail(email), Email: email, CreatedAt: time.Now().UTC()}
	require.NoError(t, ts.store.Repos().Users.Create(context.Background(), u))
	return u
}

func (ts *testServer) admin(t *testing.T, email string) *models.User {
	t.Helper()
	u := ts.user(t, email)
	require.NoError(t, ts.store.Repos().Admins.Create(context.Background(), &models.Admin{Email: email}))
	return u
}

// serve runs h with body encoded as JSON, authenticated as userID when set.
func serve(t *testing.T, h http.HandlerFunc, method, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), userID, ""))
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func carLoanBody() map[string]interface{} {
	return map[string]interface{}{
		"title":         "Car",
		"applicantName": "A",
		"address":       "X",
		"phone":         "+15551234567",
		"email":         "a@x.com",
		"amount":        "1000",
		"installment":   "100",
		"fixed":         true,
	}
}
