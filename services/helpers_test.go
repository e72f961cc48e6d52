package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"loanmanager/database"
	"loanmanager/metrics"
	"loanmanager/migrations"
	"loanmanager/models"
	"loanmanager/security"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

type fakeNotifier struct {
	codes      map[string]string
	adminMails [][]string
	pushes     []string
	approved   []bool

	codeErr, adminErr, pushErr error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: map[string]string{}}
}

func (n *fakeNotifier) SendLoginCode(ctx context.Context, email, code string) error {
	if n.codeErr != nil {
		return n.codeErr
	}
	n.codes[email] = code
	return nil
}

func (n *fakeNotifier) NotifyAdmins(ctx context.Context, emails []string) error {
	if n.adminErr != nil {
		return n.adminErr
	}
	n.adminMails = append(n.adminMails, emails)
	return nil
}

func (n *fakeNotifier) NotifyDecision(ctx context.Context, token string, approved bool) error {
	if n.pushErr != nil {
		return n.pushErr
	}
	n.pushes = append(n.pushes, token)
	n.approved = append(n.approved, approved)
	return nil
}

type testEnv struct {
	store    database.Store
	sql      *database.SQLStore
	clock    *fakeClock
	notifier *fakeNotifier
	otp      *security.OTP
	tokens   *security.TokenIssuer
	deps     Deps
	auth     *AuthService
	admins   *AdminService
	loans    *LoanService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	require.NoError(t, migrations.RunMigrations(db, log))

	tokens, err := security.NewTokenIssuer("test-secret")
	require.NoError(t, err)
	sealer, err := security.NewCipher("test-key")
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	e := &testEnv{
		sql:      database.NewSQLStore(db, log),
		clock:    clock,
		notifier: newFakeNotifier(),
		otp:      security.NewOTP("").WithClock(clock.now),
		tokens:   tokens,
	}
	e.store = e.sql
	e.deps = Deps{
		Store:    e.store,
		OTP:      e.otp,
		Tokens:   tokens,
		Notifier: e.notifier,
		Sealer:   sealer,
		Metrics:  metrics.New(),
		Log:      log,
		Now:      clock.now,
	}
	e.build()
	return e
}

// build wires the services from e.deps; call it again after swapping deps.
func (e *testEnv) build() {
	e.auth = NewAuthService(e.deps)
	e.admins = NewAdminService(e.deps)
	e.loans = NewLoanService(e.deps, e.admins)
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Name: models.NameFromEmail(email), Email: email, CreatedAt: e.clock.now()}
	require.NoError(t, e.store.Repos().Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) admin(t *testing.T, email string) *models.User {
	t.Helper()
	u := e.user(t, email)
	require.NoError(t, e.store.Repos().Admins.Create(context.Background(), &models.Admin{Email: email}))
	return u
}

func (e *testEnv) reload(t *testing.T, userID string) *models.User {
	t.Helper()
	u, err := e.store.Repos().Users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u
}

func boolPtr(b bool) *bool { return &b }

func carLoan() LoanInput {
	return LoanInput{
		Title:         "Car",
		ApplicantName: "A",
		Address:       "X",
		Phone:         "+15551234567",
		Email:         "a@x.com",
		Amount:        "1000",
		Installment:   "100",
		Fixed:         boolPtr(true),
	}
}

// failingAppendStore fails the user-side write of every transaction.
type failingAppendStore struct {
	database.Store
}

func (s failingAppendStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r database.Repos) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, r database.Repos) error {
		r.Users = failingUsers{r.Users}
		return fn(ctx, r)
	})
}

type failingUsers struct {
	database.UserRepository
}

func (failingUsers) AppendLoan(ctx context.Context, userID, loanID string) error {
	return errors.New("write conflict")
}

func (failingUsers) RemoveLoan(ctx context.Context, userID, loanID string) error {
	return errors.New("write conflict")
}

type failingIssuer struct {
	*security.TokenIssuer
}

func (failingIssuer) Issue(id, email string) (string, error) {
	return "", errors.New("signing key unavailable")
}
