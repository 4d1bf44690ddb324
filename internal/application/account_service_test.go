package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/linkstack/referral-api/internal/domain/entity"
	repo "github.com/linkstack/referral-api/internal/domain/repository"
	"github.com/linkstack/referral-api/pkg/helpers"
)

// fakeStore backs both repository interfaces in memory and enforces the
// same uniqueness rules the schema does.
type fakeStore struct {
	mu        sync.Mutex
	users     []*entity.User
	referrals []entity.Referral
	nextUser  int64
	nextRef   int64

	// forceCodeCollisions makes the next N creates fail with
	// ErrCodeCollision regardless of the code.
	forceCodeCollisions int
	createAttempts      int

	// usernameErr, when set, is returned by GetByUsername to simulate a
	// store failure.
	usernameErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextUser: 1, nextRef: 1}
}

func (s *fakeStore) Create(_ context.Context, u *entity.User, referrerID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createAttempts++
	if s.forceCodeCollisions > 0 {
		s.forceCodeCollisions--
		return repo.ErrCodeCollision
	}
	for _, ex := range s.users {
		if ex.Username == u.Username || ex.Email == u.Email {
			return repo.ErrDuplicateIdentity
		}
		if ex.ReferralCode == u.ReferralCode {
			return repo.ErrCodeCollision
		}
	}
	u.ID = s.nextUser
	s.nextUser++
	u.CreatedAt = time.Now().UTC()
	u.ReferredBy = referrerID
	cp := *u
	s.users = append(s.users, &cp)

	if referrerID != nil {
		s.referrals = append(s.referrals, entity.Referral{
			ID:             s.nextRef,
			ReferrerID:     *referrerID,
			ReferredUserID: u.ID,
			DateReferred:   time.Now().UTC().Add(time.Duration(s.nextRef) * time.Second),
			Status:         entity.ReferralStatusSuccessful,
		})
		s.nextRef++
	}
	return nil
}

func (s *fakeStore) findUser(pred func(*entity.User) bool) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if pred(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return s.findUser(func(u *entity.User) bool { return u.ID == id })
}

func (s *fakeStore) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	if s.usernameErr != nil {
		return nil, s.usernameErr
	}
	return s.findUser(func(u *entity.User) bool { return u.Username == username })
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return s.findUser(func(u *entity.User) bool { return u.Email == email })
}

func (s *fakeStore) GetByReferralCode(_ context.Context, code string) (*entity.User, error) {
	return s.findUser(func(u *entity.User) bool { return u.ReferralCode == code })
}

func (s *fakeStore) UsernameOrEmailExists(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *fakeStore) ListByReferrer(_ context.Context, referrerID int64) ([]entity.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Referral, 0)
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateReferred.After(out[j].DateReferred) })
	return out, nil
}

func (s *fakeStore) StatsByReferrer(_ context.Context, referrerID int64) (entity.ReferralStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID && r.Status == entity.ReferralStatusSuccessful {
			total++
		}
	}
	return entity.ReferralStats{TotalReferrals: total, ActiveReferrals: total, PendingReferrals: 0}, nil
}

var (
	_ repo.UserRepository     = (*fakeStore)(nil)
	_ repo.ReferralRepository = (*fakeStore)(nil)
)

// fakeLedger is an in-memory ResetTokenLedger with injectable lookup
// failures.
type fakeLedger struct {
	consumed  map[string]bool
	lookupErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{consumed: make(map[string]bool)}
}

func (l *fakeLedger) IsConsumed(_ context.Context, jti string) (bool, error) {
	if l.lookupErr != nil {
		return false, l.lookupErr
	}
	return l.consumed[jti], nil
}

func (l *fakeLedger) MarkConsumed(_ context.Context, jti string, _ time.Duration) error {
	l.consumed[jti] = true
	return nil
}

var _ ResetTokenLedger = (*fakeLedger)(nil)

func newTestService(store *fakeStore) *Service {
	tokens := helpers.NewTokenManager("testsecret", 15*time.Minute, time.Hour)
	return NewService(store, store, tokens, nil, nil)
}

func mustRegister(t *testing.T, svc *Service, username, email, code string) *entity.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Username:     username,
		Email:        email,
		Password:     "password123",
		ReferralCode: code,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func TestRegisterThenLogin(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	u := mustRegister(t, svc, "alice", "alice@example.com", "")
	if u.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if len(u.ReferralCode) != helpers.ReferralCodeLength {
		t.Fatalf("referral code length = %d, want %d", len(u.ReferralCode), helpers.ReferralCodeLength)
	}
	if u.ReferredBy != nil {
		t.Fatalf("referred_by = %v, want nil", *u.ReferredBy)
	}

	token, exp, err := svc.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("token already expired")
	}
	claims, err := svc.Tokens.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("token subject = %q, want %q", claims.Subject, "alice")
	}
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	mustRegister(t, svc, "alice", "alice@example.com", "")

	cases := []struct {
		name     string
		username string
		email    string
	}{
		{"same username", "alice", "other@example.com"},
		{"same email", "other", "alice@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), RegisterInput{
				Username: tc.username,
				Email:    tc.email,
				Password: "password123",
			})
			if !errors.Is(err, ErrDuplicateIdentity) {
				t.Fatalf("err = %v, want ErrDuplicateIdentity", err)
			}
		})
	}
	if len(store.users) != 1 {
		t.Fatalf("user count = %d, want 1", len(store.users))
	}
}

func TestRegisterWithReferralCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	a := mustRegister(t, svc, "alice", "alice@example.com", "")
	b := mustRegister(t, svc, "bob", "bob@example.com", a.ReferralCode)

	if b.ReferredBy == nil || *b.ReferredBy != a.ID {
		t.Fatalf("bob.ReferredBy = %v, want %d", b.ReferredBy, a.ID)
	}

	refs, err := svc.ListReferrals(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("list referrals: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("referral count = %d, want 1", len(refs))
	}
	edge := refs[0]
	if edge.ReferrerID != a.ID || edge.ReferredUserID != b.ID {
		t.Fatalf("edge = %+v, want referrer %d referred %d", edge, a.ID, b.ID)
	}
	if edge.Status != entity.ReferralStatusSuccessful {
		t.Fatalf("edge status = %q, want successful", edge.Status)
	}

	stats, err := svc.ReferralStats(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := entity.ReferralStats{TotalReferrals: 1, ActiveReferrals: 1, PendingReferrals: 0}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestRegisterUnknownReferralCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	mustRegister(t, svc, "alice", "alice@example.com", "")

	_, err := svc.Register(context.Background(), RegisterInput{
		Username:     "bob",
		Email:        "bob@example.com",
		Password:     "password123",
		ReferralCode: "NOPE1234",
	})
	if !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("err = %v, want ErrInvalidReferralCode", err)
	}
	if len(store.users) != 1 {
		t.Fatalf("user count = %d, want 1 (no user created)", len(store.users))
	}
	if len(store.referrals) != 0 {
		t.Fatalf("referral count = %d, want 0", len(store.referrals))
	}
}

func TestRegisterReRollsOnCodeCollision(t *testing.T) {
	store := newFakeStore()
	store.forceCodeCollisions = 3
	svc := newTestService(store)

	u := mustRegister(t, svc, "alice", "alice@example.com", "")
	if len(u.ReferralCode) != helpers.ReferralCodeLength {
		t.Fatalf("referral code length = %d, want %d", len(u.ReferralCode), helpers.ReferralCodeLength)
	}
	if store.createAttempts != 4 {
		t.Fatalf("create attempts = %d, want 4 (3 collisions + success)", store.createAttempts)
	}
}

func TestReferralCodesAreUnique(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	seen := make(map[string]bool)
	users := []struct{ name, email string }{
		{"u1", "u1@example.com"}, {"u2", "u2@example.com"},
		{"u3", "u3@example.com"}, {"u4", "u4@example.com"},
	}
	for _, s := range users {
		u := mustRegister(t, svc, s.name, s.email, "")
		if seen[u.ReferralCode] {
			t.Fatalf("duplicate referral code %q", u.ReferralCode)
		}
		seen[u.ReferralCode] = true
	}
}

func TestLoginFailures(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	mustRegister(t, svc, "alice", "alice@example.com", "")

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "mallory", "password123"},
		{"wrong password", "alice", "wrongpassword"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tc.username, tc.password)
			if !errors.Is(err, ErrAuthenticationFailed) {
				t.Fatalf("err = %v, want ErrAuthenticationFailed", err)
			}
		})
	}
}

func TestLoginPropagatesStoreFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	mustRegister(t, svc, "alice", "alice@example.com", "")

	storeErr := errors.New("connection refused")
	store.usernameErr = storeErr

	_, _, err := svc.Login(context.Background(), "alice", "password123")
	if errors.Is(err, ErrAuthenticationFailed) {
		t.Fatal("store failure reported as ErrAuthenticationFailed")
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("err = %v, want the store failure", err)
	}
}

func TestConfirmResetSingleUse(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	svc.Ledger = newFakeLedger()
	mustRegister(t, svc, "alice", "alice@example.com", "")

	token, _, err := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if err := svc.ConfirmPasswordReset(context.Background(), token, "newpassword456"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	err = svc.ConfirmPasswordReset(context.Background(), token, "anotherpass789")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("replayed confirm err = %v, want ErrInvalidToken", err)
	}
	if _, _, err := svc.Login(context.Background(), "alice", "newpassword456"); err != nil {
		t.Fatalf("login with first reset password: %v", err)
	}
}

func TestConfirmResetAcceptsTokenWhenLedgerLookupFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ledger := newFakeLedger()
	ledger.lookupErr = errors.New("connection refused")
	svc.Ledger = ledger
	mustRegister(t, svc, "alice", "alice@example.com", "")

	token, _, err := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if err := svc.ConfirmPasswordReset(context.Background(), token, "newpassword456"); err != nil {
		t.Fatalf("confirm with degraded ledger: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "alice", "newpassword456"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	mustRegister(t, svc, "alice", "alice@example.com", "")

	token, exp, err := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if !exp.After(time.Now().Add(50 * time.Minute)) {
		t.Fatalf("reset token expiry %v, want ~1h out", exp)
	}
	claims, err := svc.Tokens.ParseToken(token)
	if err != nil {
		t.Fatalf("parse reset token: %v", err)
	}
	if claims.Subject != "alice@example.com" {
		t.Fatalf("reset subject = %q, want email", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("reset token missing jti")
	}

	if err := svc.ConfirmPasswordReset(context.Background(), token, "newpassword456"); err != nil {
		t.Fatalf("confirm reset: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "alice", "password123"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("old password login err = %v, want ErrAuthenticationFailed", err)
	}
	if _, _, err := svc.Login(context.Background(), "alice", "newpassword456"); err != nil {
		t.Fatalf("new password login: %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, _, err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConfirmResetRejectsBadTokens(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	u := mustRegister(t, svc, "alice", "alice@example.com", "")
	originalHash := store.users[0].PasswordHash

	expired := helpers.NewTokenManager("testsecret", 15*time.Minute, -time.Minute)
	expiredToken, _, err := expired.GenerateResetToken(u.Email)
	if err != nil {
		t.Fatalf("generate expired token: %v", err)
	}
	otherSecret := helpers.NewTokenManager("othersecret", 15*time.Minute, time.Hour)
	foreignToken, _, err := otherSecret.GenerateResetToken(u.Email)
	if err != nil {
		t.Fatalf("generate foreign token: %v", err)
	}
	cases := []struct {
		name  string
		token string
	}{
		{"malformed", "not.a.token"},
		{"expired", expiredToken},
		{"wrong signature", foreignToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ConfirmPasswordReset(context.Background(), tc.token, "newpassword456")
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
	if store.users[0].PasswordHash != originalHash {
		t.Fatal("password hash changed despite invalid tokens")
	}
}

func TestStatsAfterSeveralReferrals(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	a := mustRegister(t, svc, "alice", "alice@example.com", "")
	referred := []struct{ name, email string }{
		{"bob", "bob@example.com"},
		{"carol", "carol@example.com"},
		{"dave", "dave@example.com"},
	}
	for _, r := range referred {
		mustRegister(t, svc, r.name, r.email, a.ReferralCode)
	}

	stats, err := svc.ReferralStats(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := entity.ReferralStats{TotalReferrals: 3, ActiveReferrals: 3, PendingReferrals: 0}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	refs, err := svc.ListReferrals(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("referral count = %d, want 3", len(refs))
	}
	for i := 1; i < len(refs); i++ {
		if refs[i].DateReferred.After(refs[i-1].DateReferred) {
			t.Fatal("referrals not ordered newest first")
		}
	}
}
