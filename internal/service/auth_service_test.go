package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"regtechhorizon/internal/entity"
	"regtechhorizon/internal/service"
	"regtechhorizon/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var jwtManagerForTests = utils.JWTManager{
	Secret:         []byte("test-secret"),
	Issuer:         "test",
	AccessTokenTTL: 15 * time.Minute,
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entity.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*entity.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.UpdatedAt = account.CreatedAt
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[id]; ok {
		clone := *account
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByActivationToken(_ context.Context, token string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.ActivationToken != nil && *account.ActivationToken == token && !account.IsActive {
			clone := *account
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByOAuthToken(_ context.Context, token string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.OAuthToken != nil && *account.OAuthToken == token {
			clone := *account
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByResetToken(_ context.Context, token string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.ResetToken != nil && *account.ResetToken == token {
			clone := *account
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return errors.New("record not found")
	}
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *fakeAccountRepo) SearchCompanies(_ context.Context, query string, region string, limit, offset int) ([]entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []entity.Account
	for _, account := range r.accounts {
		if account.Role != entity.AccountRoleCompany || !account.IsActive {
			continue
		}
		if query != "" {
			name := ""
			if account.CompanyName != nil {
				name = *account.CompanyName
			}
			if !strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
				continue
			}
		}
		if region != "" && (account.Region == nil || *account.Region != region) {
			continue
		}
		matches = append(matches, *account)
	}
	sort.Slice(matches, func(i, j int) bool {
		var a, b string
		if matches[i].CompanyName != nil {
			a = *matches[i].CompanyName
		}
		if matches[j].CompanyName != nil {
			b = *matches[j].CompanyName
		}
		return a < b
	})
	if offset > len(matches) {
		offset = len(matches)
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *fakeAccountRepo) List(_ context.Context, limit, offset int) ([]entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []entity.Account
	for _, account := range r.accounts {
		accounts = append(accounts, *account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	if offset > len(accounts) {
		offset = len(accounts)
	}
	accounts = accounts[offset:]
	if limit > 0 && limit < len(accounts) {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// stored returns the backing row, bypassing clone-on-read, so tests can
// tweak timestamps and inspect persisted state.
func (r *fakeAccountRepo) stored(t *testing.T, email string) *entity.Account {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			return account
		}
	}
	t.Fatalf("no stored account for %s", email)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entity.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	stored := *session
	r.sessions[session.ID] = &stored
	return nil
}

func (r *fakeSessionRepo) FindByTokenHash(_ context.Context, hash string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.TokenHash == hash && session.RevokedAt == nil && session.ExpiresAt.After(time.Now()) {
			clone := *session
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) RotateToken(_ context.Context, sessionID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return errors.New("record not found")
	}
	session.TokenHash = tokenHash
	session.ExpiresAt = expiresAt
	return nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

func (r *fakeSessionRepo) RevokeAllByAccount(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, session := range r.sessions {
		if session.AccountID == accountID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	actions []entity.AuditAction
}

func (r *fakeAuditRepo) Log(_ context.Context, log *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, log.Action)
	return nil
}

type fakeEmailSender struct {
	mu               sync.Mutex
	activationTokens map[string]string
	resetTokens      map[string]string
	failActivation   bool
	failReset        bool
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{
		activationTokens: make(map[string]string),
		resetTokens:      make(map[string]string),
	}
}

func (s *fakeEmailSender) SendActivationEmail(_ context.Context, email string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failActivation {
		return errors.New("provider unavailable")
	}
	s.activationTokens[email] = token
	return nil
}

func (s *fakeEmailSender) SendPasswordResetEmail(_ context.Context, email string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReset {
		return errors.New("provider unavailable")
	}
	s.resetTokens[email] = token
	return nil
}

type testEnv struct {
	service  *service.AuthService
	accounts *fakeAccountRepo
	sessions *fakeSessionRepo
	audit    *fakeAuditRepo
	emails   *fakeEmailSender
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		accounts: newFakeAccountRepo(),
		sessions: newFakeSessionRepo(),
		audit:    &fakeAuditRepo{},
		emails:   newFakeEmailSender(),
		clock:    &fakeClock{now: time.Now()},
	}
	issuer := service.JWTAccessIssuer{Manager: &jwtManagerForTests}
	env.service = service.NewAuthService(
		env.accounts,
		env.sessions,
		env.audit,
		env.emails,
		service.BcryptPasswordHasher{Cost: bcrypt.MinCost},
		issuer,
		env.clock,
		nil,
		service.AuthConfig{
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    30 * 24 * time.Hour,
			ActivationTokenTTL: 24 * time.Hour,
			ResetTokenTTL:      time.Hour,
		},
	)
	return env
}

func registerInput(email string) service.RegisterInput {
	return service.RegisterInput{
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Email:            email,
		Password:         "Pw1!aaaa",
		Phone:            "+15550100",
		SubscriptionPlan: entity.PlanStandard,
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	err := env.service.Register(ctx, registerInput("a@x.com"))
	assert.ErrorIs(t, err, service.ErrEmailAlreadyRegistered)
	assert.Len(t, env.accounts.accounts, 1)
}

func TestRegister_SetsInactiveWithToken(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.service.Register(context.Background(), registerInput("a@x.com")))

	stored := env.accounts.stored(t, "a@x.com")
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.ActivationToken)
	assert.NotEmpty(t, *stored.ActivationToken)
	require.NotNil(t, stored.PasswordHash)
	assert.Equal(t, *stored.ActivationToken, env.emails.activationTokens["a@x.com"])
}

func TestRegister_EmailFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	env.emails.failActivation = true

	err := env.service.Register(context.Background(), registerInput("a@x.com"))
	require.NoError(t, err)

	stored := env.accounts.stored(t, "a@x.com")
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.ActivationToken)
}

func TestRegister_CompanyNameSetsCompanyRole(t *testing.T) {
	env := newTestEnv(t)
	input := registerInput("biz@x.com")
	input.CompanyName = "Northwind Compliance"
	input.Region = "EMEA"
	require.NoError(t, env.service.Register(context.Background(), input))

	stored := env.accounts.stored(t, "biz@x.com")
	assert.Equal(t, entity.AccountRoleCompany, stored.Role)
}

func TestActivate_SuccessThenReplayFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))

	token := env.emails.activationTokens["a@x.com"]
	require.NoError(t, env.service.Activate(ctx, token))

	stored := env.accounts.stored(t, "a@x.com")
	assert.True(t, stored.IsActive)
	assert.Nil(t, stored.ActivationToken)
	require.NotNil(t, stored.ActivatedAt)

	err := env.service.Activate(ctx, token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestActivate_ExpiredTokenLeftInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))

	stored := env.accounts.stored(t, "a@x.com")
	stored.CreatedAt = env.clock.now.Add(-25 * time.Hour)
	token := *stored.ActivationToken

	err := env.service.Activate(ctx, token)
	assert.ErrorIs(t, err, service.ErrTokenExpired)

	stored = env.accounts.stored(t, "a@x.com")
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.ActivationToken)
	assert.Equal(t, token, *stored.ActivationToken)
}

func TestActivate_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	err := env.service.Activate(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	err := env.service.ForgotPassword(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, env.emails.resetTokens)
}

func TestForgotPassword_IssuesTimeBoundedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))

	require.NoError(t, env.service.ForgotPassword(ctx, "a@x.com"))

	stored := env.accounts.stored(t, "a@x.com")
	require.NotNil(t, stored.ResetToken)
	require.NotNil(t, stored.ResetTokenExpires)
	assert.Equal(t, env.clock.now.Add(time.Hour), *stored.ResetTokenExpires)
	assert.Equal(t, *stored.ResetToken, env.emails.resetTokens["a@x.com"])
}

func TestForgotPassword_SecondRequestOverwritesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))

	require.NoError(t, env.service.ForgotPassword(ctx, "a@x.com"))
	first := env.emails.resetTokens["a@x.com"]
	require.NoError(t, env.service.ForgotPassword(ctx, "a@x.com"))
	second := env.emails.resetTokens["a@x.com"]

	assert.NotEqual(t, first, second)
	err := env.service.ResetPassword(ctx, first, "NewPw1!aaaa")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
	require.NoError(t, env.service.ResetPassword(ctx, second, "NewPw1!aaaa"))
}

func TestResetPassword_SuccessThenReplayFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	require.NoError(t, env.service.ForgotPassword(ctx, "a@x.com"))
	token := env.emails.resetTokens["a@x.com"]

	require.NoError(t, env.service.ResetPassword(ctx, token, "NewPw1!aaaa"))

	stored := env.accounts.stored(t, "a@x.com")
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpires)
	hasher := service.BcryptPasswordHasher{}
	assert.True(t, hasher.Verify(*stored.PasswordHash, "NewPw1!aaaa"))

	err := env.service.ResetPassword(ctx, token, "OtherPw1!aaaa")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestResetPassword_ExpiredTokenAlwaysFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	require.NoError(t, env.service.ForgotPassword(ctx, "a@x.com"))
	token := env.emails.resetTokens["a@x.com"]

	for _, elapsed := range []time.Duration{61 * time.Minute, 2 * time.Hour, 48 * time.Hour} {
		env.clock.now = env.clock.now.Add(elapsed)
		err := env.service.ResetPassword(ctx, token, "NewPw1!aaaa")
		assert.ErrorIs(t, err, service.ErrTokenExpired)
	}

	stored := env.accounts.stored(t, "a@x.com")
	require.NotNil(t, stored.ResetToken)
	assert.Equal(t, token, *stored.ResetToken)
}

func TestOAuthSignIn_NewAccountNeedsCompletion(t *testing.T) {
	env := newTestEnv(t)
	identity := service.OAuthIdentity{Email: "g@x.com", FirstName: "Grace", LastName: "Hopper"}

	result, err := env.service.OAuthSignIn(context.Background(), identity, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.NeedsCompletion)
	assert.NotEmpty(t, result.CompletionToken)
	assert.Nil(t, result.Login)

	stored := env.accounts.stored(t, "g@x.com")
	assert.True(t, stored.IsActive)
	assert.Nil(t, stored.PasswordHash)
	require.NotNil(t, stored.OAuthToken)
	assert.Equal(t, result.CompletionToken, *stored.OAuthToken)
}

func TestOAuthSignIn_ExistingAccountSignsIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	require.NoError(t, env.service.Activate(ctx, env.emails.activationTokens["a@x.com"]))

	result, err := env.service.OAuthSignIn(ctx, service.OAuthIdentity{Email: "a@x.com"}, nil, nil)
	require.NoError(t, err)
	assert.False(t, result.NeedsCompletion)
	require.NotNil(t, result.Login)
	assert.NotEmpty(t, result.Login.AccessToken)
}

func TestCompleteRegistration_ConsumedTokenLeavesRecordUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result, err := env.service.OAuthSignIn(ctx, service.OAuthIdentity{Email: "g@x.com", FirstName: "Grace"}, nil, nil)
	require.NoError(t, err)

	input := service.CompleteRegistrationInput{
		Token:            result.CompletionToken,
		Phone:            "+15550199",
		Password:         "Pw1!aaaa",
		SubscriptionPlan: entity.PlanPremium,
	}
	require.NoError(t, env.service.CompleteRegistration(ctx, input))

	stored := env.accounts.stored(t, "g@x.com")
	assert.Nil(t, stored.OAuthToken)
	require.NotNil(t, stored.Phone)
	phoneBefore := *stored.Phone
	hashBefore := *stored.PasswordHash

	replay := input
	replay.Phone = "+15550000"
	replay.Password = "Other1!aaaa"
	err = env.service.CompleteRegistration(ctx, replay)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	stored = env.accounts.stored(t, "g@x.com")
	assert.Equal(t, phoneBefore, *stored.Phone)
	assert.Equal(t, hashBefore, *stored.PasswordHash)
}

func TestLogin_GenericErrorForUnknownAndWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	require.NoError(t, env.service.Activate(ctx, env.emails.activationTokens["a@x.com"]))

	_, err := env.service.Login(ctx, service.LoginInput{Email: "nobody@x.com", Password: "Pw1!aaaa"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = env.service.Login(ctx, service.LoginInput{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_RejectsInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))

	_, err := env.service.Login(ctx, service.LoginInput{Email: "a@x.com", Password: "Pw1!aaaa"})
	assert.ErrorIs(t, err, service.ErrAccountNotActive)
}

func TestRegisterActivateLogin_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	require.NoError(t, env.service.Activate(ctx, env.emails.activationTokens["a@x.com"]))

	result, err := env.service.Login(ctx, service.LoginInput{Email: "a@x.com", Password: "Pw1!aaaa"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	require.NotNil(t, result.Account)
	assert.Equal(t, "a@x.com", result.Account.Email)
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	require.NoError(t, env.service.Activate(ctx, env.emails.activationTokens["a@x.com"]))
	login, err := env.service.Login(ctx, service.LoginInput{Email: "a@x.com", Password: "Pw1!aaaa"})
	require.NoError(t, err)

	refreshed, err := env.service.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = env.service.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestResetPassword_RevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.Register(ctx, registerInput("a@x.com")))
	require.NoError(t, env.service.Activate(ctx, env.emails.activationTokens["a@x.com"]))
	login, err := env.service.Login(ctx, service.LoginInput{Email: "a@x.com", Password: "Pw1!aaaa"})
	require.NoError(t, err)

	require.NoError(t, env.service.ForgotPassword(ctx, "a@x.com"))
	require.NoError(t, env.service.ResetPassword(ctx, env.emails.resetTokens["a@x.com"], "NewPw1!aaaa"))

	_, err = env.service.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
