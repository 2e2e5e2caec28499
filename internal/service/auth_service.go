package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"regtechhorizon/internal/entity"
	"regtechhorizon/internal/repository"
	"regtechhorizon/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

type AuthService struct {
	accounts  repository.AccountRepository
	sessions  repository.SessionRepository
	auditLogs repository.AuditLogRepository

	emailSender  EmailSender
	passwordHash PasswordHasher
	accessTokens AccessTokenIssuer
	clock        Clock
	logger       *logrus.Logger
	config       AuthConfig
}

func NewAuthService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	auditLogs repository.AuditLogRepository,
	emailSender EmailSender,
	passwordHash PasswordHasher,
	accessTokens AccessTokenIssuer,
	clock Clock,
	logger *logrus.Logger,
	config AuthConfig,
) *AuthService {
	return &AuthService{
		accounts:     accounts,
		sessions:     sessions,
		auditLogs:    auditLogs,
		emailSender:  emailSender,
		passwordHash: passwordHash,
		accessTokens: accessTokens,
		clock:        clock,
		logger:       logger,
		config:       config,
	}
}

// Register creates an inactive account and mails an activation link. A
// failure to deliver the email does not fail the registration.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return ErrInvalidInput
	}
	if !input.SubscriptionPlan.Valid() {
		return ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailAlreadyRegistered
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return err
	}

	activationToken := uuid.NewString()
	account := &entity.Account{
		Email:            email,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Phone:            optional(input.Phone),
		CompanyName:      optional(input.CompanyName),
		Region:           optional(input.Region),
		Role:             roleForRegistration(input),
		PasswordHash:     &hash,
		ActivationToken:  &activationToken,
		IsActive:         false,
		SubscriptionPlan: input.SubscriptionPlan,
		ReferralCode:     optional(input.ReferralCode),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return err
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendActivationEmail(ctx, account.Email, activationToken); err != nil {
			s.log().WithError(err).WithField("email", account.Email).
				Warn("activation email delivery failed")
		}
	}

	_ = s.audit(ctx, &account.ID, nil, entity.AuditRegistered, map[string]any{"email": email})
	return nil
}

// Activate consumes an activation token. The 24h window is computed from
// the record's creation time; an expired token is rejected but left in
// place, so the link stays permanently unusable rather than vanishing.
func (s *AuthService) Activate(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}

	account, err := s.accounts.FindByActivationToken(ctx, token)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrInvalidToken
	}

	if s.now().Sub(account.CreatedAt) > s.activationTokenTTL() {
		return ErrTokenExpired
	}

	now := s.now()
	account.IsActive = true
	account.ActivationToken = nil
	account.ActivatedAt = &now
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	_ = s.audit(ctx, &account.ID, nil, entity.AuditActivated, nil)
	return nil
}

// OAuthSignIn handles a provider callback carrying a verified email and
// name. Known accounts sign in; unknown ones are created active with a
// single-use completion token, since the provider supplies neither a
// password nor a phone number.
func (s *AuthService) OAuthSignIn(ctx context.Context, identity OAuthIdentity, ipAddress *string, userAgent *string) (*OAuthSignInResult, error) {
	if strings.TrimSpace(identity.Email) == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(identity.Email)
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if account != nil {
		if !account.IsActive {
			return nil, ErrAccountNotActive
		}
		login, err := s.createSessionAndTokens(ctx, account, ipAddress, userAgent)
		if err != nil {
			return nil, err
		}
		_ = s.audit(ctx, &account.ID, ipAddress, entity.AuditLoginSuccess, map[string]any{"provider": "google"})
		return &OAuthSignInResult{Login: login}, nil
	}

	completionToken := uuid.NewString()
	now := s.now()
	account = &entity.Account{
		Email:            email,
		FirstName:        identity.FirstName,
		LastName:         identity.LastName,
		Role:             entity.AccountRoleUser,
		OAuthToken:       &completionToken,
		IsActive:         true,
		ActivatedAt:      &now,
		SubscriptionPlan: entity.PlanBasic,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	_ = s.audit(ctx, &account.ID, ipAddress, entity.AuditOAuthSignup, map[string]any{"provider": "google"})
	return &OAuthSignInResult{NeedsCompletion: true, CompletionToken: completionToken}, nil
}

// CompleteRegistration consumes the oauth completion token and fills in
// the fields the provider could not supply. A consumed or unknown token
// leaves the record untouched.
func (s *AuthService) CompleteRegistration(ctx context.Context, input CompleteRegistrationInput) error {
	if strings.TrimSpace(input.Token) == "" || strings.TrimSpace(input.Password) == "" {
		return ErrInvalidInput
	}
	if !input.SubscriptionPlan.Valid() {
		return ErrInvalidInput
	}

	account, err := s.accounts.FindByOAuthToken(ctx, input.Token)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrInvalidToken
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return err
	}

	account.PasswordHash = &hash
	account.Phone = optional(input.Phone)
	account.SubscriptionPlan = input.SubscriptionPlan
	account.ReferralCode = optional(input.ReferralCode)
	account.OAuthToken = nil
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	_ = s.audit(ctx, &account.ID, nil, entity.AuditRegistrationCompleted, nil)
	return nil
}

// ForgotPassword never discloses whether the email exists; the handler
// returns the same body either way. A second request before the first
// token is used overwrites it, which is the intended last-writer-wins.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidInput
	}

	account, err := s.accounts.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if account == nil {
		return nil
	}

	resetToken := uuid.NewString()
	expiresAt := s.now().Add(s.resetTokenTTL())
	account.ResetToken = &resetToken
	account.ResetTokenExpires = &expiresAt
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendPasswordResetEmail(ctx, account.Email, resetToken); err != nil {
			return err
		}
	}

	_ = s.audit(ctx, &account.ID, nil, entity.AuditResetRequested, nil)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}

	account, err := s.accounts.FindByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrInvalidToken
	}

	// An expired token is rejected without being cleared.
	if account.ResetTokenExpires == nil || s.now().After(*account.ResetTokenExpires) {
		return ErrTokenExpired
	}

	hash, err := s.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = &hash
	account.ResetToken = nil
	account.ResetTokenExpires = nil
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	_ = s.sessions.RevokeAllByAccount(ctx, account.ID)
	_ = s.audit(ctx, &account.ID, nil, entity.AuditPasswordReset, nil)
	return nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil || account.PasswordHash == nil {
		// Burn a hash verification so unknown emails cost the same.
		_ = s.passwordHash.Verify(dummyPasswordHash, input.Password)
		_ = s.audit(ctx, nil, input.IPAddress, entity.AuditLoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	if !s.passwordHash.Verify(*account.PasswordHash, input.Password) {
		_ = s.audit(ctx, &account.ID, input.IPAddress, entity.AuditLoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, ErrAccountNotActive
	}

	result, err := s.createSessionAndTokens(ctx, account, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	_ = s.audit(ctx, &account.ID, input.IPAddress, entity.AuditLoginSuccess, nil)
	return result, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessions.FindByTokenHash(ctx, utils.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidToken
	}

	account, err := s.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	newRefreshToken, newRefreshHash, newRefreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.sessions.RotateToken(ctx, session.ID, newRefreshHash, newRefreshExpiry); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*account, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		RefreshToken:     newRefreshToken,
		RefreshExpiresIn: int64(newRefreshExpiry.Sub(s.now()).Seconds()),
		Account:          account,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID, accountID *uuid.UUID, ipAddress *string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	_ = s.audit(ctx, accountID, ipAddress, entity.AuditLogout, nil)
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, accountID uuid.UUID, ipAddress *string) error {
	if err := s.sessions.RevokeAllByAccount(ctx, accountID); err != nil {
		return err
	}
	_ = s.audit(ctx, &accountID, ipAddress, entity.AuditSessionRevoked, map[string]any{"scope": "all"})
	return nil
}

func (s *AuthService) GetAccount(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	return s.accounts.FindByID(ctx, accountID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, accountID uuid.UUID, input UpdateProfileInput) (*entity.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	account.FirstName = input.FirstName
	account.LastName = input.LastName
	account.Phone = optional(input.Phone)
	account.CompanyName = optional(input.CompanyName)
	account.Region = optional(input.Region)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AuthService) ChangeSubscription(ctx context.Context, accountID uuid.UUID, plan entity.SubscriptionPlan) (*entity.Account, error) {
	if !plan.Valid() {
		return nil, ErrInvalidInput
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	account.SubscriptionPlan = plan
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AuthService) ListAccounts(ctx context.Context, limit, offset int) ([]entity.Account, error) {
	return s.accounts.List(ctx, limit, offset)
}

func (s *AuthService) RevokeAccountSessions(ctx context.Context, accountID uuid.UUID) error {
	return s.sessions.RevokeAllByAccount(ctx, accountID)
}

func (s *AuthService) createSessionAndTokens(
	ctx context.Context,
	account *entity.Account,
	ipAddress *string,
	userAgent *string,
) (*LoginResult, error) {
	refreshToken, refreshHash, refreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		AccountID: account.ID,
		TokenHash: refreshHash,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: refreshExpiry,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*account, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(refreshExpiry.Sub(s.now()).Seconds()),
		Account:          account,
	}, nil
}

func (s *AuthService) buildRefreshToken() (string, string, time.Time, error) {
	rawToken, err := utils.GenerateRandomToken(48)
	if err != nil {
		return "", "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.refreshTokenTTL())
	return rawToken, utils.HashToken(rawToken), expiresAt, nil
}

func (s *AuthService) audit(
	ctx context.Context,
	accountID *uuid.UUID,
	ipAddress *string,
	action entity.AuditAction,
	metadata map[string]any,
) error {
	if s.auditLogs == nil {
		return nil
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(bytes)
	}

	log := &entity.AuditLog{
		AccountID: accountID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
	}
	return s.auditLogs.Log(ctx, log)
}

func (s *AuthService) log() *logrus.Logger {
	if s.logger == nil {
		return logrus.StandardLogger()
	}
	return s.logger
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *AuthService) activationTokenTTL() time.Duration {
	if s.config.ActivationTokenTTL > 0 {
		return s.config.ActivationTokenTTL
	}
	return 24 * time.Hour
}

func (s *AuthService) resetTokenTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return time.Hour
}

func (s *AuthService) refreshTokenTTL() time.Duration {
	if s.config.RefreshTokenTTL > 0 {
		return s.config.RefreshTokenTTL
	}
	return 30 * 24 * time.Hour
}

func roleForRegistration(input RegisterInput) entity.AccountRole {
	if strings.TrimSpace(input.CompanyName) != "" {
		return entity.AccountRoleCompany
	}
	return entity.AccountRoleUser
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
