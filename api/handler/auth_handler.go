package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"regtechhorizon/api/middleware"
	"regtechhorizon/internal/dto"
	"regtechhorizon/internal/entity"
	"regtechhorizon/internal/service"
	"regtechhorizon/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// resetRequestedMessage is returned for every forgot-password call,
// whether or not the email exists.
const resetRequestedMessage = "If an account exists for that email, a password reset link has been sent."

type AuthHandler struct {
	Service           *service.AuthService
	Validate          *validator.Validate
	OAuth             service.OAuthProvider
	AppBaseURL        string
	RefreshCookieName string
	StateCookieName   string
	CookieDomain      string
	SecureCookies     bool
	SameSite          http.SameSite
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		Service:           svc,
		Validate:          validate,
		RefreshCookieName: "refresh_token",
		StateCookieName:   "oauth_state",
		SecureCookies:     true,
		SameSite:          http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	input := service.RegisterInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Password:         req.Password,
		Phone:            req.Phone,
		CompanyName:      req.CompanyName,
		Region:           req.Region,
		SubscriptionPlan: entity.SubscriptionPlan(req.SubscriptionPlan),
		ReferralCode:     req.ReferralCode,
	}
	if err := h.Service.Register(c.Request().Context(), input); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.MessageResponse{
		Message: "Registration successful. Please check your email to activate your account.",
	})
}

func (h *AuthHandler) Activate(c echo.Context) error {
	var req dto.ActivateRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.Service.Activate(c.Request().Context(), req.Token); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Account activated. You can now sign in."})
}

func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	if h.OAuth == nil {
		return writeError(c, http.StatusServiceUnavailable, "oauth", errors.New("oauth sign-in is not configured"))
	}
	state, err := randomState()
	if err != nil {
		return writeServiceError(c, err)
	}
	h.setStateCookie(c, state)
	return c.Redirect(http.StatusFound, h.OAuth.AuthCodeURL(state))
}

func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if h.OAuth == nil {
		return writeError(c, http.StatusServiceUnavailable, "oauth", errors.New("oauth sign-in is not configured"))
	}
	state := c.QueryParam("state")
	if state == "" || state != h.readStateCookie(c) {
		return writeError(c, http.StatusBadRequest, "oauth", errors.New("invalid oauth state"))
	}
	h.clearStateCookie(c)

	if c.QueryParam("error") != "" {
		return c.Redirect(http.StatusFound, h.appURL("/login?error=oauth"))
	}
	code := c.QueryParam("code")
	if code == "" {
		return writeError(c, http.StatusBadRequest, "oauth", errors.New("missing authorization code"))
	}

	identity, err := h.OAuth.FetchIdentity(c.Request().Context(), code)
	if err != nil {
		c.Logger().Error(err)
		return c.Redirect(http.StatusFound, h.appURL("/login?error=oauth"))
	}

	result, err := h.Service.OAuthSignIn(c.Request().Context(), *identity, stringPtr(c.RealIP()), stringPtr(c.Request().UserAgent()))
	if err != nil {
		return writeServiceError(c, err)
	}

	if result.NeedsCompletion {
		return c.Redirect(http.StatusFound, h.appURL("/complete-registration?token="+result.CompletionToken))
	}
	h.setRefreshCookie(c, result.Login.RefreshToken, result.Login.RefreshExpiresIn)
	return c.Redirect(http.StatusFound, h.appURL("/dashboard#access_token="+result.Login.AccessToken))
}

func (h *AuthHandler) CompleteRegistration(c echo.Context) error {
	var req dto.CompleteRegistrationRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	input := service.CompleteRegistrationInput{
		Token:            req.Token,
		Phone:            req.Phone,
		Password:         req.Password,
		SubscriptionPlan: entity.SubscriptionPlan(req.SubscriptionPlan),
		ReferralCode:     req.ReferralCode,
	}
	if err := h.Service.CompleteRegistration(c.Request().Context(), input); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Registration completed. You can now sign in."})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req dto.ForgotPasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.Service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: resetRequestedMessage})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req dto.ResetPasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated. You can now sign in."})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	input := service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: stringPtr(c.RealIP()),
		UserAgent: stringPtr(c.Request().UserAgent()),
	}
	result, err := h.Service.Login(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresIn)
	return c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
		User:        dto.AccountResponseFromEntity(result.Account),
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshToken := h.readRefreshCookie(c)
	if refreshToken == "" {
		return writeError(c, http.StatusUnauthorized, "invalid_token", errors.New("missing refresh token"))
	}
	result, err := h.Service.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		return writeServiceError(c, err)
	}
	h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresIn)
	return c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
		User:        dto.AccountResponseFromEntity(result.Account),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized", errors.New("unauthorized"))
	}
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized", errors.New("unauthorized"))
	}
	if err := h.Service.Logout(c.Request().Context(), sessionID, &accountID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) LogoutAll(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized", errors.New("unauthorized"))
	}
	if err := h.Service.LogoutAll(c.Request().Context(), accountID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized", errors.New("unauthorized"))
	}
	account, err := h.Service.GetAccount(c.Request().Context(), accountID)
	if err != nil {
		return writeServiceError(c, err)
	}
	if account == nil {
		return writeError(c, http.StatusNotFound, "not_found", errors.New("account not found"))
	}
	return c.JSON(http.StatusOK, dto.AccountResponseFromEntity(account))
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized", errors.New("unauthorized"))
	}
	var req dto.UpdateProfileRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	account, err := h.Service.UpdateProfile(c.Request().Context(), accountID, service.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		Region:      req.Region,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.AccountResponseFromEntity(account))
}

func (h *AuthHandler) ChangeSubscription(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized", errors.New("unauthorized"))
	}
	var req dto.ChangeSubscriptionRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation", err)
	}
	account, err := h.Service.ChangeSubscription(c.Request().Context(), accountID, entity.SubscriptionPlan(req.SubscriptionPlan))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.AccountResponseFromEntity(account))
}

func (h *AuthHandler) AdminListAccounts(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	accounts, err := h.Service.ListAccounts(c.Request().Context(), limit, offset)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.AccountResponsesFromEntities(accounts))
}

func (h *AuthHandler) AdminRevokeAccountSessions(c echo.Context) error {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "validation", errors.New("invalid account id"))
	}
	if err := h.Service.RevokeAccountSessions(c.Request().Context(), accountID); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func (h *AuthHandler) appURL(path string) string {
	return strings.TrimRight(h.AppBaseURL, "/") + path
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, expiresIn int64) {
	if token == "" {
		return
	}
	maxAge := int(expiresIn)
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetCookie(&http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(expiresIn) * time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AuthHandler) readRefreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(h.RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *AuthHandler) setStateCookie(c echo.Context, state string) {
	c.SetCookie(&http.Cookie{
		Name:     h.StateCookieName,
		Value:    state,
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   300,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AuthHandler) clearStateCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.StateCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AuthHandler) readStateCookie(c echo.Context) string {
	cookie, err := c.Cookie(h.StateCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(c echo.Context, status int, kind string, err error) error {
	return c.JSON(status, errorResponse{Kind: kind, Message: err.Error()})
}

// writeServiceError maps service sentinels to one JSON error shape.
// Upstream detail never reaches the client on a 500.
func writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return writeError(c, http.StatusBadRequest, "validation", err)
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return writeError(c, http.StatusBadRequest, "conflict", err)
	case errors.Is(err, service.ErrInvalidToken):
		return writeError(c, http.StatusBadRequest, "invalid_token", err)
	case errors.Is(err, service.ErrTokenExpired):
		return writeError(c, http.StatusBadRequest, "expired_token", err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return writeError(c, http.StatusUnauthorized, "invalid_credentials", err)
	case errors.Is(err, service.ErrAccountNotActive):
		return writeError(c, http.StatusForbidden, "not_activated", err)
	case errors.Is(err, service.ErrAccountNotFound):
		return writeError(c, http.StatusNotFound, "not_found", err)
	}
	c.Logger().Error(err)
	return writeError(c, http.StatusInternalServerError, "internal", errors.New("something went wrong, please try again later"))
}

func parseLimitOffset(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}

func randomState() (string, error) {
	return utils.GenerateRandomToken(16)
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
