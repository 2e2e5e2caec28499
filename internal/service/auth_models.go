package service

import "regtechhorizon/internal/entity"

type RegisterInput struct {
	FirstName        string
	LastName         string
	Email            string
	Password         string
	Phone            string
	CompanyName      string
	Region           string
	SubscriptionPlan entity.SubscriptionPlan
	ReferralCode     string
}

type CompleteRegistrationInput struct {
	Token            string
	Phone            string
	Password         string
	SubscriptionPlan entity.SubscriptionPlan
	ReferralCode     string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

type LoginResult struct {
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64
	Account          *entity.Account
}

// OAuthSignInResult distinguishes the two callback branches: an existing
// account signs in directly, a fresh one is parked behind a completion
// token until phone and password are supplied.
type OAuthSignInResult struct {
	NeedsCompletion bool
	CompletionToken string
	Login           *LoginResult
}

type UpdateProfileInput struct {
	FirstName   string
	LastName    string
	Phone       string
	CompanyName string
	Region      string
}
