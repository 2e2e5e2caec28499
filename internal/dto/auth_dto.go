package dto

import (
	"time"

	"regtechhorizon/internal/entity"
)

type RegisterRequest struct {
	FirstName        string `json:"firstName" validate:"required,max=100"`
	LastName         string `json:"lastName" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	Phone            string `json:"phone" validate:"required,max=32"`
	CompanyName      string `json:"companyName" validate:"omitempty,max=255"`
	Region           string `json:"region" validate:"omitempty,max=100"`
	SubscriptionPlan string `json:"subscriptionPlan" validate:"required,oneof=basic standard premium"`
	ReferralCode     string `json:"referralCode" validate:"omitempty,max=64"`
}

type ActivateRequest struct {
	Token string `json:"token" validate:"required"`
}

type CompleteRegistrationRequest struct {
	Token            string `json:"token" validate:"required"`
	Phone            string `json:"phone" validate:"required,max=32"`
	Password         string `json:"password" validate:"required,min=8"`
	SubscriptionPlan string `json:"subscriptionPlan" validate:"required,oneof=basic standard premium"`
	ReferralCode     string `json:"referralCode" validate:"omitempty,max=64"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
	User        AccountResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UpdateProfileRequest struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	CompanyName string `json:"companyName" validate:"omitempty,max=255"`
	Region      string `json:"region" validate:"omitempty,max=100"`
}

type ChangeSubscriptionRequest struct {
	SubscriptionPlan string `json:"subscriptionPlan" validate:"required,oneof=basic standard premium"`
}

type AccountResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Phone            string     `json:"phone,omitempty"`
	CompanyName      string     `json:"companyName,omitempty"`
	Region           string     `json:"region,omitempty"`
	Role             string     `json:"role"`
	IsActive         bool       `json:"is_active"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	SubscriptionPlan string     `json:"subscriptionPlan"`
	ReferralCode     string     `json:"referralCode,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func AccountResponseFromEntity(account *entity.Account) AccountResponse {
	response := AccountResponse{
		ID:               account.ID.String(),
		Email:            account.Email,
		FirstName:        account.FirstName,
		LastName:         account.LastName,
		Role:             string(account.Role),
		IsActive:         account.IsActive,
		ActivatedAt:      account.ActivatedAt,
		SubscriptionPlan: string(account.SubscriptionPlan),
		CreatedAt:        account.CreatedAt,
		UpdatedAt:        account.UpdatedAt,
	}
	if account.Phone != nil {
		response.Phone = *account.Phone
	}
	if account.CompanyName != nil {
		response.CompanyName = *account.CompanyName
	}
	if account.Region != nil {
		response.Region = *account.Region
	}
	if account.ReferralCode != nil {
		response.ReferralCode = *account.ReferralCode
	}
	return response
}

func AccountResponsesFromEntities(accounts []entity.Account) []AccountResponse {
	responses := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, AccountResponseFromEntity(&accounts[i]))
	}
	return responses
}
