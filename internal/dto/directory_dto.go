package dto

import "regtechhorizon/internal/entity"

type CompanyResponse struct {
	ID               string `json:"id"`
	CompanyName      string `json:"companyName"`
	Region           string `json:"region,omitempty"`
	SubscriptionPlan string `json:"subscriptionPlan"`
}

type DirectoryResponse struct {
	Companies []CompanyResponse `json:"companies"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

func CompanyResponseFromEntity(account *entity.Account) CompanyResponse {
	response := CompanyResponse{
		ID:               account.ID.String(),
		SubscriptionPlan: string(account.SubscriptionPlan),
	}
	if account.CompanyName != nil {
		response.CompanyName = *account.CompanyName
	}
	if account.Region != nil {
		response.Region = *account.Region
	}
	return response
}
