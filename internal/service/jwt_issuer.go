package service

import (
	"time"

	"regtechhorizon/internal/entity"
	"regtechhorizon/internal/utils"

	"github.com/google/uuid"
)

type JWTAccessIssuer struct {
	Manager *utils.JWTManager
}

func (j JWTAccessIssuer) IssueAccessToken(account entity.Account, sessionID uuid.UUID) (string, time.Duration, error) {
	if j.Manager == nil {
		return "", 0, ErrInvalidToken
	}
	return j.Manager.IssueAccessToken(
		account.ID.String(),
		string(account.Role),
		string(account.SubscriptionPlan),
		sessionID.String(),
	)
}
