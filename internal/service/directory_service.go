package service

import (
	"context"
	"strings"

	"regtechhorizon/internal/entity"
	"regtechhorizon/internal/repository"
)

const (
	directoryDefaultLimit = 20
	directoryMaxLimit     = 100
)

// DirectoryService serves the public company directory. Only active
// company-role accounts are listed.
type DirectoryService struct {
	accounts repository.AccountRepository
}

func NewDirectoryService(accounts repository.AccountRepository) *DirectoryService {
	return &DirectoryService{accounts: accounts}
}

func (s *DirectoryService) ListCompanies(ctx context.Context, query string, region string, limit, offset int) ([]entity.Account, error) {
	if limit <= 0 {
		limit = directoryDefaultLimit
	}
	if limit > directoryMaxLimit {
		limit = directoryMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.SearchCompanies(ctx, strings.TrimSpace(query), strings.TrimSpace(region), limit, offset)
}
