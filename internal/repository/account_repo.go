package repository

import (
	"context"
	"errors"

	"regtechhorizon/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByActivationToken(ctx context.Context, token string) (*entity.Account, error)
	FindByOAuthToken(ctx context.Context, token string) (*entity.Account, error)
	FindByResetToken(ctx context.Context, token string) (*entity.Account, error)
	Update(ctx context.Context, account *entity.Account) error
	SearchCompanies(ctx context.Context, query string, region string, limit, offset int) ([]entity.Account, error)
	List(ctx context.Context, limit, offset int) ([]entity.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

// FindByEmail matches inactive records too: the duplicate-email check on
// registration must see accounts that are still awaiting activation.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *accountRepository) FindByActivationToken(ctx context.Context, token string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("activation_token = ? AND is_active = false", token).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *accountRepository) FindByOAuthToken(ctx context.Context, token string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("oauth_token = ?", token).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *accountRepository) FindByResetToken(ctx context.Context, token string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("reset_token = ?", token).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *accountRepository) SearchCompanies(ctx context.Context, query string, region string, limit, offset int) ([]entity.Account, error) {
	var companies []entity.Account
	q := r.db.WithContext(ctx).
		Where("role = ? AND is_active = true", entity.AccountRoleCompany).
		Order("company_name ASC")
	if query != "" {
		q = q.Where("company_name ILIKE ?", "%"+query+"%")
	}
	if region != "" {
		q = q.Where("region = ?", region)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *accountRepository) List(ctx context.Context, limit, offset int) ([]entity.Account, error) {
	var accounts []entity.Account
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
