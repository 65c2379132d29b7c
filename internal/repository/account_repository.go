// Package repository provides data access interfaces and implementations
package repository

import (
	"context"

	"yieldgate/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines read access to accounts for the query surface.
// Mutations go through the ledger store so they share its transaction scope.
type AccountRepository interface {
	List(ctx context.Context, page, pageSize int) ([]*models.Account, int64, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// List retrieves paginated accounts ordered by creation time
func (r *accountRepository) List(ctx context.Context, page, pageSize int) ([]*models.Account, int64, error) {
	var accounts []*models.Account
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Account{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&accounts).Error
	return accounts, total, err
}
