package repository

import (
	"context"

	"yieldgate/internal/models"

	"gorm.io/gorm"
)

// IntentRepository defines read access to transfer intents for the query
// surface. Intent writes happen inside the gateway's burn and mint
// transactions, not here.
type IntentRepository interface {
	GetIntent(ctx context.Context, messageID string) (*models.TransferIntent, error)
	ListIntentsBySender(ctx context.Context, sender string, limit int) ([]*models.TransferIntent, error)
}

type intentRepository struct {
	db *gorm.DB
}

// NewIntentRepository creates a new IntentRepository instance
func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepository{db: db}
}

func (r *intentRepository) GetIntent(ctx context.Context, messageID string) (*models.TransferIntent, error) {
	var intent models.TransferIntent
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *intentRepository) ListIntentsBySender(ctx context.Context, sender string, limit int) ([]*models.TransferIntent, error) {
	var intents []*models.TransferIntent
	err := r.db.WithContext(ctx).
		Where("sender = ?", sender).
		Order("created_at DESC").
		Limit(limit).
		Find(&intents).Error
	return intents, err
}
