package providerconfig

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, provider string) (ProviderConfig, error) {
	var pc ProviderConfig
	err := r.db.WithContext(ctx).Where("provider = ?", provider).First(&pc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProviderConfig{}, ErrNotFound
	}
	return pc, err
}

// Upsert writes the record keyed by provider in one statement; an existing
// row gets version+1. Concurrent writers never create a second row.
func (r *Repo) Upsert(ctx context.Context, in ProviderConfig) (ProviderConfig, error) {
	now := time.Now()
	in.ID = uuid.NewString()
	in.Version = 1
	in.CreatedAt = now
	in.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}},
		DoUpdates: clause.Assignments(map[string]any{
			"access_token":     in.AccessToken,
			"public_key":       in.PublicKey,
			"client_id":        in.ClientID,
			"client_secret":    in.ClientSecret,
			"webhook_secret":   in.WebhookSecret,
			"notification_url": in.NotificationURL,
			"is_sandbox":       in.IsSandbox,
			"is_active":        in.IsActive,
			"updated_by":       in.UpdatedBy,
			"updated_at":       now,
			"version":          gorm.Expr("version + 1"),
		}),
	}).Create(&in).Error
	if err != nil {
		return ProviderConfig{}, err
	}
	return r.Get(ctx, in.Provider)
}

func (r *Repo) RecordTest(ctx context.Context, id string, at time.Time, result []byte) error {
	return r.db.WithContext(ctx).Model(&ProviderConfig{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_tested_at": at, "test_result": result}).Error
}
