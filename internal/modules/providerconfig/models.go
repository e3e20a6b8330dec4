package providerconfig

import (
	"time"

	"gorm.io/datatypes"
)

// ProviderConfig is the admin-managed credential record, one row per provider.
type ProviderConfig struct {
	ID              string         `gorm:"type:char(36);primaryKey" json:"id"`
	Provider        string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_provider_configs_provider" json:"provider"`
	AccessToken     string         `gorm:"type:varchar(255);not null" json:"accessToken"`
	PublicKey       string         `gorm:"type:varchar(255);not null" json:"publicKey"`
	ClientID        string         `gorm:"type:varchar(128)" json:"clientId,omitempty"`
	ClientSecret    string         `gorm:"type:varchar(255)" json:"clientSecret,omitempty"`
	WebhookSecret   string         `gorm:"type:varchar(255)" json:"webhookSecret,omitempty"`
	NotificationURL string         `gorm:"type:varchar(512)" json:"notificationUrl,omitempty"`
	IsSandbox       bool           `gorm:"not null" json:"isSandbox"`
	IsActive        bool           `gorm:"not null" json:"isActive"`
	Version         int            `gorm:"not null" json:"version"`
	LastTestedAt    *time.Time     `gorm:"precision:3" json:"lastTestedAt,omitempty"`
	TestResult      datatypes.JSON `gorm:"type:json" json:"testResult,omitempty"`
	UpdatedBy       string         `gorm:"type:char(36);not null" json:"updatedBy"`
	CreatedAt       time.Time      `gorm:"precision:3;not null" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"precision:3;not null" json:"updatedAt"`
}

func (ProviderConfig) TableName() string { return "provider_configs" }

// TestResult is stored as JSON after every connection test.
type TestResult struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	PreferenceID string    `json:"preferenceId,omitempty"`
	Error        string    `json:"error,omitempty"`
	TestedAt     time.Time `json:"testedAt"`
}
