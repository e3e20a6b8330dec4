package payments

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderEvent is an audit row per webhook delivery. It is never consulted
// to decide whether to apply a notification.
type ProviderEvent struct {
	ID           string         `gorm:"type:char(36);primaryKey"`
	Provider     string         `gorm:"type:varchar(32);not null;index:ix_provider_events_provider_data,priority:1"`
	DataID       string         `gorm:"type:varchar(64);not null;index:ix_provider_events_provider_data,priority:2"`
	EventType    string         `gorm:"type:varchar(64);not null"`
	RequestID    string         `gorm:"type:varchar(64);not null;default:''"`
	PayloadJSON  datatypes.JSON `gorm:"type:json"`
	Outcome      string         `gorm:"type:varchar(16);not null"`
	PaymentID    *string        `gorm:"type:char(36)"`
	ProcessError *string        `gorm:"type:varchar(255)"`

	ReceivedAt  time.Time  `gorm:"precision:3;not null"`
	ProcessedAt *time.Time `gorm:"precision:3"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

type EventLog struct {
	db *gorm.DB
}

func NewEventLog(db *gorm.DB) *EventLog { return &EventLog{db: db} }

func (l *EventLog) Record(ctx context.Context, provider string, n Notification, raw []byte, res SettlementResult, procErr error, receivedAt time.Time) error {
	ev := ProviderEvent{
		ID:         uuid.NewString(),
		Provider:   provider,
		DataID:     n.DataID,
		EventType:  n.Type,
		RequestID:  n.RequestID,
		Outcome:    string(res.Outcome),
		ReceivedAt: receivedAt,
	}
	if len(raw) > 0 && json.Valid(raw) {
		ev.PayloadJSON = datatypes.JSON(raw)
	}
	if res.PaymentID != "" {
		pid := res.PaymentID
		ev.PaymentID = &pid
	}
	if procErr != nil {
		msg := truncate(procErr.Error(), 250)
		ev.ProcessError = &msg
		ev.Outcome = "error"
	} else {
		now := time.Now()
		ev.ProcessedAt = &now
	}
	return l.db.WithContext(ctx).Create(&ev).Error
}

func (l *EventLog) ListByDataID(ctx context.Context, provider, dataID string) ([]ProviderEvent, error) {
	var out []ProviderEvent
	err := l.db.WithContext(ctx).
		Where("provider = ? AND data_id = ?", provider, dataID).
		Order("received_at ASC").
		Find(&out).Error
	return out, err
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
