package domain

import "time"

// AlertType 告警类型
type AlertType string

const (
	AlertRentalExpiry     AlertType = "rental_expiry"
	AlertOveruse          AlertType = "overuse"
	AlertInactivity       AlertType = "inactivity"
	AlertLocationMismatch AlertType = "location_mismatch" // 保留，当前不产生
)

// Severity 告警级别
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert 告警记录（对应 alerts 表），只追加，仅由告警引擎创建
type Alert struct {
	ID         string     `db:"id" json:"id"`
	AssetID    string     `db:"asset_id" json:"asset_id"`
	Type       AlertType  `db:"alert_type" json:"alert_type"`
	Message    string     `db:"message" json:"message"`
	Severity   Severity   `db:"severity" json:"severity"`
	IsResolved bool       `db:"is_resolved" json:"is_resolved"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy *string    `db:"resolved_by" json:"resolved_by,omitempty"`
}

// AlertFilter 告警列表过滤条件
type AlertFilter struct {
	AssetID  string
	Resolved *bool
	Types    []AlertType
	Limit    int
}
