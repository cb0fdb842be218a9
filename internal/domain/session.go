package domain

import "time"

// SessionStatus 使用会话状态
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// SessionSource 会话来源
type SessionSource string

const (
	SourceRFID   SessionSource = "rfid"
	SourceManual SessionSource = "manual"
)

// UsageSession 设备使用会话（对应 usage_sessions 表）
// 每个资产同一时间最多一个 active 会话
type UsageSession struct {
	ID                    string        `db:"id" json:"id"`
	AssetID               string        `db:"asset_id" json:"asset_id"`
	OperatorID            *string       `db:"operator_id" json:"operator_id"` // RFID 会话为空
	StartTime             time.Time     `db:"start_time" json:"start_time"`
	EndTime               *time.Time    `db:"end_time" json:"end_time,omitempty"`
	ExpectedDurationHours *float64      `db:"expected_duration_hours" json:"expected_duration_hours,omitempty"`
	Reason                string        `db:"reason" json:"reason,omitempty"`
	Department            string        `db:"department" json:"department,omitempty"`
	Status                SessionStatus `db:"status" json:"status"`
	Notes                 string        `db:"notes" json:"notes,omitempty"`
	SubjectRef            *string       `db:"subject_ref" json:"subject_ref,omitempty"` // 患者假名标识
	Source                SessionSource `db:"source" json:"source"`
}

// Close 结束会话，end 早于 start 时钳制为 start
func (s *UsageSession) Close(end time.Time) {
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	s.EndTime = &end
	s.Status = SessionCompleted
}

// DurationHours 已结束会话的时长（小时）
func (s *UsageSession) DurationHours() float64 {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Hours()
}

// SessionFilter 会话列表过滤条件
type SessionFilter struct {
	AssetID string
	Status  SessionStatus
	Limit   int
}
