package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wisefido-asset/internal/domain"
)

// Direction 读卡器方向
type Direction string

const (
	DirectionEnter Direction = "enter"
	DirectionExit  Direction = "exit"
)

// LocationSignal RFID 定位信号
type LocationSignal struct {
	AssetCode string
	Location  string
	Direction Direction
	Timestamp time.Time // 零值表示接收时刻
}

// Validate 字段完整性校验
func (s LocationSignal) Validate() error {
	if strings.TrimSpace(s.AssetCode) == "" {
		return fmt.Errorf("%w: asset_id is required", domain.ErrMalformedSignal)
	}
	if strings.TrimSpace(s.Location) == "" {
		return fmt.Errorf("%w: location is required", domain.ErrMalformedSignal)
	}
	if s.Direction != DirectionEnter && s.Direction != DirectionExit {
		return fmt.Errorf("%w: unknown event_type %q", domain.ErrMalformedSignal, s.Direction)
	}
	return nil
}

// SignalPayload 读卡器上报的 JSON 格式（HTTP 与 MQTT 共用）
type SignalPayload struct {
	AssetID   string `json:"asset_id"`
	Location  string `json:"location"`
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp,omitempty"`
}

// 读卡器时间戳格式，无时区时按 UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp 解析读卡器时间戳，空串返回零值
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", domain.ErrMalformedSignal, raw)
}

// Signal 转换为定位信号
func (p SignalPayload) Signal() (LocationSignal, error) {
	ts, err := ParseTimestamp(p.Timestamp)
	if err != nil {
		return LocationSignal{}, err
	}
	sig := LocationSignal{
		AssetCode: strings.TrimSpace(p.AssetID),
		Location:  strings.TrimSpace(p.Location),
		Direction: Direction(strings.ToLower(strings.TrimSpace(p.EventType))),
		Timestamp: ts,
	}
	return sig, sig.Validate()
}

// DecodeSignal 解析 JSON 载荷
func DecodeSignal(b []byte) (LocationSignal, error) {
	var p SignalPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return LocationSignal{}, fmt.Errorf("%w: %v", domain.ErrMalformedSignal, err)
	}
	return p.Signal()
}
