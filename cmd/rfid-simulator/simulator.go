package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	mqttcommon "wisefido-asset/common/mqtt"
	"wisefido-asset/internal/events"
)

// Readers 模拟的读卡器位置
var Readers = []string{"Storage", "ICU", "ER", "OR", "Rehab"}

// DemoAssets 与 seed-demo 写入的资产编码一致
var DemoAssets = []string{"INF001", "VENT001", "MON001", "WC001"}

// Movement 资产从一处移动到另一处
type Movement struct {
	AssetCode string
	From      string
	To        string
}

// DefaultMovements 固定的演示移动脚本
var DefaultMovements = []Movement{
	{"INF001", "Storage", "ICU"},
	{"VENT001", "Storage", "ER"},
	{"MON001", "Storage", "OR"},
	{"WC001", "Storage", "Rehab"},
	{"INF001", "ICU", "Storage"},
	{"MON001", "OR", "Storage"},
	{"INF001", "Storage", "ER"},
	{"MON001", "Storage", "ICU"},
}

// Payloads 一次移动产生的读卡器事件：回到存放点由存放点读卡器上报 exit，其余为目标位置的 enter
func (m Movement) Payloads(storage string, now time.Time) []events.SignalPayload {
	ts := now.UTC().Format(time.RFC3339)
	if strings.EqualFold(m.To, storage) {
		return []events.SignalPayload{{AssetID: m.AssetCode, Location: storage, EventType: string(events.DirectionExit), Timestamp: ts}}
	}
	return []events.SignalPayload{{AssetID: m.AssetCode, Location: m.To, EventType: string(events.DirectionEnter), Timestamp: ts}}
}

// RandomMovements 随机生成 n 次移动，跳过原地不动
func RandomMovements(r *rand.Rand, assets, readers []string, n int) []Movement {
	out := make([]Movement, 0, n)
	for len(out) < n {
		from := readers[r.Intn(len(readers))]
		to := readers[r.Intn(len(readers))]
		if from == to {
			continue
		}
		out = append(out, Movement{AssetCode: assets[r.Intn(len(assets))], From: from, To: to})
	}
	return out
}

// Publisher 事件发送通道
type Publisher interface {
	Publish(ctx context.Context, p events.SignalPayload) error
}

// HTTPPublisher 通过 HTTP 接口上报
type HTTPPublisher struct {
	client *resty.Client
}

func NewHTTPPublisher(baseURL string) *HTTPPublisher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &HTTPPublisher{client: client}
}

func (p *HTTPPublisher) Publish(ctx context.Context, payload events.SignalPayload) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/rfid/api/v1/events")
	if err != nil {
		return fmt.Errorf("failed to post rfid event: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("rfid event rejected: status=%d body=%s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// MQTTPublisher 通过 MQTT 上报到 rfid/{location}/events
type MQTTPublisher struct {
	client *mqttcommon.Client
	qos    byte
}

func NewMQTTPublisher(client *mqttcommon.Client, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, qos: qos}
}

// TopicFor 读卡器位置对应的主题
func TopicFor(location string) string {
	return fmt.Sprintf("rfid/%s/events", location)
}

func (p *MQTTPublisher) Publish(_ context.Context, payload events.SignalPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Publish(TopicFor(payload.Location), p.qos, false, b)
}

// Simulator 按脚本发送读卡器事件
type Simulator struct {
	publisher Publisher
	storage   string
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewSimulator(publisher Publisher, storage string, interval time.Duration, logger *zap.Logger) *Simulator {
	return &Simulator{publisher: publisher, storage: storage, interval: interval, now: time.Now, logger: logger}
}

// Run 依次发送每次移动的事件，单条失败只记录日志；返回成功与失败条数
func (s *Simulator) Run(ctx context.Context, movements []Movement) (sent, failed int, err error) {
	for i, m := range movements {
		s.logger.Info("Movement",
			zap.Int("step", i+1),
			zap.String("asset_code", m.AssetCode),
			zap.String("from", m.From),
			zap.String("to", m.To),
		)
		for _, p := range m.Payloads(s.storage, s.now()) {
			if err := s.publisher.Publish(ctx, p); err != nil {
				failed++
				s.logger.Warn("RFID event failed", zap.String("asset_code", p.AssetID), zap.Error(err))
				continue
			}
			sent++
			s.logger.Info("RFID event sent",
				zap.String("asset_code", p.AssetID),
				zap.String("event_type", p.EventType),
				zap.String("location", p.Location),
			)
		}
		if s.interval > 0 && i < len(movements)-1 {
			select {
			case <-ctx.Done():
				return sent, failed, ctx.Err()
			case <-time.After(s.interval):
			}
		}
	}
	return sent, failed, nil
}
