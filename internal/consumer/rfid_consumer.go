package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	mqttcommon "wisefido-asset/common/mqtt"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/events"
)

// Subscriber MQTT 订阅能力（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// SignalHandler 定位信号处理（events.Router 实现）
type SignalHandler interface {
	HandleLocationSignal(ctx context.Context, sig events.LocationSignal) (*events.Result, error)
}

// RFIDConsumer RFID 读卡器消息消费者
type RFIDConsumer struct {
	subscriber Subscriber
	handler    SignalHandler
	topic      string
	qos        byte
	logger     *zap.Logger
}

// NewRFIDConsumer 创建RFID消费者
func NewRFIDConsumer(subscriber Subscriber, handler SignalHandler, topic string, qos byte, logger *zap.Logger) *RFIDConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RFIDConsumer{
		subscriber: subscriber,
		handler:    handler,
		topic:      topic,
		qos:        qos,
		logger:     logger,
	}
}

// Start 启动消费者，阻塞到 ctx 取消
func (c *RFIDConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(c.topic, c.qos, func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to rfid topic: %w", err)
	}

	c.logger.Info("RFID consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *RFIDConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("RFID consumer stopped")
}

// handleMessage 处理读卡器消息
// 主题格式: rfid/{location}/events，载荷缺少 location 时取主题中的读卡器位置
func (c *RFIDConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	c.logger.Debug("Received RFID message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var p events.SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedSignal, err)
	}
	if strings.TrimSpace(p.Location) == "" {
		p.Location = LocationFromTopic(topic)
	}
	sig, err := p.Signal()
	if err != nil {
		return err
	}

	res, err := c.handler.HandleLocationSignal(ctx, sig)
	if err != nil {
		if errors.Is(err, domain.ErrAssetNotFound) {
			c.logger.Warn("RFID signal for unknown asset",
				zap.String("asset_code", sig.AssetCode),
				zap.String("location", sig.Location),
			)
		}
		return err
	}

	c.logger.Debug("RFID signal applied",
		zap.String("asset_code", sig.AssetCode),
		zap.String("outcome", string(res.Outcome)),
	)
	return nil
}

// LocationFromTopic 提取 rfid/{location}/events 中的位置
func LocationFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}
