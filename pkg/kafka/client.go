// Package kafka 提供了中继交换事件的 Kafka 生产与消费功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"trade-caddie/internal/config"
	"trade-caddie/internal/model"
	"trade-caddie/pkg/log"
)

// messageWriter 是 *kafka.Writer 中 Publisher 用到的部分，便于测试替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 将 RelayEvent 以 JSON 写入配置的主题。
type Publisher struct {
	writer messageWriter
}

// NewPublisher 初始化 Kafka 生产者。
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Infof("Kafka 生产者初始化成功，主题 '%s'", cfg.Topic)
	return &Publisher{writer: w}
}

// Publish 发送一条中继事件，以 RequestID 作为消息键。
func (p *Publisher) Publish(ctx context.Context, event model.RelayEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal relay event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RequestID),
		Value: b,
	})
}

// Close 刷新并关闭底层 writer。
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// EventHandler 处理从主题读取到的一条事件。
type EventHandler func(ctx context.Context, event model.RelayEvent) error

// Consume 启动一个消费者循环，直到 ctx 结束或读取失败。
// 无法解析的消息会被记录并提交，避免阻塞队列。
func Consume(ctx context.Context, cfg config.KafkaConfig, handle EventHandler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		var event model.RelayEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, offset %d", err, m.Offset)
		} else if err := handle(ctx, event); err != nil {
			log.Errorf("处理中继事件失败: request_id=%s, err=%v", event.RequestID, err)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
