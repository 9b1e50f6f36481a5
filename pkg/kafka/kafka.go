package kafka

import (
	"context"
	"fmt"
	"time"

	"HobbyChat/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer 单 topic 生产者。
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer 创建生产者。kafka-go 的 Writer 是惰性连接的，创建时不会访问 broker。
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           cfg.BatchTimeout,
			WriteTimeout:           cfg.WriteTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Topic 返回绑定的 topic
func (p *Producer) Topic() string { return p.topic }

// Send 同步发送一条消息，key 决定分区（同 key 有序）。
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Time: time.Now()}); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	return nil
}

// Close 刷新缓冲并关闭连接
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Message 消费到的消息
type Message = kafka.Message

// Consumer 消费组读取器，手动提交 offset。
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer 创建消费组读取器
func NewConsumer(cfg config.KafkaConfig, topic string, l *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          topic,
			GroupID:        cfg.ConsumerGroup,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
			Logger:         NewZapLoggerAdapter(l, false),
			ErrorLogger:    NewZapLoggerAdapter(l, true),
		}),
	}
}

// Fetch 阻塞读取下一条消息（不自动提交）
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.reader.FetchMessage(ctx)
}

// Commit 提交 offset
func (c *Consumer) Commit(ctx context.Context, msgs ...Message) error {
	return c.reader.CommitMessages(ctx, msgs...)
}

// Close 关闭读取器
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// NewZapLoggerAdapter 把 kafka-go 的日志接到 zap。普通日志降为 debug，避免刷屏。
func NewZapLoggerAdapter(l *zap.Logger, isError bool) kafka.LoggerFunc {
	return func(msg string, args ...interface{}) {
		if l == nil {
			return
		}
		if isError {
			l.Error(fmt.Sprintf(msg, args...), zap.String("component", "kafka"))
			return
		}
		l.Debug(fmt.Sprintf(msg, args...), zap.String("component", "kafka"))
	}
}
