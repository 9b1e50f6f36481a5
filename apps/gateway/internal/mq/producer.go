package mq

import (
	"context"
	"errors"
	"sync/atomic"

	"HobbyChat/pkg/metrics"

	"github.com/goccy/go-json"
)

// ErrProducerNotReady Kafka 未初始化（降级运行）
var ErrProducerNotReady = errors.New("mq: producer not initialized")

// Sender 消息发送端，*kafka.Producer 实现了该接口
type Sender interface {
	Send(ctx context.Context, key, value []byte) error
}

var globalProducer atomic.Pointer[senderHolder]

type senderHolder struct{ s Sender }

// SetGlobalProducer 设置全局重试队列生产者，传 nil 表示关闭重试
func SetGlobalProducer(s Sender) {
	if s == nil {
		globalProducer.Store(nil)
		return
	}
	globalProducer.Store(&senderHolder{s: s})
}

// SendRedisTask 把任务写入重试队列
func SendRedisTask(ctx context.Context, task RedisTask) error {
	h := globalProducer.Load()
	if h == nil {
		metrics.RedisRetryTasksTotal.WithLabelValues("dropped").Inc()
		return ErrProducerNotReady
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := h.s.Send(ctx, []byte(task.partitionKey()), payload); err != nil {
		metrics.RedisRetryTasksTotal.WithLabelValues("dropped").Inc()
		return err
	}
	metrics.RedisRetryTasksTotal.WithLabelValues("queued").Inc()
	return nil
}
