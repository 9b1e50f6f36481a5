package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/kafka"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Source 消息读取端，*kafka.Consumer 实现了该接口
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RedisRetryConsumer 消费重试队列，把失败的 Redis 写操作重放一遍。
// 重放失败且未超过最大次数时重新入队（RetryCount+1），否则记录错误后丢弃。
type RedisRetryConsumer struct {
	source  Source
	requeue Sender
	replay  func(ctx context.Context, task RedisTask) error
	backoff time.Duration
}

// NewRedisRetryConsumer 创建重试消费者
func NewRedisRetryConsumer(source Source, requeue Sender, rdb redis.Cmdable) *RedisRetryConsumer {
	return &RedisRetryConsumer{
		source:  source,
		requeue: requeue,
		replay: func(ctx context.Context, task RedisTask) error {
			return Replay(ctx, rdb, task)
		},
		backoff: 200 * time.Millisecond,
	}
}

// Start 阻塞消费直到 ctx 结束
func (c *RedisRetryConsumer) Start(ctx context.Context) error {
	for {
		msg, err := c.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error(ctx, "读取 Redis 重试任务失败", logger.ErrorField("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		c.handle(ctx, msg)

		if err := c.source.Commit(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "提交 Redis 重试任务 offset 失败", logger.ErrorField("error", err))
		}
	}
}

// Close 关闭读取端
func (c *RedisRetryConsumer) Close() error {
	return c.source.Close()
}

func (c *RedisRetryConsumer) handle(ctx context.Context, msg kafka.Message) {
	var task RedisTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		logger.Error(ctx, "Redis 重试任务格式错误，丢弃", logger.ErrorField("error", err))
		metrics.RedisRetryTasksTotal.WithLabelValues("dropped").Inc()
		return
	}

	taskCtx := ctxmeta.WithTraceID(ctx, task.TraceID)
	taskCtx = ctxmeta.WithUserUUID(taskCtx, task.UserUUID)

	if c.backoff > 0 && task.RetryCount > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff * time.Duration(task.RetryCount)):
		}
	}

	err := c.replay(taskCtx, task)
	if err == nil {
		metrics.RedisRetryTasksTotal.WithLabelValues("replayed").Inc()
		logger.Info(taskCtx, "Redis 重试任务执行成功",
			logger.String("source", task.Source),
			logger.Int("retry_count", task.RetryCount),
		)
		return
	}

	task.RetryCount++
	task.OriginalErr = err.Error()
	if task.RetryCount >= task.MaxRetries {
		metrics.RedisRetryTasksTotal.WithLabelValues("dropped").Inc()
		logger.Error(taskCtx, "Redis 重试任务超过最大重试次数，放弃",
			logger.String("source", task.Source),
			logger.Int("retry_count", task.RetryCount),
			logger.ErrorField("error", err),
		)
		return
	}

	payload, mErr := json.Marshal(task)
	if mErr != nil {
		logger.Error(taskCtx, "Redis 重试任务序列化失败", logger.ErrorField("error", mErr))
		return
	}
	if sErr := c.requeue.Send(ctx, []byte(task.partitionKey()), payload); sErr != nil {
		logger.Error(taskCtx, "Redis 重试任务重新入队失败",
			logger.String("source", task.Source),
			logger.ErrorField("error", sErr),
		)
	}
}

// Replay 在 Redis 上执行任务
func Replay(ctx context.Context, rdb redis.Cmdable, task RedisTask) error {
	if rdb == nil {
		return errors.New("mq: redis client is nil")
	}
	switch task.Type {
	case CmdSimple:
		if task.Command == "" {
			return errors.New("mq: empty command")
		}
		err := rdb.Do(ctx, append([]interface{}{task.Command}, task.Args...)...).Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	case CmdPipeline:
		pipe := rdb.Pipeline()
		for _, cmd := range task.PipelineCmds {
			pipe.Do(ctx, append([]interface{}{cmd.Command}, cmd.Args...)...)
		}
		_, err := pipe.Exec(ctx)
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	case CmdLua:
		err := rdb.Eval(ctx, task.LuaScript, task.LuaKeys, task.LuaArgs...).Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("mq: unknown task type %q", task.Type)
	}
}
