// Package breaker 外部依赖调用的熔断器。
package breaker

import (
	"context"
	"errors"
	"time"

	"HobbyChat/pkg/logger"

	"github.com/sony/gobreaker"
)

// New 创建统一策略的熔断器：
// 半开状态最多放行 3 个请求，15s 清零计数，打开 45s 后尝试半开，
// 至少 5 个请求且失败率达到 50% 时打开。
func New(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(Settings(name))
}

// Settings 返回统一策略配置，测试可在此基础上调整
func Settings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     45 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "熔断器状态变化",
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}
}

// Do 在熔断器保护下执行 fn
func Do[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if cb == nil {
		return fn()
	}
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

// IsOpen 判断错误是否由熔断器拒绝
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
