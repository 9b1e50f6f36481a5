package mq

import (
	"context"
	"time"

	"HobbyChat/pkg/ctxmeta"
)

// ==================== Redis 任务定义 ====================

type CommandType string

const (
	CmdSimple   CommandType = "simple"   // Set, Del, SAdd...
	CmdPipeline CommandType = "pipeline" // 批量操作
	CmdLua      CommandType = "lua"      // Lua 脚本
)

// defaultMaxRetries 默认最多重放 3 次
const defaultMaxRetries = 3

// RedisTask 存放在 Kafka 里的消息体
type RedisTask struct {
	Type CommandType `json:"type"`

	// 普通命令 (如 DEL key)
	Command string        `json:"command,omitempty"`
	Args    []interface{} `json:"args,omitempty"`

	// Pipeline (一组命令)
	PipelineCmds []RedisCmd `json:"pipeline_cmds,omitempty"`

	// Lua 脚本
	LuaScript string        `json:"lua_script,omitempty"`
	LuaKeys   []string      `json:"lua_keys,omitempty"`
	LuaArgs   []interface{} `json:"lua_args,omitempty"`

	// 元数据（用于追踪和重试控制）
	TraceID     string    `json:"trace_id,omitempty"`
	UserUUID    string    `json:"user_uuid,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	RetryCount  int       `json:"retry_count"`
	MaxRetries  int       `json:"max_retries"`
	OriginalErr string    `json:"original_err"`
	Source      string    `json:"source,omitempty"`
}

type RedisCmd struct {
	Command string        `json:"command"`
	Args    []interface{} `json:"args"`
}

// ==================== 构造器函数 ====================

func newTask(t CommandType) RedisTask {
	return RedisTask{
		Type:       t,
		Timestamp:  time.Now(),
		MaxRetries: defaultMaxRetries,
	}
}

// BuildDelTask 构造一个 DEL 任务
func BuildDelTask(keys ...string) RedisTask {
	t := newTask(CmdSimple)
	t.Command = "del"
	for _, k := range keys {
		t.Args = append(t.Args, k)
	}
	return t
}

// BuildSetTask 构造一个 SET 任务
func BuildSetTask(key string, val interface{}, ttl time.Duration) RedisTask {
	t := newTask(CmdSimple)
	t.Command = "set"
	t.Args = []interface{}{key, val}
	if ttl > 0 {
		t.Args = append(t.Args, "EX", int(ttl.Seconds()))
	}
	return t
}

// BuildSAddTask 构造一个 SADD 任务
func BuildSAddTask(key string, members ...interface{}) RedisTask {
	t := newTask(CmdSimple)
	t.Command = "sadd"
	t.Args = append([]interface{}{key}, members...)
	return t
}

// BuildSRemTask 构造一个 SREM 任务
func BuildSRemTask(key string, members ...interface{}) RedisTask {
	t := newTask(CmdSimple)
	t.Command = "srem"
	t.Args = append([]interface{}{key}, members...)
	return t
}

// BuildPipelineTask 构造一个 Pipeline 任务
func BuildPipelineTask(cmds []RedisCmd) RedisTask {
	t := newTask(CmdPipeline)
	t.PipelineCmds = cmds
	return t
}

// BuildLuaTask 构造一个 Lua 脚本任务
func BuildLuaTask(script string, keys []string, args ...interface{}) RedisTask {
	t := newTask(CmdLua)
	t.LuaScript = script
	t.LuaKeys = keys
	t.LuaArgs = args
	return t
}

// ==================== 链式方法 ====================

// WithContext 为任务添加追踪信息
func (t RedisTask) WithContext(ctx context.Context) RedisTask {
	if traceID := ctxmeta.TraceID(ctx); traceID != "" {
		t.TraceID = traceID
	}
	if userUUID := ctxmeta.UserUUID(ctx); userUUID != "" {
		t.UserUUID = userUUID
	}
	return t
}

// WithError 为任务添加错误信息
func (t RedisTask) WithError(err error) RedisTask {
	if err != nil {
		t.OriginalErr = err.Error()
	}
	return t
}

// WithSource 为任务添加来源信息
func (t RedisTask) WithSource(source string) RedisTask {
	t.Source = source
	return t
}

// WithMaxRetries 设置最大重试次数
func (t RedisTask) WithMaxRetries(maxRetries int) RedisTask {
	t.MaxRetries = maxRetries
	return t
}

// partitionKey 同一个 key 的任务落在同一分区，保证重放顺序
func (t RedisTask) partitionKey() string {
	switch t.Type {
	case CmdSimple:
		if len(t.Args) > 0 {
			if k, ok := t.Args[0].(string); ok {
				return k
			}
		}
	case CmdPipeline:
		if len(t.PipelineCmds) > 0 && len(t.PipelineCmds[0].Args) > 0 {
			if k, ok := t.PipelineCmds[0].Args[0].(string); ok {
				return k
			}
		}
	case CmdLua:
		if len(t.LuaKeys) > 0 {
			return t.LuaKeys[0]
		}
	}
	return t.Source
}
