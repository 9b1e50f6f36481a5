package util

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	snowflakeMu   sync.Mutex
	snowflakeNode *snowflake.Node
)

// InitSnowflake 初始化 snowflake 节点，多实例部署时 nodeID 需唯一（0~1023）
func InitSnowflake(nodeID int64) error {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	snowflakeMu.Lock()
	snowflakeNode = node
	snowflakeMu.Unlock()
	return nil
}

// NextID 生成全局唯一 id。未初始化时使用节点 0。
func NextID() int64 {
	snowflakeMu.Lock()
	defer snowflakeMu.Unlock()
	if snowflakeNode == nil {
		snowflakeNode, _ = snowflake.NewNode(0)
	}
	return snowflakeNode.Generate().Int64()
}
