package repository

const (
	// luaAddToSetIfExists 集合增量写入（仅在 key 存在时更新，不存在则等下次回源重建）
	// KEYS[1]: 集合 key
	// ARGV[1]: member
	// ARGV[2]: 过期时间（秒）
	// 返回: 1 表示写入成功，0 表示 key 不存在
	luaAddToSetIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('SREM', KEYS[1], '__EMPTY__')
	redis.call('SADD', KEYS[1], ARGV[1])
	redis.call('EXPIRE', KEYS[1], ARGV[2])
	return 1
end
return 0
`

	// luaIncrIfExists 计数器增量（仅在 key 存在时更新）
	// KEYS[1]: 计数器 key
	// ARGV[1]: 增量
	// 返回: 1 表示更新成功，0 表示 key 不存在
	luaIncrIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('INCRBY', KEYS[1], ARGV[1])
	return 1
end
return 0
`
)
