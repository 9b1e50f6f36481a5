package model

import "github.com/goccy/go-json"

// JSONValue 把切片编码为 json 列的写入值，用于 map 形式的 Updates（map 更新不走 serializer）。
// 空切片写入 NULL，与 serializer:json 对 nil 的处理一致。
func JSONValue[T any](v []T) interface{} {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}
