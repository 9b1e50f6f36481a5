package main

import (
	"fmt"
	"os"

	"HobbyChat/pkg/fieldcrypt"
)

func main() {
	// 生成 32 字节随机密钥（64 位十六进制）
	key, err := fieldcrypt.GenerateKey()
	if err != nil {
		fmt.Printf("生成密钥失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("消息加密密钥: %s\n", key)
	fmt.Println("\n写入 crypto.key 或环境变量 HOBBYCHAT_CRYPTO__KEY 即可，密钥丢失后历史消息无法解密")
}
