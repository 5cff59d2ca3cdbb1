package main

import (
	"flag"
	"fmt"
	"os"

	"anonmail/backend/internal/identity"
)

// main 离线生成邮箱身份，用于测试和运维排查。
//
// 输出明文访问密钥与其摘要；摘要即数据库中存储的内容，
// 可直接用于核对线上记录。
func main() {
	domain := flag.String("domain", "temp-mail.local", "邮箱地址的域名部分")
	useHex := flag.Bool("hex", false, "生成 64 位十六进制密钥而不是 12 词密钥")
	count := flag.Int("n", 1, "生成的身份数量")
	flag.Parse()

	gen := identity.NewGenerator(*domain)

	for i := 0; i < *count; i++ {
		address, err := gen.GenerateAddress()
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: 生成地址失败: %v\n", err)
			os.Exit(1)
		}

		var accessKey string
		if *useHex {
			accessKey, err = gen.GenerateHexAccessKey()
		} else {
			accessKey, err = gen.GenerateAccessKey()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: 生成密钥失败: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("address:    %s\n", address)
		fmt.Printf("access_key: %s\n", accessKey)
		fmt.Printf("digest:     %s\n", identity.HashAccessKey(accessKey))
		if i < *count-1 {
			fmt.Println()
		}
	}
}
