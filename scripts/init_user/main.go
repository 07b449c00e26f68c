package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pagecart/internal/config"
	"github.com/pagecart/internal/db"
)

func main() {
	cfg := config.Load()
	username := flag.String("username", "admin", "后台用户名")
	password := flag.String("password", "admin123", "后台密码")
	dbPath := flag.String("db", cfg.DatabasePath, "sqlite db path")
	flag.Parse()

	// 初始化数据库
	if err := db.Init(*dbPath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	// 检查是否已存在用户
	var count int64
	db.DB.Model(&db.User{}).Where("username = ?", *username).Count(&count)
	if count > 0 {
		fmt.Println("用户已存在，无需初始化")
		return
	}

	if err := db.EnsureUser(nil, *username, *password); err != nil {
		log.Fatal("创建用户失败:", err)
	}

	fmt.Println("管理员用户创建成功")
	fmt.Println("用户名:", *username)
}
