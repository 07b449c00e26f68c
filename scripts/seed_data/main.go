package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pagecart/internal/config"
	"github.com/pagecart/internal/db"
	"github.com/pagecart/internal/service"
)

//go:embed demo.yaml
var demoSeed []byte

// 演示数据导入器：不带 -file 时导入内置的演示商品与落地页。
func main() {
	cfg := config.Load()
	file := flag.String("file", "", "YAML 种子文件，留空使用内置演示数据")
	dbPath := flag.String("db", cfg.DatabasePath, "sqlite db path")
	flag.Parse()

	// 初始化数据库
	if err := db.Init(*dbPath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	raw, err := loadSeed(*file)
	if err != nil {
		log.Fatal("读取种子失败:", err)
	}

	fmt.Println("开始导入种子数据...")
	result, err := service.NewPageService(db.DB).ImportSeed(context.Background(), raw)
	if err != nil {
		log.Fatal("导入失败:", err)
	}

	fmt.Printf("商品: %d 个\n", result.Products)
	fmt.Printf("新建页面: %v\n", result.Created)
	if len(result.Skipped) > 0 {
		fmt.Printf("已存在跳过: %v\n", result.Skipped)
	}
}

func loadSeed(path string) ([]byte, error) {
	if path == "" {
		return demoSeed, nil
	}
	return os.ReadFile(path)
}
