package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/pagecart/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc-%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	gdb, err := db.Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func int64Ptr(v int64) *int64 { return &v }

// seedCatalog 创建一个两规格商品和一个已下架商品，返回规格 ID。
func seedCatalog(t *testing.T, gdb *gorm.DB) (productID uint, variants []uint) {
	t.Helper()
	svc := NewCatalogService(gdb)
	ctx := context.Background()

	id, err := svc.CreateProduct(ctx, ProductInput{
		Name: "Cotton Panjabi",
		Slug: "cotton-panjabi",
		Variants: []VariantInput{
			{Name: "M", Price: 1000, OriginalPrice: int64Ptr(1400), Stock: 5},
			{Name: "L", Price: 1100, Stock: 0},
			{Name: "XL", Price: 1200, Stock: 3, Inactive: true},
		},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	var rows []db.ProductVariant
	if err := gdb.Where("product_id = ?", id).Order("sort_order asc").Find(&rows).Error; err != nil {
		t.Fatalf("load variants: %v", err)
	}
	for _, row := range rows {
		variants = append(variants, row.ID)
	}
	return id, variants
}
