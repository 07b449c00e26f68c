package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/db"
	"gorm.io/gorm"
)

var (
	ErrProductNameRequired = errors.New("product name is required")
	ErrVariantUnavailable  = errors.New("variant is not available")
)

// ProductInput 是创建商品时的输入，主要供种子导入使用。
type ProductInput struct {
	Name     string         `json:"name" yaml:"name"`
	Slug     string         `json:"slug" yaml:"slug"`
	ImageURL string         `json:"imageUrl" yaml:"imageUrl"`
	Variants []VariantInput `json:"variants" yaml:"variants"`
}

// VariantInput 是商品规格的输入。
type VariantInput struct {
	Name          string `json:"name" yaml:"name"`
	Price         int64  `json:"price" yaml:"price"`
	OriginalPrice *int64 `json:"originalPrice" yaml:"originalPrice"`
	Stock         int    `json:"stock" yaml:"stock"`
	Inactive      bool   `json:"inactive" yaml:"inactive"`
	ImageURL      string `json:"imageUrl" yaml:"imageUrl"`
}

// CatalogService 读取在售的商品规格，实现 catalog.Reader。
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService returns a new CatalogService instance.
func NewCatalogService(gdb *gorm.DB) *CatalogService {
	return &CatalogService{db: gdb}
}

var _ catalog.Reader = (*CatalogService)(nil)

// Variants 按商品分组返回启用商品下的启用规格，组内按 sort_order、id 排序。
func (s *CatalogService) Variants(ctx context.Context, productIDs []uint) (map[uint][]catalog.Variant, error) {
	out := make(map[uint][]catalog.Variant)
	if len(productIDs) == 0 {
		return out, nil
	}

	var products []db.Product
	if err := s.db.WithContext(ctx).
		Where("id IN ? AND active = ?", productIDs, true).
		Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return out, nil
	}
	byID := make(map[uint]db.Product, len(products))
	activeIDs := make([]uint, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		activeIDs = append(activeIDs, p.ID)
	}

	var variants []db.ProductVariant
	if err := s.db.WithContext(ctx).
		Where("product_id IN ? AND active = ?", activeIDs, true).
		Order("sort_order asc").
		Order("id asc").
		Find(&variants).Error; err != nil {
		return nil, err
	}

	for _, v := range variants {
		product := byID[v.ProductID]
		out[v.ProductID] = append(out[v.ProductID], toCatalogVariant(product, v))
	}
	return out, nil
}

// Variant 读取单个在售规格。
func (s *CatalogService) Variant(ctx context.Context, id uint) (catalog.Variant, error) {
	var v db.ProductVariant
	if err := s.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.Variant{}, ErrVariantUnavailable
		}
		return catalog.Variant{}, err
	}
	var product db.Product
	if err := s.db.WithContext(ctx).Where("id = ? AND active = ?", v.ProductID, true).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.Variant{}, ErrVariantUnavailable
		}
		return catalog.Variant{}, err
	}
	return toCatalogVariant(product, v), nil
}

// CreateProduct 创建商品及其规格。slug 已存在时返回已有商品的 ID，不做修改。
func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput) (uint, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return 0, ErrProductNameRequired
	}
	slug, err := NormalizeSlug(input.Slug)
	if err != nil {
		return 0, err
	}

	var existing db.Product
	err = s.db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	product := db.Product{Name: name, Slug: slug, ImageURL: strings.TrimSpace(input.ImageURL), Active: true}
	for i, v := range input.Variants {
		product.Variants = append(product.Variants, db.ProductVariant{
			Name:          strings.TrimSpace(v.Name),
			Price:         v.Price,
			OriginalPrice: v.OriginalPrice,
			Stock:         v.Stock,
			Active:        true,
			SortOrder:     i,
			ImageURL:      strings.TrimSpace(v.ImageURL),
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		// active 列带 default:true，创建时的 false 会被忽略，需要单独更新。
		for i, v := range input.Variants {
			if !v.Inactive {
				continue
			}
			if err := tx.Model(&db.ProductVariant{}).
				Where("id = ?", product.Variants[i].ID).
				Update("active", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return product.ID, nil
}

func toCatalogVariant(product db.Product, v db.ProductVariant) catalog.Variant {
	image := v.ImageURL
	if image == "" {
		image = product.ImageURL
	}
	return catalog.Variant{
		ID:            v.ID,
		ProductID:     v.ProductID,
		ProductName:   product.Name,
		Name:          v.Name,
		Price:         v.Price,
		OriginalPrice: v.OriginalPrice,
		Stock:         v.Stock,
		ImageURL:      image,
	}
}
