package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pagecart/internal/db"
	"github.com/pagecart/internal/page"
	"github.com/pagecart/internal/section"
	"github.com/pagecart/internal/theme"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Seed 是 YAML 种子文件的结构：先建商品，再建引用这些商品的页面。
type Seed struct {
	Products []ProductInput `yaml:"products"`
	Pages    []SeedPage     `yaml:"pages"`
}

// SeedPage 描述一个页面。
type SeedPage struct {
	Slug      string         `yaml:"slug"`
	Title     string         `yaml:"title"`
	Published bool           `yaml:"published"`
	Theme     map[string]any `yaml:"theme"`
	Sections  []SeedSection  `yaml:"sections"`
}

// SeedSection 描述一个区块。Products 按商品 slug 引用，导入时换成 productIds。
type SeedSection struct {
	Type     section.Type   `yaml:"type"`
	Settings map[string]any `yaml:"settings"`
	Products []string       `yaml:"products"`
}

// SeedResult 汇总导入结果。
type SeedResult struct {
	Products int      `json:"products"`
	Created  []string `json:"created"`
	Skipped  []string `json:"skipped"`
}

// ImportSeed 导入 YAML 种子。已存在的商品 slug 复用原商品，已存在的页面 slug 跳过。
func (s *PageService) ImportSeed(ctx context.Context, raw []byte) (SeedResult, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return SeedResult{}, fmt.Errorf("parse seed: %w", err)
	}

	var result SeedResult
	catalogs := NewCatalogService(s.db)
	productIDs := make(map[string]uint, len(seed.Products))
	for _, input := range seed.Products {
		id, err := catalogs.CreateProduct(ctx, input)
		if err != nil {
			return result, fmt.Errorf("product %q: %w", input.Name, err)
		}
		slug, _ := NormalizeSlug(input.Slug)
		productIDs[slug] = id
		result.Products++
	}

	for _, sp := range seed.Pages {
		doc, err := buildSeedPage(sp, productIDs)
		if err != nil {
			return result, fmt.Errorf("page %q: %w", sp.Slug, err)
		}

		var existing db.Page
		err = s.db.WithContext(ctx).Where("slug = ?", doc.Slug).First(&existing).Error
		if err == nil {
			result.Skipped = append(result.Skipped, doc.Slug)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return result, err
		}

		created, err := s.Create(PageInput{Slug: doc.Slug, Title: doc.Title})
		if err != nil {
			return result, fmt.Errorf("page %q: %w", sp.Slug, err)
		}
		doc.ID = created.ID
		if _, err := s.Save(doc); err != nil {
			return result, fmt.Errorf("page %q: %w", sp.Slug, err)
		}
		result.Created = append(result.Created, doc.Slug)
	}
	return result, nil
}

func buildSeedPage(sp SeedPage, productIDs map[string]uint) (*page.Document, error) {
	slug, err := NormalizeSlug(sp.Slug)
	if err != nil {
		return nil, err
	}

	th := theme.Defaults()
	if len(sp.Theme) > 0 {
		raw, err := json.Marshal(sp.Theme)
		if err != nil {
			return nil, fmt.Errorf("theme: %w", err)
		}
		th = theme.Resolve(raw)
	}

	doc := &page.Document{
		Slug:      slug,
		Title:     strings.TrimSpace(sp.Title),
		Theme:     th,
		Published: sp.Published,
		Active:    true,
		Sections:  make([]section.Section, 0, len(sp.Sections)),
	}
	for i, ss := range sp.Sections {
		settings := map[string]any{}
		for k, v := range ss.Settings {
			settings[k] = v
		}
		if len(ss.Products) > 0 {
			ids := make([]uint, 0, len(ss.Products))
			for _, ref := range ss.Products {
				id, ok := productIDs[strings.ToLower(strings.TrimSpace(ref))]
				if !ok {
					return nil, fmt.Errorf("section %d references unknown product %q", i+1, ref)
				}
				ids = append(ids, id)
			}
			settings["productIds"] = ids
		}

		raw, err := json.Marshal(settings)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i+1, err)
		}
		decoded, err := section.Default.DecodeStrict(ss.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i+1, err)
		}
		doc.Sections = append(doc.Sections, section.Section{
			ID:       uuid.NewString(),
			Type:     ss.Type,
			Order:    i + 1,
			Settings: decoded,
		})
	}
	return doc, nil
}
