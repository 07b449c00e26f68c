package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pagecart/internal/db"
	"github.com/pagecart/internal/page"
	"github.com/pagecart/internal/section"
	"github.com/pagecart/internal/theme"
	"gorm.io/gorm"
)

var (
	ErrPageNotFound  = errors.New("page not found")
	ErrSlugTaken     = errors.New("slug is already used by another published page")
	ErrInvalidSlug   = errors.New("slug may only contain lowercase letters, digits and dashes")
	ErrTitleRequired = errors.New("page title is required")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PageSummary 是后台列表中的一行。
type PageSummary struct {
	ID           uint      `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Published    bool      `json:"published"`
	Active       bool      `json:"active"`
	SectionCount int       `json:"sectionCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PageInput 是创建页面时的输入。
type PageInput struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// PageService 负责页面文档的读取与保存。
type PageService struct {
	db *gorm.DB
}

// NewPageService returns a new PageService instance.
func NewPageService(gdb *gorm.DB) *PageService {
	return &PageService{db: gdb}
}

// List 按更新时间倒序列出全部页面。
func (s *PageService) List() ([]PageSummary, error) {
	var rows []db.Page
	if err := s.db.Order("updated_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]PageSummary, 0, len(rows))
	for _, row := range rows {
		sections, _ := section.DecodeList([]byte(row.Sections))
		out = append(out, PageSummary{
			ID:           row.ID,
			Slug:         row.Slug,
			Title:        row.Title,
			Published:    row.Published,
			Active:       row.Active,
			SectionCount: len(sections),
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return out, nil
}

// Get 按 ID 读取页面，不区分发布状态。
func (s *PageService) Get(id uint) (*page.Document, error) {
	var row db.Page
	if err := s.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return toDocument(row)
}

// GetPublishedBySlug 读取访客可见的页面：只返回已发布且启用的页面。
func (s *PageService) GetPublishedBySlug(slug string) (*page.Document, error) {
	var row db.Page
	err := s.db.Where("slug = ? AND published = ? AND active = ?", strings.TrimSpace(slug), true, true).
		Order("updated_at desc").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return toDocument(row)
}

// Create 新建一个未发布的空页面。
func (s *PageService) Create(input PageInput) (*page.Document, error) {
	slug, err := NormalizeSlug(input.Slug)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	doc := &page.Document{Slug: slug, Title: title, Sections: []section.Section{}, Theme: theme.Defaults(), Active: true}
	row, err := fromDocument(doc)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, err
	}
	doc.ID = row.ID
	return doc, nil
}

// Save 保存文档。保存前把 Order 重新编号为 1..n，并检查已发布页面之间的 slug 唯一性。
func (s *PageService) Save(doc *page.Document) (*page.Document, error) {
	if doc == nil || doc.ID == 0 {
		return nil, ErrPageNotFound
	}
	slug, err := NormalizeSlug(doc.Slug)
	if err != nil {
		return nil, err
	}
	doc.Slug = slug
	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Title == "" {
		return nil, ErrTitleRequired
	}
	page.Normalize(doc)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing db.Page
		if err := tx.First(&existing, doc.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPageNotFound
			}
			return err
		}

		if doc.Published {
			var clash int64
			if err := tx.Model(&db.Page{}).
				Where("slug = ? AND published = ? AND id <> ?", doc.Slug, true, doc.ID).
				Count(&clash).Error; err != nil {
				return err
			}
			if clash > 0 {
				return ErrSlugTaken
			}
		}

		row, err := fromDocument(doc)
		if err != nil {
			return err
		}
		row.Model = existing.Model
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete 删除页面。
func (s *PageService) Delete(id uint) error {
	result := s.db.Delete(&db.Page{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

// NormalizeSlug 去掉首尾空白与斜杠并转为小写。
func NormalizeSlug(raw string) (string, error) {
	slug := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "/"))
	if !slugPattern.MatchString(slug) {
		return "", ErrInvalidSlug
	}
	return slug, nil
}

func toDocument(row db.Page) (*page.Document, error) {
	sections, err := section.DecodeList([]byte(row.Sections))
	if err != nil {
		return nil, fmt.Errorf("decode sections of page %d: %w", row.ID, err)
	}
	return &page.Document{
		ID:        row.ID,
		Slug:      row.Slug,
		Title:     row.Title,
		Sections:  sections,
		Theme:     theme.Resolve([]byte(row.Theme)),
		Published: row.Published,
		Active:    row.Active,
	}, nil
}

func fromDocument(doc *page.Document) (db.Page, error) {
	sections := doc.Sections
	if sections == nil {
		sections = []section.Section{}
	}
	rawSections, err := json.Marshal(sections)
	if err != nil {
		return db.Page{}, fmt.Errorf("encode sections: %w", err)
	}
	rawTheme, err := json.Marshal(theme.Merge(theme.Defaults(), doc.Theme))
	if err != nil {
		return db.Page{}, fmt.Errorf("encode theme: %w", err)
	}
	return db.Page{
		Model:     gorm.Model{ID: doc.ID},
		Slug:      doc.Slug,
		Title:     doc.Title,
		Sections:  string(rawSections),
		Theme:     string(rawTheme),
		Published: doc.Published,
		Active:    doc.Active,
	}, nil
}
