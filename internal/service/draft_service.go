package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pagecart/internal/autosave"
	"github.com/pagecart/internal/db"
	"gorm.io/gorm"
)

var ErrDraftNotFound = errors.New("draft not found")

// DraftView 是后台查看的草稿。
type DraftView struct {
	ID        uint            `json:"id"`
	SessionID string          `json:"sessionId"`
	PageSlug  string          `json:"pageSlug"`
	SectionID string          `json:"sectionId"`
	Snapshot  json.RawMessage `json:"snapshot"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// DraftService 是草稿的持久化实现。“每个 session 一条未转换草稿”
// 由 autosave 的先查后写保证，这里不加唯一约束。
type DraftService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDraftService returns a new DraftService instance.
func NewDraftService(gdb *gorm.DB) *DraftService {
	return &DraftService{db: gdb, now: time.Now}
}

var _ autosave.Store = (*DraftService)(nil)

// FindOpen 返回 session 最近的一条未转换草稿。
func (s *DraftService) FindOpen(ctx context.Context, sessionID string) (uint, bool, error) {
	var draft db.DraftOrder
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND converted = ?", sessionID, false).
		Order("id desc").
		First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return draft.ID, true, nil
}

// Create 新建草稿并返回 ID。
func (s *DraftService) Create(ctx context.Context, draft autosave.Draft) (uint, error) {
	row := db.DraftOrder{
		SessionID: draft.SessionID,
		PageSlug:  draft.PageSlug,
		SectionID: draft.SectionID,
		Snapshot:  string(draft.Snapshot),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// Update 覆盖未转换草稿的快照；已转换的草稿不会被修改。
func (s *DraftService) Update(ctx context.Context, id uint, draft autosave.Draft) error {
	result := s.db.WithContext(ctx).Model(&db.DraftOrder{}).
		Where("id = ? AND converted = ?", id, false).
		Updates(map[string]any{
			"page_slug":  draft.PageSlug,
			"section_id": draft.SectionID,
			"snapshot":   string(draft.Snapshot),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// MarkConverted 把草稿标记为已转换，这是终态。
func (s *DraftService) MarkConverted(ctx context.Context, id uint, orderID uint) error {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&db.DraftOrder{}).
		Where("id = ? AND converted = ?", id, false).
		Updates(map[string]any{
			"converted":    true,
			"converted_at": &now,
			"order_id":     orderID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// ListOpen 返回最近更新的未转换草稿，供后台跟进。
func (s *DraftService) ListOpen(ctx context.Context, limit int) ([]DraftView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []db.DraftOrder
	if err := s.db.WithContext(ctx).
		Where("converted = ?", false).
		Order("updated_at desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DraftView, 0, len(rows))
	for _, row := range rows {
		snapshot := json.RawMessage(row.Snapshot)
		if !json.Valid(snapshot) {
			snapshot = json.RawMessage("null")
		}
		out = append(out, DraftView{
			ID:        row.ID,
			SessionID: row.SessionID,
			PageSlug:  row.PageSlug,
			SectionID: row.SectionID,
			Snapshot:  snapshot,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out, nil
}
