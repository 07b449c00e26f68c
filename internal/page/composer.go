// Package page 提供页面文档以及编辑端对区块的增删改、排序与复制操作。
// 所有操作都是对内存中文档的同步变换，持久化由调用方另行保存。
package page

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pagecart/internal/section"
)

var ErrSectionNotFound = errors.New("section not found")

// Composer 对 Document 执行编辑操作。
type Composer struct {
	registry *section.Registry
	newID    func() string
}

// NewComposer 使用给定 registry 创建 Composer，区块 ID 由 uuid 生成。
func NewComposer(registry *section.Registry) *Composer {
	if registry == nil {
		registry = section.Default
	}
	return &Composer{
		registry: registry,
		newID:    func() string { return uuid.NewString() },
	}
}

// SetIDGenerator 替换区块 ID 生成器，主要面向测试场景。
func (c *Composer) SetIDGenerator(gen func() string) {
	if gen == nil {
		c.newID = func() string { return uuid.NewString() }
		return
	}
	c.newID = gen
}

// AddSection 以类型默认配置追加一个区块，Order 取当前最大值加一。
func (c *Composer) AddSection(doc *Document, t section.Type) (section.Section, error) {
	settings, err := c.registry.Defaults(t)
	if err != nil {
		return section.Section{}, err
	}

	created := section.Section{
		ID:       c.newID(),
		Type:     t,
		Order:    maxOrder(doc.Sections) + 1,
		Settings: settings,
	}
	doc.Sections = append(doc.Sections, created)
	return created, nil
}

// UpdateSection 把 partial 浅合并进现有配置，未提供的键保持不变。
func (c *Composer) UpdateSection(doc *Document, id string, partial map[string]any) (section.Section, error) {
	i := doc.index(id)
	if i < 0 {
		return section.Section{}, ErrSectionNotFound
	}
	current := doc.Sections[i]
	if _, unknown := current.Settings.(*section.Unknown); unknown || !c.registry.Has(current.Type) {
		return section.Section{}, fmt.Errorf("%w: %s", section.ErrUnknownType, current.Type)
	}

	merged := map[string]any{}
	if current.Settings != nil {
		raw, err := json.Marshal(current.Settings)
		if err != nil {
			return section.Section{}, fmt.Errorf("encode settings: %w", err)
		}
		if err := json.Unmarshal(raw, &merged); err != nil {
			return section.Section{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	for key, value := range partial {
		merged[key] = value
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return section.Section{}, fmt.Errorf("%w: %v", section.ErrInvalidSettings, err)
	}
	settings, err := c.registry.DecodeStrict(current.Type, raw)
	if err != nil {
		return section.Section{}, err
	}

	doc.Sections[i].Settings = settings
	return doc.Sections[i], nil
}

// DeleteSection 删除区块，不要求 Order 连续。
func (c *Composer) DeleteSection(doc *Document, id string) error {
	i := doc.index(id)
	if i < 0 {
		return ErrSectionNotFound
	}
	doc.Sections = append(doc.Sections[:i], doc.Sections[i+1:]...)
	return nil
}

// CanMoveUp 报告区块是否不在首位。
func (c *Composer) CanMoveUp(doc *Document, id string) bool {
	pos, ordered := position(doc, id)
	return pos > 0 && len(ordered) > 1
}

// CanMoveDown 报告区块是否不在末位。
func (c *Composer) CanMoveDown(doc *Document, id string) bool {
	pos, ordered := position(doc, id)
	return pos >= 0 && pos < len(ordered)-1
}

// MoveUp 与前一个区块交换 Order；已在首位时不做任何事。
func (c *Composer) MoveUp(doc *Document, id string) error {
	return c.move(doc, id, -1)
}

// MoveDown 与后一个区块交换 Order；已在末位时不做任何事。
func (c *Composer) MoveDown(doc *Document, id string) error {
	return c.move(doc, id, 1)
}

func (c *Composer) move(doc *Document, id string, step int) error {
	if doc.index(id) < 0 {
		return ErrSectionNotFound
	}
	if hasTies(doc.Sections) {
		Normalize(doc)
	}

	pos, ordered := position(doc, id)
	target := pos + step
	if target < 0 || target >= len(ordered) {
		return nil
	}

	a := doc.index(ordered[pos].ID)
	b := doc.index(ordered[target].ID)
	doc.Sections[a].Order, doc.Sections[b].Order = doc.Sections[b].Order, doc.Sections[a].Order
	return nil
}

// DuplicateSection 复制区块（新 ID），并插入到源区块之后，后续区块顺延。
func (c *Composer) DuplicateSection(doc *Document, id string) (section.Section, error) {
	if doc.index(id) < 0 {
		return section.Section{}, ErrSectionNotFound
	}
	if hasTies(doc.Sections) {
		Normalize(doc)
	}

	i := doc.index(id)
	source := doc.Sections[i]
	for j := range doc.Sections {
		if doc.Sections[j].Order > source.Order {
			doc.Sections[j].Order++
		}
	}

	clone := section.Section{
		ID:    c.newID(),
		Type:  source.Type,
		Order: source.Order + 1,
	}
	if source.Settings != nil {
		clone.Settings = c.registry.Clone(source.Settings)
	}

	doc.Sections = append(doc.Sections, section.Section{})
	copy(doc.Sections[i+2:], doc.Sections[i+1:])
	doc.Sections[i+1] = clone
	return clone, nil
}

// Normalize 按当前顺序重新编号为 1..n，并让列表顺序与 Order 一致。
func Normalize(doc *Document) {
	ordered := section.SortByOrder(doc.Sections)
	for i := range ordered {
		ordered[i].Order = i + 1
	}
	doc.Sections = ordered
}

func position(doc *Document, id string) (int, []section.Section) {
	ordered := doc.Ordered()
	for i := range ordered {
		if ordered[i].ID == id {
			return i, ordered
		}
	}
	return -1, ordered
}

func maxOrder(sections []section.Section) int {
	highest := 0
	for _, s := range sections {
		if s.Order > highest {
			highest = s.Order
		}
	}
	return highest
}

func hasTies(sections []section.Section) bool {
	seen := make(map[int]struct{}, len(sections))
	for _, s := range sections {
		if _, dup := seen[s.Order]; dup {
			return true
		}
		seen[s.Order] = struct{}{}
	}
	return false
}
