package page

import (
	"github.com/pagecart/internal/section"
	"github.com/pagecart/internal/theme"
)

// Document 是可编辑、可渲染的页面文档。
type Document struct {
	ID        uint              `json:"id"`
	Slug      string            `json:"slug"`
	Title     string            `json:"title"`
	Sections  []section.Section `json:"sections"`
	Theme     theme.Settings    `json:"theme"`
	Published bool              `json:"published"`
	Active    bool              `json:"active"`
}

// Ordered 返回按 Order 稳定排序后的区块副本。
func (d *Document) Ordered() []section.Section {
	return section.SortByOrder(d.Sections)
}

// ResolvedTheme 返回与默认主题合并后的主题。
func (d *Document) ResolvedTheme() theme.Settings {
	return theme.Merge(theme.Defaults(), d.Theme)
}

// Find 返回指定 ID 的区块。
func (d *Document) Find(id string) (section.Section, bool) {
	if i := d.index(id); i >= 0 {
		return d.Sections[i], true
	}
	return section.Section{}, false
}

// Visible 报告访客能否看到该页面。
func (d *Document) Visible() bool {
	return d.Published && d.Active
}

func (d *Document) index(id string) int {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return i
		}
	}
	return -1
}
