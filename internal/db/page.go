package db

import "gorm.io/gorm"

// Page 是一个由区块组成的落地页。Sections 与 Theme 以 JSON 文本保存。
// 已发布页面之间的 slug 唯一性由 PageService 检查，这里只建普通索引。
type Page struct {
	gorm.Model
	Slug      string `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	Sections  string `gorm:"type:text"`
	Theme     string `gorm:"type:text"`
	Published bool   `gorm:"not null;default:false;index"`
	Active    bool   `gorm:"not null;default:true"`
}
