// Package theme 合并页面保存的样式覆盖与默认主题。
package theme

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Settings 是页面级的扁平样式记录。
type Settings struct {
	PrimaryColor    string `json:"primaryColor,omitempty"`
	SecondaryColor  string `json:"secondaryColor,omitempty"`
	AccentColor     string `json:"accentColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
	HeadingFont     string `json:"headingFont,omitempty"`
	BodyFont        string `json:"bodyFont,omitempty"`
	BaseFontSize    int    `json:"baseFontSize,omitempty"`
	BorderRadius    *int   `json:"borderRadius,omitempty"`
	ButtonStyle     string `json:"buttonStyle,omitempty"`
	SectionSpacing  string `json:"sectionSpacing,omitempty"`
}

const (
	defaultRadius = 8
	maxRadius     = 48
)

var (
	hexColor      = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	buttonStyles  = []string{"rounded", "pill", "square"}
	spacingScales = []string{"compact", "normal", "relaxed"}
)

// Defaults 返回完整的默认主题。
func Defaults() Settings {
	return Settings{
		PrimaryColor:    "#e11d48",
		SecondaryColor:  "#0f172a",
		AccentColor:     "#f59e0b",
		BackgroundColor: "#ffffff",
		TextColor:       "#1f2937",
		HeadingFont:     "Hind Siliguri",
		BodyFont:        "Hind Siliguri",
		BaseFontSize:    16,
		BorderRadius:    Pixels(defaultRadius),
		ButtonStyle:     "rounded",
		SectionSpacing:  "normal",
	}
}

// Resolve 解析页面保存的覆盖值并与默认主题合并。
// 无法解析的 JSON 或非法字段都会按字段回退到默认值。
func Resolve(raw []byte) Settings {
	var overrides Settings
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &overrides); err != nil {
			return Defaults()
		}
	}
	return Merge(Defaults(), overrides)
}

// Merge 用 overrides 中合法的非零字段覆盖 base。BorderRadius 按是否出现判断，允许 0。
func Merge(base, overrides Settings) Settings {
	result := base
	result.PrimaryColor = pickColor(base.PrimaryColor, overrides.PrimaryColor)
	result.SecondaryColor = pickColor(base.SecondaryColor, overrides.SecondaryColor)
	result.AccentColor = pickColor(base.AccentColor, overrides.AccentColor)
	result.BackgroundColor = pickColor(base.BackgroundColor, overrides.BackgroundColor)
	result.TextColor = pickColor(base.TextColor, overrides.TextColor)
	result.HeadingFont = pickFont(base.HeadingFont, overrides.HeadingFont)
	result.BodyFont = pickFont(base.BodyFont, overrides.BodyFont)
	if overrides.BaseFontSize >= 10 && overrides.BaseFontSize <= 32 {
		result.BaseFontSize = overrides.BaseFontSize
	}
	if r := overrides.BorderRadius; r != nil && *r >= 0 && *r <= maxRadius {
		result.BorderRadius = Pixels(*r)
	} else if base.BorderRadius != nil {
		result.BorderRadius = Pixels(*base.BorderRadius)
	}
	result.ButtonStyle = pickEnum(base.ButtonStyle, overrides.ButtonStyle, buttonStyles)
	result.SectionSpacing = pickEnum(base.SectionSpacing, overrides.SectionSpacing, spacingScales)
	return result
}

// CSSVariables 生成挂在页面根节点上的 CSS 自定义属性。
func (s Settings) CSSVariables() string {
	vars := []string{
		"--color-primary:" + s.PrimaryColor,
		"--color-secondary:" + s.SecondaryColor,
		"--color-accent:" + s.AccentColor,
		"--color-background:" + s.BackgroundColor,
		"--color-text:" + s.TextColor,
		fmt.Sprintf("--font-heading:'%s'", s.HeadingFont),
		fmt.Sprintf("--font-body:'%s'", s.BodyFont),
		fmt.Sprintf("--font-size-base:%dpx", s.BaseFontSize),
		fmt.Sprintf("--radius:%dpx", s.Radius()),
	}
	return strings.Join(vars, ";")
}

// Pixels 返回指向 px 的指针，便于构造 BorderRadius 覆盖值。
func Pixels(px int) *int { return &px }

// Radius 返回圆角像素值。BorderRadius 为 nil 表示未设置，0 表示直角。
func (s Settings) Radius() int {
	if s.BorderRadius == nil {
		return defaultRadius
	}
	return *s.BorderRadius
}

func pickColor(fallback, candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if hexColor.MatchString(candidate) {
		return strings.ToLower(candidate)
	}
	return fallback
}

func pickFont(fallback, candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || strings.ContainsAny(candidate, "'\";{}<>") {
		return fallback
	}
	return candidate
}

func pickEnum(fallback, candidate string, allowed []string) string {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	for _, option := range allowed {
		if candidate == option {
			return option
		}
	}
	return fallback
}
