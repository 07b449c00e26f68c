// Package render 把页面文档与主题确定性地渲染为节点树。
// 分发通过类型到渲染函数的查找表完成，每个区块只看到自己的配置与共享主题。
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/logging"
	"github.com/pagecart/internal/metrics"
	"github.com/pagecart/internal/page"
	"github.com/pagecart/internal/pricing"
	"github.com/pagecart/internal/section"
	"github.com/pagecart/internal/theme"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Env 是渲染时除主题外唯一的共享输入，由调用方在渲染前准备好。
type Env struct {
	Variants     map[uint][]catalog.Variant
	Rates        pricing.RateTable
	Now          time.Time
	CheckoutBase string
}

// Context 是单个区块渲染时可见的全部信息。
type Context struct {
	Theme theme.Settings
	Env   Env

	renderer *Renderer
}

// Markdown 把长文本转换为净化后的 HTML 节点。
func (c *Context) Markdown(class, source string) *Node {
	return c.renderer.markdown(class, source)
}

// RenderFunc 渲染一个区块；返回 nil 表示该区块不输出内容。
type RenderFunc func(ctx *Context, s section.Section) *Node

// Rendered 记录一个区块的渲染结果。
type Rendered struct {
	ID    string       `json:"id"`
	Type  section.Type `json:"type"`
	Order int          `json:"order"`
	Node  *Node        `json:"node,omitempty"`
	Empty bool         `json:"empty"`
}

// Tree 是整个页面的渲染结果。
type Tree struct {
	Slug     string         `json:"slug"`
	Title    string         `json:"title"`
	Theme    theme.Settings `json:"theme"`
	Root     *Node          `json:"root"`
	Sections []Rendered     `json:"sections"`
}

// HTML 返回根节点的 HTML。
func (t Tree) HTML() string {
	if t.Root == nil {
		return ""
	}
	return t.Root.String()
}

// Renderer 持有分发表与长文本渲染引擎。
type Renderer struct {
	registry *section.Registry
	branches map[section.Type]RenderFunc
	engine   goldmark.Markdown
	policy   *bluemonday.Policy
	logger   zerolog.Logger
}

// New 创建带有全部内置区块渲染函数的 Renderer。
func New(registry *section.Registry) *Renderer {
	if registry == nil {
		registry = section.Default
	}
	r := &Renderer{
		registry: registry,
		branches: make(map[section.Type]RenderFunc),
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: bluemonday.UGCPolicy(),
		logger: logging.For("render"),
	}
	registerBuiltins(r)
	return r
}

// Register 为类型登记渲染函数。
func (r *Renderer) Register(t section.Type, fn RenderFunc) {
	r.branches[t] = fn
}

// SetLogger 替换诊断日志输出，主要面向测试场景。
func (r *Renderer) SetLogger(logger zerolog.Logger) {
	r.logger = logger
}

// Handle 以强类型方式登记渲染函数：配置缺失或类型不符时退回 registry 默认值。
func Handle[T section.Settings](r *Renderer, t section.Type, fn func(ctx *Context, s section.Section, settings T) *Node) {
	r.Register(t, func(ctx *Context, s section.Section) *Node {
		settings, ok := s.Settings.(T)
		if !ok {
			defaults, err := r.registry.Defaults(t)
			if err != nil {
				return nil
			}
			if settings, ok = defaults.(T); !ok {
				return nil
			}
		}
		return fn(ctx, s, settings)
	})
}

// Render 按 Order 升序渲染页面。任何区块的失败都只会让该区块为空。
func (r *Renderer) Render(doc *page.Document, th theme.Settings, env Env) Tree {
	if env.Rates == nil {
		env.Rates = pricing.DefaultRates()
	}
	if env.Now.IsZero() {
		env.Now = time.Now()
	}

	tree := Tree{Theme: th}
	root := el("main", "page").attr("style", th.CSSVariables())
	tree.Root = root
	if doc == nil {
		return tree
	}
	tree.Slug = doc.Slug
	tree.Title = doc.Title
	root.attr("data-slug", doc.Slug)
	if btn := strings.TrimSpace(th.ButtonStyle); btn != "" {
		root.attr("class", "page buttons-"+btn+" spacing-"+th.SectionSpacing)
	}

	ctx := &Context{Theme: th, Env: env, renderer: r}
	for _, s := range section.SortByOrder(doc.Sections) {
		node := r.renderSection(ctx, s)
		rendered := Rendered{ID: s.ID, Type: s.Type, Order: s.Order, Node: node, Empty: node == nil}
		tree.Sections = append(tree.Sections, rendered)
		if node == nil {
			continue
		}
		wrapper := el("section", "section section-"+string(s.Type), node).
			attr("id", "section-"+s.ID).
			attr("data-section-id", s.ID).
			attr("data-section-type", string(s.Type))
		root.append(wrapper)
	}
	return tree
}

func (r *Renderer) renderSection(ctx *Context, s section.Section) (node *Node) {
	fn, ok := r.branches[s.Type]
	if !ok || !r.registry.Has(s.Type) {
		r.logger.Warn().Str("section_id", s.ID).Str("type", string(s.Type)).Msg("no renderer registered for section type")
		metrics.RecordSectionRender("unregistered", "unknown")
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("section_id", s.ID).Str("type", string(s.Type)).Str("panic", fmt.Sprint(rec)).Msg("section render failed")
			metrics.RecordSectionRender(string(s.Type), "panic")
			node = nil
		}
	}()

	node = fn(ctx, s)
	metrics.RecordSectionRender(string(s.Type), "ok")
	return node
}

func (r *Renderer) markdown(class, source string) *Node {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(source), &buf); err != nil {
		return text("div", class, source)
	}
	n := el("div", class)
	n.HTML = r.policy.Sanitize(buf.String())
	return n
}
