package handler

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pagecart/internal/page"
	"github.com/pagecart/internal/pricing"
	"github.com/pagecart/internal/render"
	"github.com/pagecart/internal/section"
	"github.com/pagecart/internal/service"
	"github.com/pagecart/internal/theme"
)

// renderEnv 预取页面引用的商品规格。读取失败时记录日志并以空目录渲染，
// 下单区块会显示不可下单提示。
func (a *API) renderEnv(ctx context.Context, doc *page.Document) render.Env {
	env := render.Env{
		Rates:        a.rates,
		Now:          a.now(),
		CheckoutBase: "/api/checkout/" + doc.Slug,
	}
	ids := section.ProductIDs(doc.Sections)
	if len(ids) == 0 {
		return env
	}
	variants, err := a.catalog.Variants(ctx, ids)
	if err != nil {
		a.logger.Warn().Err(err).Str("slug", doc.Slug).Msg("load page variants")
		return env
	}
	env.Variants = variants
	return env
}

// ShowPage 渲染已发布页面的完整 HTML。
func (a *API) ShowPage(c *gin.Context) {
	doc, err := a.pages.GetPublishedBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			c.HTML(http.StatusNotFound, "not_found.html", gin.H{"title": "Page not found", "message": "This page is not available."})
			return
		}
		a.logger.Error().Err(err).Str("slug", c.Param("slug")).Msg("load page")
		c.HTML(http.StatusInternalServerError, "not_found.html", gin.H{"title": "Something went wrong", "message": "Please try again later."})
		return
	}

	tree := a.renderer.Render(doc, doc.ResolvedTheme(), a.renderEnv(c.Request.Context(), doc))
	c.HTML(http.StatusOK, "page.html", gin.H{
		"lang":     "bn",
		"title":    tree.Title,
		"slug":     tree.Slug,
		"themeCSS": template.CSS(tree.Theme.CSSVariables()),
		"body":     template.HTML(tree.HTML()),
	})
}

// GetPageTree 以 JSON 返回已发布页面的渲染树。
func (a *API) GetPageTree(c *gin.Context) {
	doc, err := a.pages.GetPublishedBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			respondError(c, http.StatusNotFound, "page not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load page")
		return
	}
	tree := a.renderer.Render(doc, doc.ResolvedTheme(), a.renderEnv(c.Request.Context(), doc))
	c.JSON(http.StatusOK, gin.H{"tree": tree, "html": tree.HTML()})
}

type moveFlags struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

type editorView struct {
	Page    *page.Document       `json:"page"`
	Moves   map[string]moveFlags `json:"moves"`
	Section *section.Section     `json:"section,omitempty"`
}

func (a *API) editorView(doc *page.Document, touched *section.Section) editorView {
	moves := make(map[string]moveFlags, len(doc.Sections))
	for _, s := range doc.Sections {
		moves[s.ID] = moveFlags{Up: a.composer.CanMoveUp(doc, s.ID), Down: a.composer.CanMoveDown(doc, s.ID)}
	}
	return editorView{Page: doc, Moves: moves, Section: touched}
}

// GetSchema 返回编辑器需要的区块类型、字段描述、默认主题与运费档位。
func (a *API) GetSchema(c *gin.Context) {
	zones := make([]gin.H, 0, 2)
	for _, zone := range pricing.Zones() {
		rate, _ := a.rates.Rate(zone)
		zones = append(zones, gin.H{"zone": zone, "rate": rate})
	}
	c.JSON(http.StatusOK, gin.H{
		"sections": section.Default.Schemas(),
		"theme":    theme.Defaults(),
		"zones":    zones,
	})
}

// ListPages 列出全部页面。
func (a *API) ListPages(c *gin.Context) {
	pages, err := a.pages.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取页面列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// CreatePage 新建空页面。
func (a *API) CreatePage(c *gin.Context) {
	var input service.PageInput
	if !bindJSON(c, &input, "页面参数无效") {
		return
	}
	doc, err := a.pages.Create(input)
	if err != nil {
		a.respondPageError(c, err, "创建页面失败")
		return
	}
	c.JSON(http.StatusCreated, a.editorView(doc, nil))
}

// GetPage 返回编辑中的页面。
func (a *API) GetPage(c *gin.Context) {
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.editorView(doc, nil))
}

type pageUpdatePayload struct {
	Slug      *string         `json:"slug"`
	Title     *string         `json:"title"`
	Published *bool           `json:"published"`
	Active    *bool           `json:"active"`
	Theme     *theme.Settings `json:"theme"`
}

// UpdatePage 修改页面属性与主题，区块通过专门的接口编辑。
func (a *API) UpdatePage(c *gin.Context) {
	var payload pageUpdatePayload
	if !bindJSON(c, &payload, "页面参数无效") {
		return
	}
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}
	if payload.Slug != nil {
		doc.Slug = *payload.Slug
	}
	if payload.Title != nil {
		doc.Title = *payload.Title
	}
	if payload.Published != nil {
		doc.Published = *payload.Published
	}
	if payload.Active != nil {
		doc.Active = *payload.Active
	}
	if payload.Theme != nil {
		doc.Theme = theme.Merge(doc.ResolvedTheme(), *payload.Theme)
	}
	a.savePage(c, doc, nil, http.StatusOK)
}

// PreviewPage 渲染编辑中的页面，不要求已发布。
func (a *API) PreviewPage(c *gin.Context) {
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}
	tree := a.renderer.Render(doc, doc.ResolvedTheme(), a.renderEnv(c.Request.Context(), doc))
	c.JSON(http.StatusOK, gin.H{"tree": tree, "html": tree.HTML()})
}

// DeletePage 删除页面。
func (a *API) DeletePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}
	if err := a.pages.Delete(id); err != nil {
		a.respondPageError(c, err, "删除页面失败")
		return
	}
	c.Status(http.StatusNoContent)
}

// AddSection 以默认配置追加区块。
func (a *API) AddSection(c *gin.Context) {
	var payload struct {
		Type section.Type `json:"type" binding:"required"`
	}
	if !bindJSON(c, &payload, "请选择区块类型") {
		return
	}
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}
	created, err := a.composer.AddSection(doc, payload.Type)
	if err != nil {
		a.respondPageError(c, err, "添加区块失败")
		return
	}
	a.savePage(c, doc, &created, http.StatusCreated)
}

// UpdateSection 把部分配置合并进区块。
func (a *API) UpdateSection(c *gin.Context) {
	var payload struct {
		Settings map[string]any `json:"settings" binding:"required"`
	}
	if !bindJSON(c, &payload, "区块配置无效") {
		return
	}
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}
	updated, err := a.composer.UpdateSection(doc, c.Param("sid"), payload.Settings)
	if err != nil {
		a.respondPageError(c, err, "更新区块失败")
		return
	}
	a.savePage(c, doc, &updated, http.StatusOK)
}

// DeleteSection 删除区块。
func (a *API) DeleteSection(c *gin.Context) {
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}
	if err := a.composer.DeleteSection(doc, c.Param("sid")); err != nil {
		a.respondPageError(c, err, "删除区块失败")
		return
	}
	a.savePage(c, doc, nil, http.StatusOK)
}

// MoveSection 上移或下移区块，已在边界时保持不变。
func (a *API) MoveSection(c *gin.Context) {
	var payload struct {
		Direction string `json:"direction" binding:"required"`
	}
	if !bindJSON(c, &payload, "请指定移动方向") {
		return
	}
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}

	var err error
	switch strings.ToLower(strings.TrimSpace(payload.Direction)) {
	case "up":
		err = a.composer.MoveUp(doc, c.Param("sid"))
	case "down":
		err = a.composer.MoveDown(doc, c.Param("sid"))
	default:
		respondError(c, http.StatusBadRequest, "移动方向只能是 up 或 down")
		return
	}
	if err != nil {
		a.respondPageError(c, err, "移动区块失败")
		return
	}
	a.savePage(c, doc, nil, http.StatusOK)
}

// DuplicateSection 复制区块到源区块之后。
func (a *API) DuplicateSection(c *gin.Context) {
	doc, ok := a.loadPage(c)
	if !ok {
		return
	}
	clone, err := a.composer.DuplicateSection(doc, c.Param("sid"))
	if err != nil {
		a.respondPageError(c, err, "复制区块失败")
		return
	}
	a.savePage(c, doc, &clone, http.StatusCreated)
}

func (a *API) loadPage(c *gin.Context) (*page.Document, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return nil, false
	}
	doc, err := a.pages.Get(id)
	if err != nil {
		a.respondPageError(c, err, "加载页面失败")
		return nil, false
	}
	return doc, true
}

func (a *API) savePage(c *gin.Context, doc *page.Document, touched *section.Section, status int) {
	saved, err := a.pages.Save(doc)
	if err != nil {
		a.respondPageError(c, err, "保存页面失败")
		return
	}
	if touched != nil {
		if current, ok := saved.Find(touched.ID); ok {
			touched = &current
		}
	}
	c.JSON(status, a.editorView(saved, touched))
}

func (a *API) respondPageError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrPageNotFound):
		respondError(c, http.StatusNotFound, "页面不存在")
	case errors.Is(err, page.ErrSectionNotFound):
		respondError(c, http.StatusNotFound, "区块不存在")
	case errors.Is(err, service.ErrSlugTaken):
		respondError(c, http.StatusConflict, "该地址已被其他已发布页面使用")
	case errors.Is(err, service.ErrInvalidSlug):
		respondError(c, http.StatusBadRequest, "页面地址只能包含小写字母、数字和短横线")
	case errors.Is(err, service.ErrTitleRequired):
		respondError(c, http.StatusBadRequest, "请填写页面标题")
	case errors.Is(err, section.ErrUnknownType):
		respondError(c, http.StatusBadRequest, "未知的区块类型")
	case errors.Is(err, section.ErrInvalidSettings):
		c.JSON(http.StatusBadRequest, gin.H{"error": "区块配置无效", "detail": err.Error()})
	default:
		a.logger.Error().Err(err).Msg(fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
