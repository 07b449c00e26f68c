package render

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/section"
)

func registerBuiltins(r *Renderer) {
	Handle(r, section.TypeHero, renderHero)
	Handle(r, section.TypeAnnouncementBar, renderAnnouncement)
	Handle(r, section.TypeRichText, renderRichText)
	Handle(r, section.TypeImage, renderImage)
	Handle(r, section.TypeGallery, renderGallery)
	Handle(r, section.TypeVideo, renderVideo)
	Handle(r, section.TypeFeatures, renderFeatures)
	Handle(r, section.TypeBenefits, renderBenefits)
	Handle(r, section.TypeSteps, renderSteps)
	Handle(r, section.TypeStats, renderStats)
	Handle(r, section.TypeTestimonials, renderTestimonials)
	Handle(r, section.TypeFAQ, renderFAQ)
	Handle(r, section.TypeComparison, renderComparison)
	Handle(r, section.TypeTrustBadges, renderTrustBadges)
	Handle(r, section.TypeProductGrid, renderProductGrid)
	Handle(r, section.TypeCountdown, renderCountdown)
	Handle(r, section.TypeCTA, renderCTA)
	Handle(r, section.TypeContact, renderContact)
	Handle(r, section.TypeDivider, renderDivider)
	Handle(r, section.TypeSpacer, renderSpacer)
	Handle(r, section.TypeCheckoutForm, renderCheckoutForm)
}

var (
	hexColor     = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	youtubeID    = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)
	alignClasses = map[string]bool{"left": true, "center": true, "right": true}
)

// embedSrc 列出非 YouTube 链接可以直接嵌入的 https 播放器地址。
var embedSrc = regexp.MustCompile(
	`^https://(?:(?:www\.)?youtube-nocookie\.com/embed/|player\.vimeo\.com/video/|(?:www\.)?facebook\.com/plugins/video\.php(?:\?|$)|player\.bilibili\.com/player\.html(?:\?|$))`,
)

func renderHero(ctx *Context, _ section.Section, s *section.HeroSettings) *Node {
	align := pickClass(s.Alignment, alignClasses, "center")
	node := el("div", "hero align-"+align,
		textIf("h1", "hero-title", s.Headline),
		ctx.Markdown("hero-subtitle", s.Subheadline),
		button(s.ButtonText, s.ButtonLink),
	)
	node.attr("style", colorStyle(s.BackgroundColor, s.TextColor))
	if src := safeURL(s.ImageURL); src != "" {
		node.Children = append([]*Node{image(src, s.Headline, "hero-image")}, node.Children...)
	}
	return node
}

func renderAnnouncement(_ *Context, _ section.Section, s *section.AnnouncementBarSettings) *Node {
	if strings.TrimSpace(s.Text) == "" {
		return nil
	}
	content := text("span", "announcement-text", s.Text)
	if href := safeURL(s.Link); href != "" {
		content = el("a", "announcement-link", content).attr("href", href)
	}
	return el("div", "announcement-bar", content).attr("style", colorStyle(s.BackgroundColor, s.TextColor))
}

func renderRichText(ctx *Context, _ section.Section, s *section.RichTextSettings) *Node {
	align := pickClass(s.Alignment, alignClasses, "left")
	return el("div", "rich-text align-"+align,
		textIf("h2", "section-title", s.Title),
		ctx.Markdown("rich-text-body", s.Body),
	)
}

func renderImage(_ *Context, _ section.Section, s *section.ImageSettings) *Node {
	src := safeURL(s.ImageURL)
	if src == "" {
		return el("figure", "image image-empty")
	}
	var media *Node = image(src, s.Alt, "image-media")
	if href := safeURL(s.Link); href != "" {
		media = el("a", "image-link", media).attr("href", href)
	}
	width := "contained"
	if s.Width == "full" {
		width = "full"
	}
	return el("figure", "image image-"+width, media, textIf("figcaption", "image-caption", s.Caption))
}

func renderGallery(_ *Context, _ section.Section, s *section.GallerySettings) *Node {
	layout := "grid"
	if s.Layout == "carousel" {
		layout = "carousel"
	}
	grid := el("div", "gallery-items gallery-"+layout).attr("data-columns", strconv.Itoa(clampInt(s.Columns, 1, 6, 3)))
	for i, raw := range s.Images {
		src := safeURL(raw)
		if src == "" {
			continue
		}
		grid.append(image(src, fmt.Sprintf("%s %d", s.Title, i+1), "gallery-image"))
	}
	return el("div", "gallery", textIf("h2", "section-title", s.Title), grid)
}

func renderVideo(_ *Context, _ section.Section, s *section.VideoSettings) *Node {
	embed := videoEmbedURL(s.URL, s.Autoplay)
	node := el("div", "video", textIf("h2", "section-title", s.Title))
	if embed == "" {
		return node.append(el("div", "video-empty"))
	}
	frame := el("iframe", "video-frame").
		attr("src", embed).
		attr("allowfullscreen", "true").
		attr("loading", "lazy")
	return node.append(el("div", "video-wrapper", frame))
}

func renderFeatures(ctx *Context, _ section.Section, s *section.FeaturesSettings) *Node {
	list := el("div", "features-grid").attr("data-columns", strconv.Itoa(clampInt(s.Columns, 1, 6, 3)))
	for _, item := range s.Items {
		list.append(el("div", "feature",
			textIf("span", "feature-icon icon-"+slugClass(item.Icon), item.Icon),
			textIf("h3", "feature-title", item.Title),
			ctx.Markdown("feature-description", item.Description),
		))
	}
	return el("div", "features", textIf("h2", "section-title", s.Title), list)
}

func renderBenefits(_ *Context, _ section.Section, s *section.BenefitsSettings) *Node {
	layout := "image-left"
	if s.Layout == "image-right" {
		layout = "image-right"
	}
	list := el("ul", "benefits-list")
	for _, item := range s.Items {
		list.append(textIf("li", "benefit", item.Text))
	}
	node := el("div", "benefits benefits-"+layout, textIf("h2", "section-title", s.Title))
	if src := safeURL(s.ImageURL); src != "" {
		node.append(image(src, s.Title, "benefits-image"))
	}
	return node.append(list)
}

func renderSteps(ctx *Context, _ section.Section, s *section.StepsSettings) *Node {
	list := el("ol", "steps-list")
	for i, step := range s.Steps {
		list.append(el("li", "step",
			text("span", "step-number", strconv.Itoa(i+1)),
			textIf("h3", "step-title", step.Title),
			ctx.Markdown("step-description", step.Description),
		))
	}
	return el("div", "steps", textIf("h2", "section-title", s.Title), list)
}

func renderStats(_ *Context, _ section.Section, s *section.StatsSettings) *Node {
	list := el("div", "stats-grid")
	for _, item := range s.Items {
		list.append(el("div", "stat",
			textIf("strong", "stat-value", item.Value),
			textIf("span", "stat-label", item.Label),
		))
	}
	return el("div", "stats", textIf("h2", "section-title", s.Title), list)
}

func renderTestimonials(ctx *Context, _ section.Section, s *section.TestimonialsSettings) *Node {
	list := el("div", "testimonials-list")
	for _, item := range s.Items {
		card := el("blockquote", "testimonial")
		if src := safeURL(item.AvatarURL); src != "" {
			card.append(image(src, item.Name, "testimonial-avatar"))
		}
		if rating := clampInt(item.Rating, 0, 5, 0); rating > 0 {
			card.append(text("span", "testimonial-rating", strings.Repeat("★", rating)+strings.Repeat("☆", 5-rating)).
				attr("data-rating", strconv.Itoa(rating)))
		}
		card.append(ctx.Markdown("testimonial-quote", item.Quote), textIf("cite", "testimonial-name", item.Name))
		list.append(card)
	}
	return el("div", "testimonials", textIf("h2", "section-title", s.Title), list)
}

func renderFAQ(ctx *Context, _ section.Section, s *section.FAQSettings) *Node {
	list := el("div", "faq-list")
	for _, item := range s.Items {
		if strings.TrimSpace(item.Question) == "" {
			continue
		}
		list.append(el("details", "faq-item",
			text("summary", "faq-question", item.Question),
			ctx.Markdown("faq-answer", item.Answer),
		))
	}
	return el("div", "faq", textIf("h2", "section-title", s.Title), list)
}

func renderComparison(_ *Context, _ section.Section, s *section.ComparisonSettings) *Node {
	head := el("tr", "",
		text("th", "", ""),
		text("th", "", s.LeftLabel),
		text("th", "", s.RightLabel),
	)
	body := el("tbody", "")
	for _, row := range s.Rows {
		body.append(el("tr", "",
			text("td", "comparison-feature", row.Feature),
			text("td", "comparison-left", row.Left),
			text("td", "comparison-right", row.Right),
		))
	}
	return el("div", "comparison",
		textIf("h2", "section-title", s.Title),
		el("table", "comparison-table", el("thead", "", head), body),
	)
}

func renderTrustBadges(_ *Context, _ section.Section, s *section.TrustBadgesSettings) *Node {
	list := el("div", "badges")
	for _, badge := range s.Badges {
		item := el("div", "badge")
		if src := safeURL(badge.ImageURL); src != "" {
			item.append(image(src, badge.Label, "badge-image"))
		}
		item.append(textIf("span", "badge-label", badge.Label))
		if len(item.Children) > 0 {
			list.append(item)
		}
	}
	return el("div", "trust-badges", textIf("h2", "section-title", s.Title), list)
}

func renderProductGrid(ctx *Context, _ section.Section, s *section.ProductGridSettings) *Node {
	grid := el("div", "product-grid-items").attr("data-columns", strconv.Itoa(clampInt(s.Columns, 1, 6, 3)))
	for _, v := range catalog.Flatten(ctx.Env.Variants, s.ProductIDs) {
		card := el("div", "product-card").attr("data-variant-id", strconv.FormatUint(uint64(v.ID), 10))
		if src := safeURL(v.ImageURL); src != "" {
			card.append(image(src, v.Label(), "product-image"))
		}
		card.append(text("h3", "product-name", v.Label()))
		if s.ShowPrice {
			card.append(priceNode(v))
		}
		card.append(button(s.ButtonText, s.ButtonLink))
		grid.append(card)
	}
	return el("div", "product-grid", textIf("h2", "section-title", s.Title), grid)
}

func renderCountdown(ctx *Context, _ section.Section, s *section.CountdownSettings) *Node {
	node := el("div", "countdown", textIf("h2", "section-title", s.Title))
	node.attr("style", colorStyle(s.BackgroundColor, ""))

	endsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(s.EndsAt))
	if err != nil {
		return node.append(el("div", "countdown-empty"))
	}
	node.attr("data-ends-at", endsAt.UTC().Format(time.RFC3339))

	remaining := endsAt.Sub(ctx.Env.Now)
	if remaining <= 0 {
		return node.attr("data-expired", "true").append(textIf("p", "countdown-expired", s.ExpiredText))
	}

	total := int64(remaining / time.Second)
	units := []struct {
		label string
		value int64
	}{
		{"days", total / 86400},
		{"hours", total % 86400 / 3600},
		{"minutes", total % 3600 / 60},
		{"seconds", total % 60},
	}
	clock := el("div", "countdown-clock")
	for _, unit := range units {
		clock.append(el("div", "countdown-unit",
			text("span", "countdown-value", fmt.Sprintf("%02d", unit.value)).attr("data-unit", unit.label),
			text("span", "countdown-label", unit.label),
		))
	}
	return node.append(clock)
}

func renderCTA(ctx *Context, _ section.Section, s *section.CTASettings) *Node {
	return el("div", "cta",
		textIf("h2", "cta-title", s.Headline),
		ctx.Markdown("cta-text", s.Text),
		button(s.ButtonText, s.ButtonLink),
	).attr("style", colorStyle(s.BackgroundColor, ""))
}

func renderContact(_ *Context, _ section.Section, s *section.ContactSettings) *Node {
	list := el("ul", "contact-list")
	if phone := strings.TrimSpace(s.Phone); phone != "" {
		list.append(el("li", "contact-phone", text("a", "", phone).attr("href", "tel:"+digitsOnly(phone))))
	}
	if email := strings.TrimSpace(s.Email); email != "" && strings.Contains(email, "@") {
		list.append(el("li", "contact-email", text("a", "", email).attr("href", "mailto:"+email)))
	}
	if wa := digitsOnly(s.WhatsApp); wa != "" {
		list.append(el("li", "contact-whatsapp", text("a", "", s.WhatsApp).attr("href", "https://wa.me/"+wa)))
	}
	list.append(textIf("li", "contact-address", s.Address))
	return el("div", "contact", textIf("h2", "section-title", s.Title), list)
}

func renderDivider(_ *Context, _ section.Section, s *section.DividerSettings) *Node {
	style := pickClass(s.Style, map[string]bool{"solid": true, "dashed": true, "dotted": true}, "solid")
	node := el("hr", "divider divider-"+style)
	if color := safeColor(s.Color); color != "" {
		node.attr("style", "border-color:"+color)
	}
	return node
}

func renderSpacer(_ *Context, _ section.Section, s *section.SpacerSettings) *Node {
	height := clampInt(s.Height, 0, 400, 40)
	return el("div", "spacer").attr("style", fmt.Sprintf("height:%dpx", height)).attr("aria-hidden", "true")
}

func button(label, link string) *Node {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	href := safeURL(link)
	if href == "" {
		href = "#"
	}
	return text("a", "button", label).attr("href", href)
}

func image(src, alt, class string) *Node {
	return el("img", class).attr("src", src).attr("alt", alt).attr("loading", "lazy")
}

func priceNode(v catalog.Variant) *Node {
	node := el("div", "price", text("span", "price-current", formatMoney(v.Price)))
	if v.HasDiscount() {
		node.append(text("del", "price-original", formatMoney(*v.OriginalPrice)))
	}
	return node
}

// safeURL 只放行 http(s)、站内相对路径、锚点以及 tel/mailto 链接。
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "#") || (strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//")) {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "tel", "mailto":
		return parsed.String()
	}
	return ""
}

func safeColor(raw string) string {
	raw = strings.TrimSpace(raw)
	if hexColor.MatchString(raw) {
		return raw
	}
	return ""
}

func colorStyle(background, foreground string) string {
	var parts []string
	if bg := safeColor(background); bg != "" {
		parts = append(parts, "background-color:"+bg)
	}
	if fg := safeColor(foreground); fg != "" {
		parts = append(parts, "color:"+fg)
	}
	return strings.Join(parts, ";")
}

func videoEmbedURL(raw string, autoplay bool) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	var id string
	switch host {
	case "youtube.com", "m.youtube.com":
		id = parsed.Query().Get("v")
		if strings.HasPrefix(parsed.Path, "/embed/") || strings.HasPrefix(parsed.Path, "/shorts/") {
			parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
			id = parts[len(parts)-1]
		}
	case "youtu.be":
		id = strings.Trim(parsed.Path, "/")
	default:
		if embed := parsed.String(); embedSrc.MatchString(embed) {
			return embed
		}
		return ""
	}
	if !youtubeID.MatchString(id) {
		return ""
	}
	embed := "https://www.youtube.com/embed/" + id
	if autoplay {
		embed += "?autoplay=1&mute=1"
	}
	return embed
}

func pickClass(value string, allowed map[string]bool, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if allowed[value] {
		return value
	}
	return fallback
}

func slugClass(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

func clampInt(value, lo, hi, fallback int) int {
	if value < lo || value > hi {
		return fallback
	}
	return value
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "Tk " + b.String()
}
