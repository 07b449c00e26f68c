package section

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pagecart/internal/pricing"
)

// FieldKind 描述编辑器中字段的基础类型。
type FieldKind string

const (
	FieldText      FieldKind = "text"
	FieldLongText  FieldKind = "long-text"
	FieldColor     FieldKind = "color"
	FieldEnum      FieldKind = "enum"
	FieldImage     FieldKind = "image"
	FieldImageList FieldKind = "image-list"
	FieldList      FieldKind = "list"
	FieldNumber    FieldKind = "number"
	FieldToggle    FieldKind = "toggle"
	FieldProducts  FieldKind = "products"
)

// Field 是编辑器需要展示的一个配置项；FieldList 通过 Fields 描述每条记录的结构。
type Field struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
	Fields  []Field   `json:"fields,omitempty"`
}

// Schema 是某个区块类型对外暴露的编辑信息。
type Schema struct {
	Type     Type     `json:"type"`
	Label    string   `json:"label"`
	Fields   []Field  `json:"fields"`
	Defaults Settings `json:"defaults"`
}

var (
	ErrUnknownType     = errors.New("unknown section type")
	ErrInvalidSettings = errors.New("invalid section settings")
)

type entry struct {
	label    string
	defaults func() Settings
	fields   []Field
}

// Registry 保存每种区块类型的名称、默认配置与编辑字段。
type Registry struct {
	entries map[Type]entry
	order   []Type
}

// NewRegistry 返回一个空的 Registry。
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Type]entry)}
}

// Register 登记一种区块类型，重复登记会覆盖旧条目。
func (r *Registry) Register(t Type, label string, defaults func() Settings, fields ...Field) {
	if _, exists := r.entries[t]; !exists {
		r.order = append(r.order, t)
	}
	r.entries[t] = entry{label: label, defaults: defaults, fields: fields}
}

// Has 报告类型是否已登记。
func (r *Registry) Has(t Type) bool {
	_, ok := r.entries[t]
	return ok
}

// Label 返回类型的展示名称，未登记时返回类型本身。
func (r *Registry) Label(t Type) string {
	if e, ok := r.entries[t]; ok {
		return e.label
	}
	return string(t)
}

// Defaults 返回该类型一份全新的默认配置。
func (r *Registry) Defaults(t Type) (Settings, error) {
	e, ok := r.entries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return e.defaults(), nil
}

// Types 按登记顺序返回所有类型。
func (r *Registry) Types() []Type {
	out := make([]Type, len(r.order))
	copy(out, r.order)
	return out
}

// Schemas 返回编辑器所需的全部类型描述。
func (r *Registry) Schemas() []Schema {
	out := make([]Schema, 0, len(r.order))
	for _, t := range r.order {
		e := r.entries[t]
		out = append(out, Schema{Type: t, Label: e.label, Fields: e.fields, Defaults: e.defaults()})
	}
	return out
}

// Decode 把保存的配置叠加到默认值上：缺失的键保留默认值，未知键被忽略，
// 类型不符的字段保留默认值。未登记的类型返回 *Unknown。
func (r *Registry) Decode(t Type, raw json.RawMessage) Settings {
	settings, err := r.decode(t, raw)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			return &Unknown{TypeName: t, Raw: cloneRaw(raw)}
		}
		if fresh, defErr := r.Defaults(t); defErr == nil && !isTypeError(err) {
			return fresh
		}
	}
	return settings
}

// DecodeStrict 与 Decode 相同，但会把任何字段类型错误报告给调用方。
func (r *Registry) DecodeStrict(t Type, raw json.RawMessage) (Settings, error) {
	settings, err := r.decode(t, raw)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return settings, nil
}

// Clone 返回配置的深拷贝。
func (r *Registry) Clone(s Settings) Settings {
	if u, ok := s.(*Unknown); ok {
		return &Unknown{TypeName: u.TypeName, Raw: cloneRaw(u.Raw)}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		fresh, defErr := r.Defaults(s.SectionType())
		if defErr != nil {
			return s
		}
		return fresh
	}
	return r.Decode(s.SectionType(), raw)
}

func (r *Registry) decode(t Type, raw json.RawMessage) (Settings, error) {
	settings, err := r.Defaults(t)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return settings, nil
	}
	if err := json.Unmarshal(raw, settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func isTypeError(err error) bool {
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

var alignments = []string{"left", "center", "right"}

var zones = []string{string(pricing.ZoneInsideLocal), string(pricing.ZoneOutsideLocal)}

// Default 是内置全部区块类型的 Registry。
var Default = newBuiltinRegistry()

func newBuiltinRegistry() *Registry {
	r := NewRegistry()

	r.Register(TypeHero, "Hero Banner", func() Settings {
		return &HeroSettings{
			Headline:   "Your headline here",
			ButtonText: "Order now",
			ButtonLink: "#order",
			Alignment:  "center",
		}
	},
		Field{Key: "headline", Label: "Headline", Kind: FieldText},
		Field{Key: "subheadline", Label: "Subheadline", Kind: FieldLongText},
		Field{Key: "imageUrl", Label: "Background image", Kind: FieldImage},
		Field{Key: "buttonText", Label: "Button text", Kind: FieldText},
		Field{Key: "buttonLink", Label: "Button link", Kind: FieldText},
		Field{Key: "alignment", Label: "Alignment", Kind: FieldEnum, Options: alignments},
		Field{Key: "backgroundColor", Label: "Background color", Kind: FieldColor},
		Field{Key: "textColor", Label: "Text color", Kind: FieldColor},
	)

	r.Register(TypeAnnouncementBar, "Announcement Bar", func() Settings {
		return &AnnouncementBarSettings{Text: "Free delivery on all orders today"}
	},
		Field{Key: "text", Label: "Text", Kind: FieldText},
		Field{Key: "link", Label: "Link", Kind: FieldText},
		Field{Key: "backgroundColor", Label: "Background color", Kind: FieldColor},
		Field{Key: "textColor", Label: "Text color", Kind: FieldColor},
	)

	r.Register(TypeRichText, "Rich Text", func() Settings {
		return &RichTextSettings{Alignment: "left"}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "body", Label: "Body", Kind: FieldLongText},
		Field{Key: "alignment", Label: "Alignment", Kind: FieldEnum, Options: alignments},
	)

	r.Register(TypeImage, "Image", func() Settings {
		return &ImageSettings{Width: "contained"}
	},
		Field{Key: "imageUrl", Label: "Image", Kind: FieldImage},
		Field{Key: "alt", Label: "Alt text", Kind: FieldText},
		Field{Key: "caption", Label: "Caption", Kind: FieldText},
		Field{Key: "link", Label: "Link", Kind: FieldText},
		Field{Key: "width", Label: "Width", Kind: FieldEnum, Options: []string{"contained", "full"}},
	)

	r.Register(TypeGallery, "Image Gallery", func() Settings {
		return &GallerySettings{Images: []string{}, Columns: 3, Layout: "grid"}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "images", Label: "Images", Kind: FieldImageList},
		Field{Key: "columns", Label: "Columns", Kind: FieldNumber},
		Field{Key: "layout", Label: "Layout", Kind: FieldEnum, Options: []string{"grid", "carousel"}},
	)

	r.Register(TypeVideo, "Video", func() Settings {
		return &VideoSettings{}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "url", Label: "Video URL", Kind: FieldText},
		Field{Key: "autoplay", Label: "Autoplay", Kind: FieldToggle},
	)

	r.Register(TypeFeatures, "Features", func() Settings {
		return &FeaturesSettings{
			Title:   "Why choose us",
			Columns: 3,
			Items: []FeatureItem{
				{Icon: "truck", Title: "Fast delivery", Description: "Delivered to your door in 2-3 days"},
				{Icon: "shield", Title: "Quality assured", Description: "Every item is checked before dispatch"},
				{Icon: "cash", Title: "Cash on delivery", Description: "Pay when you receive the parcel"},
			},
		}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "columns", Label: "Columns", Kind: FieldNumber},
		Field{Key: "items", Label: "Features", Kind: FieldList, Fields: []Field{
			{Key: "icon", Label: "Icon", Kind: FieldText},
			{Key: "title", Label: "Title", Kind: FieldText},
			{Key: "description", Label: "Description", Kind: FieldLongText},
		}},
	)

	r.Register(TypeBenefits, "Benefits", func() Settings {
		return &BenefitsSettings{Title: "Benefits", Items: []BenefitItem{}, Layout: "image-left"}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "imageUrl", Label: "Image", Kind: FieldImage},
		Field{Key: "layout", Label: "Layout", Kind: FieldEnum, Options: []string{"image-left", "image-right"}},
		Field{Key: "items", Label: "Benefits", Kind: FieldList, Fields: []Field{
			{Key: "text", Label: "Text", Kind: FieldText},
		}},
	)

	r.Register(TypeSteps, "How It Works", func() Settings {
		return &StepsSettings{Title: "How to order", Steps: []StepItem{
			{Title: "Choose", Description: "Pick the package that suits you"},
			{Title: "Fill in", Description: "Enter your name, phone and address"},
			{Title: "Receive", Description: "Pay cash when the parcel arrives"},
		}}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "steps", Label: "Steps", Kind: FieldList, Fields: []Field{
			{Key: "title", Label: "Title", Kind: FieldText},
			{Key: "description", Label: "Description", Kind: FieldLongText},
		}},
	)

	r.Register(TypeStats, "Stats", func() Settings {
		return &StatsSettings{Items: []StatItem{}}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "items", Label: "Stats", Kind: FieldList, Fields: []Field{
			{Key: "value", Label: "Value", Kind: FieldText},
			{Key: "label", Label: "Label", Kind: FieldText},
		}},
	)

	r.Register(TypeTestimonials, "Testimonials", func() Settings {
		return &TestimonialsSettings{Title: "What our customers say", Items: []Testimonial{}}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "items", Label: "Testimonials", Kind: FieldList, Fields: []Field{
			{Key: "name", Label: "Name", Kind: FieldText},
			{Key: "quote", Label: "Quote", Kind: FieldLongText},
			{Key: "avatarUrl", Label: "Avatar", Kind: FieldImage},
			{Key: "rating", Label: "Rating", Kind: FieldNumber},
		}},
	)

	r.Register(TypeFAQ, "FAQ", func() Settings {
		return &FAQSettings{Title: "Frequently asked questions", Items: []FAQItem{}}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "items", Label: "Questions", Kind: FieldList, Fields: []Field{
			{Key: "question", Label: "Question", Kind: FieldText},
			{Key: "answer", Label: "Answer", Kind: FieldLongText},
		}},
	)

	r.Register(TypeComparison, "Comparison Table", func() Settings {
		return &ComparisonSettings{LeftLabel: "Us", RightLabel: "Others", Rows: []ComparisonRow{}}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "leftLabel", Label: "Left column", Kind: FieldText},
		Field{Key: "rightLabel", Label: "Right column", Kind: FieldText},
		Field{Key: "rows", Label: "Rows", Kind: FieldList, Fields: []Field{
			{Key: "feature", Label: "Feature", Kind: FieldText},
			{Key: "left", Label: "Left", Kind: FieldText},
			{Key: "right", Label: "Right", Kind: FieldText},
		}},
	)

	r.Register(TypeTrustBadges, "Trust Badges", func() Settings {
		return &TrustBadgesSettings{Badges: []Badge{}}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "badges", Label: "Badges", Kind: FieldList, Fields: []Field{
			{Key: "imageUrl", Label: "Image", Kind: FieldImage},
			{Key: "label", Label: "Label", Kind: FieldText},
		}},
	)

	r.Register(TypeProductGrid, "Product Grid", func() Settings {
		return &ProductGridSettings{ProductIDs: []uint{}, Columns: 3, ShowPrice: true, ButtonText: "Buy now", ButtonLink: "#order"}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "productIds", Label: "Products", Kind: FieldProducts},
		Field{Key: "columns", Label: "Columns", Kind: FieldNumber},
		Field{Key: "showPrice", Label: "Show price", Kind: FieldToggle},
		Field{Key: "buttonText", Label: "Button text", Kind: FieldText},
		Field{Key: "buttonLink", Label: "Button link", Kind: FieldText},
	)

	r.Register(TypeCountdown, "Countdown", func() Settings {
		return &CountdownSettings{Title: "Offer ends in", ExpiredText: "This offer has ended"}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "endsAt", Label: "Ends at (RFC3339)", Kind: FieldText},
		Field{Key: "expiredText", Label: "Expired text", Kind: FieldText},
		Field{Key: "backgroundColor", Label: "Background color", Kind: FieldColor},
	)

	r.Register(TypeCTA, "Call To Action", func() Settings {
		return &CTASettings{Headline: "Ready to order?", ButtonText: "Order now", ButtonLink: "#order"}
	},
		Field{Key: "headline", Label: "Headline", Kind: FieldText},
		Field{Key: "text", Label: "Text", Kind: FieldLongText},
		Field{Key: "buttonText", Label: "Button text", Kind: FieldText},
		Field{Key: "buttonLink", Label: "Button link", Kind: FieldText},
		Field{Key: "backgroundColor", Label: "Background color", Kind: FieldColor},
	)

	r.Register(TypeContact, "Contact", func() Settings {
		return &ContactSettings{Title: "Contact us"}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "phone", Label: "Phone", Kind: FieldText},
		Field{Key: "email", Label: "Email", Kind: FieldText},
		Field{Key: "address", Label: "Address", Kind: FieldLongText},
		Field{Key: "whatsapp", Label: "WhatsApp", Kind: FieldText},
	)

	r.Register(TypeDivider, "Divider", func() Settings {
		return &DividerSettings{Style: "solid", Color: "#e5e7eb"}
	},
		Field{Key: "style", Label: "Style", Kind: FieldEnum, Options: []string{"solid", "dashed", "dotted"}},
		Field{Key: "color", Label: "Color", Kind: FieldColor},
	)

	r.Register(TypeSpacer, "Spacer", func() Settings {
		return &SpacerSettings{Height: 40}
	},
		Field{Key: "height", Label: "Height (px)", Kind: FieldNumber},
	)

	r.Register(TypeCheckoutForm, "Checkout Form", func() Settings {
		return &CheckoutFormSettings{
			Title:          "Place your order",
			ProductIDs:     []uint{},
			ButtonText:     "Confirm order",
			DefaultZone:    string(pricing.ZoneInsideLocal),
			ShowQuantity:   true,
			InsideLabel:    "Inside city",
			OutsideLabel:   "Outside city",
			SuccessMessage: "Thank you! Your order has been placed.",
		}
	},
		Field{Key: "title", Label: "Title", Kind: FieldText},
		Field{Key: "productIds", Label: "Products", Kind: FieldProducts},
		Field{Key: "buttonText", Label: "Button text", Kind: FieldText},
		Field{Key: "freeDelivery", Label: "Free delivery", Kind: FieldToggle},
		Field{Key: "defaultZone", Label: "Default shipping zone", Kind: FieldEnum, Options: zones},
		Field{Key: "showQuantity", Label: "Show quantity", Kind: FieldToggle},
		Field{Key: "insideLabel", Label: "Inside zone label", Kind: FieldText},
		Field{Key: "outsideLabel", Label: "Outside zone label", Kind: FieldText},
		Field{Key: "successMessage", Label: "Success message", Kind: FieldLongText},
	)

	return r
}
