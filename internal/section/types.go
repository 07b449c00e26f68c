package section

import "encoding/json"

// Type 标识一种区块。取值集合是封闭的，新增类型只需要在 registry 中登记。
type Type string

const (
	TypeHero            Type = "hero"
	TypeAnnouncementBar Type = "announcement-bar"
	TypeRichText        Type = "rich-text"
	TypeImage           Type = "image"
	TypeGallery         Type = "gallery"
	TypeVideo           Type = "video"
	TypeFeatures        Type = "features"
	TypeBenefits        Type = "benefits"
	TypeSteps           Type = "steps"
	TypeStats           Type = "stats"
	TypeTestimonials    Type = "testimonials"
	TypeFAQ             Type = "faq"
	TypeComparison      Type = "comparison"
	TypeTrustBadges     Type = "trust-badges"
	TypeProductGrid     Type = "product-grid"
	TypeCountdown       Type = "countdown"
	TypeCTA             Type = "cta"
	TypeContact         Type = "contact"
	TypeDivider         Type = "divider"
	TypeSpacer          Type = "spacer"
	TypeCheckoutForm    Type = "checkout-form"

	// TypeInvalid 标记无法解析的区块条目，不在 registry 中登记。
	TypeInvalid Type = "invalid"
)

// Settings 是区块配置的标签联合：每种 Type 对应一个具体结构体。
type Settings interface {
	SectionType() Type
}

// ProductReferencer 由引用商品目录的区块配置实现，渲染前据此预取变体。
type ProductReferencer interface {
	ProductRefs() []uint
}

// Unknown 保存未登记类型的原始配置，保证读写往返不丢数据。
type Unknown struct {
	TypeName Type
	Raw      json.RawMessage
}

func (u *Unknown) SectionType() Type { return u.TypeName }

type HeroSettings struct {
	Headline        string `json:"headline"`
	Subheadline     string `json:"subheadline"`
	ImageURL        string `json:"imageUrl"`
	ButtonText      string `json:"buttonText"`
	ButtonLink      string `json:"buttonLink"`
	Alignment       string `json:"alignment"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

func (*HeroSettings) SectionType() Type { return TypeHero }

type AnnouncementBarSettings struct {
	Text            string `json:"text"`
	Link            string `json:"link"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

func (*AnnouncementBarSettings) SectionType() Type { return TypeAnnouncementBar }

type RichTextSettings struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Alignment string `json:"alignment"`
}

func (*RichTextSettings) SectionType() Type { return TypeRichText }

type ImageSettings struct {
	ImageURL string `json:"imageUrl"`
	Alt      string `json:"alt"`
	Caption  string `json:"caption"`
	Link     string `json:"link"`
	Width    string `json:"width"`
}

func (*ImageSettings) SectionType() Type { return TypeImage }

type GallerySettings struct {
	Title   string   `json:"title"`
	Images  []string `json:"images"`
	Columns int      `json:"columns"`
	Layout  string   `json:"layout"`
}

func (*GallerySettings) SectionType() Type { return TypeGallery }

type VideoSettings struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Autoplay bool   `json:"autoplay"`
}

func (*VideoSettings) SectionType() Type { return TypeVideo }

type FeatureItem struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type FeaturesSettings struct {
	Title   string        `json:"title"`
	Items   []FeatureItem `json:"items"`
	Columns int           `json:"columns"`
}

func (*FeaturesSettings) SectionType() Type { return TypeFeatures }

type BenefitItem struct {
	Text string `json:"text"`
}

type BenefitsSettings struct {
	Title    string        `json:"title"`
	Items    []BenefitItem `json:"items"`
	ImageURL string        `json:"imageUrl"`
	Layout   string        `json:"layout"`
}

func (*BenefitsSettings) SectionType() Type { return TypeBenefits }

type StepItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type StepsSettings struct {
	Title string     `json:"title"`
	Steps []StepItem `json:"steps"`
}

func (*StepsSettings) SectionType() Type { return TypeSteps }

type StatItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type StatsSettings struct {
	Title string     `json:"title"`
	Items []StatItem `json:"items"`
}

func (*StatsSettings) SectionType() Type { return TypeStats }

type Testimonial struct {
	Name      string `json:"name"`
	Quote     string `json:"quote"`
	AvatarURL string `json:"avatarUrl"`
	Rating    int    `json:"rating"`
}

type TestimonialsSettings struct {
	Title string        `json:"title"`
	Items []Testimonial `json:"items"`
}

func (*TestimonialsSettings) SectionType() Type { return TypeTestimonials }

type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type FAQSettings struct {
	Title string    `json:"title"`
	Items []FAQItem `json:"items"`
}

func (*FAQSettings) SectionType() Type { return TypeFAQ }

type ComparisonRow struct {
	Feature string `json:"feature"`
	Left    string `json:"left"`
	Right   string `json:"right"`
}

type ComparisonSettings struct {
	Title      string          `json:"title"`
	LeftLabel  string          `json:"leftLabel"`
	RightLabel string          `json:"rightLabel"`
	Rows       []ComparisonRow `json:"rows"`
}

func (*ComparisonSettings) SectionType() Type { return TypeComparison }

type Badge struct {
	ImageURL string `json:"imageUrl"`
	Label    string `json:"label"`
}

type TrustBadgesSettings struct {
	Title  string  `json:"title"`
	Badges []Badge `json:"badges"`
}

func (*TrustBadgesSettings) SectionType() Type { return TypeTrustBadges }

type ProductGridSettings struct {
	Title      string `json:"title"`
	ProductIDs []uint `json:"productIds"`
	Columns    int    `json:"columns"`
	ShowPrice  bool   `json:"showPrice"`
	ButtonText string `json:"buttonText"`
	ButtonLink string `json:"buttonLink"`
}

func (*ProductGridSettings) SectionType() Type { return TypeProductGrid }

func (s *ProductGridSettings) ProductRefs() []uint { return s.ProductIDs }

type CountdownSettings struct {
	Title           string `json:"title"`
	EndsAt          string `json:"endsAt"`
	ExpiredText     string `json:"expiredText"`
	BackgroundColor string `json:"backgroundColor"`
}

func (*CountdownSettings) SectionType() Type { return TypeCountdown }

type CTASettings struct {
	Headline        string `json:"headline"`
	Text            string `json:"text"`
	ButtonText      string `json:"buttonText"`
	ButtonLink      string `json:"buttonLink"`
	BackgroundColor string `json:"backgroundColor"`
}

func (*CTASettings) SectionType() Type { return TypeCTA }

type ContactSettings struct {
	Title    string `json:"title"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	WhatsApp string `json:"whatsapp"`
}

func (*ContactSettings) SectionType() Type { return TypeContact }

type DividerSettings struct {
	Style string `json:"style"`
	Color string `json:"color"`
}

func (*DividerSettings) SectionType() Type { return TypeDivider }

type SpacerSettings struct {
	Height int `json:"height"`
}

func (*SpacerSettings) SectionType() Type { return TypeSpacer }

// CheckoutFormSettings 是唯一带下单副作用的区块配置。
type CheckoutFormSettings struct {
	Title          string `json:"title"`
	ProductIDs     []uint `json:"productIds"`
	ButtonText     string `json:"buttonText"`
	FreeDelivery   bool   `json:"freeDelivery"`
	DefaultZone    string `json:"defaultZone"`
	ShowQuantity   bool   `json:"showQuantity"`
	InsideLabel    string `json:"insideLabel"`
	OutsideLabel   string `json:"outsideLabel"`
	SuccessMessage string `json:"successMessage"`
}

func (*CheckoutFormSettings) SectionType() Type { return TypeCheckoutForm }

func (s *CheckoutFormSettings) ProductRefs() []uint { return s.ProductIDs }
