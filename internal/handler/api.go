package handler

import (
	"time"

	"github.com/pagecart/internal/autosave"
	"github.com/pagecart/internal/checkout"
	"github.com/pagecart/internal/config"
	"github.com/pagecart/internal/courier"
	"github.com/pagecart/internal/logging"
	"github.com/pagecart/internal/page"
	"github.com/pagecart/internal/pricing"
	"github.com/pagecart/internal/render"
	"github.com/pagecart/internal/section"
	"github.com/pagecart/internal/service"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	pages    *service.PageService
	catalog  *service.CatalogService
	orders   *service.OrderService
	drafts   *service.DraftService
	users    *service.UserService
	composer *page.Composer
	renderer *render.Renderer
	rates    pricing.RateTable
	flows    *checkout.Store
	courier  *courier.Engine
	limiter  *VisitorLimiter

	draftWindow time.Duration
	clock       autosave.Clock
	now         func() time.Time
	logger      zerolog.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, cfg config.AppConfig) *API {
	rates := pricing.NewRateTable(cfg.ShippingRateInside, cfg.ShippingRateOutside)

	client := courier.NewHTTPClient(cfg.CourierAPIURL, cfg.CourierAPIKey, cfg.CourierTimeout)
	engine := courier.NewEngine(courier.NewCache(client, cfg.CourierTimeout), courier.Thresholds{
		HighCancelled:   cfg.RiskHighCancelled,
		HighRatio:       cfg.RiskHighRatio,
		MediumCancelled: cfg.RiskMediumCancelled,
		MediumRatio:     cfg.RiskMediumRatio,
		LowRatio:        cfg.RiskLowRatio,
	})

	return &API{
		db:          gdb,
		pages:       service.NewPageService(gdb),
		catalog:     service.NewCatalogService(gdb),
		orders:      service.NewOrderService(gdb, rates),
		drafts:      service.NewDraftService(gdb),
		users:       service.NewUserService(gdb),
		composer:    page.NewComposer(section.Default),
		renderer:    render.New(section.Default),
		rates:       rates,
		flows:       checkout.NewStore(cfg.FlowIdleTimeout),
		courier:     engine,
		limiter:     NewVisitorLimiter(cfg.SubmitRatePerMinute),
		draftWindow: cfg.DraftDebounce,
		clock:       autosave.RealClock,
		now:         time.Now,
		logger:      logging.For("handler"),
	}
}

// Flows 暴露进行中的下单流程，供入口程序定期清理。
func (a *API) Flows() *checkout.Store {
	return a.flows
}

// Limiter 暴露提交限流器，供路由挂载与定期清理。
func (a *API) Limiter() *VisitorLimiter {
	return a.limiter
}

// SetCourierEngine 替换快递历史评估引擎，主要面向测试场景。
func (a *API) SetCourierEngine(engine *courier.Engine) {
	a.courier = engine
}

// SetDraftClock 替换草稿防抖使用的时钟，主要面向测试场景。
func (a *API) SetDraftClock(clock autosave.Clock) {
	a.clock = clock
}
