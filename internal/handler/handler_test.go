package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pagecart/internal/autosave"
	"github.com/pagecart/internal/config"
	"github.com/pagecart/internal/courier"
	"github.com/pagecart/internal/db"
	"github.com/pagecart/internal/service"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var handlerDBSeq int64

const testSeed = `
products:
  - name: Cotton Panjabi
    slug: cotton-panjabi
    variants:
      - name: M
        price: 1000
        stock: 5
  - name: Attar
    slug: attar
    variants:
      - name: 6ml
        price: 450
        stock: 9
      - name: 12ml
        price: 800
        stock: 4
      - name: 30ml
        price: 1500
        stock: 0
pages:
  - slug: eid-offer
    title: Eid Offer
    published: true
    sections:
      - type: hero
        settings:
          headline: Eid collection
      - type: checkout-form
        products: [cotton-panjabi]
  - slug: attar
    title: Attar
    published: true
    sections:
      - type: checkout-form
        products: [attar]
`

// manualClock 记录防抖任务，由测试显式触发。
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (c *manualClock) AfterFunc(_ time.Duration, fn func()) autosave.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{fn: fn}
	c.timers = append(c.timers, t)
	return &manualTimerHandle{clock: c, timer: t}
}

type manualTimerHandle struct {
	clock *manualClock
	timer *manualTimer
}

func (h *manualTimerHandle) Stop() bool {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	if h.timer.stopped {
		return false
	}
	h.timer.stopped = true
	return true
}

func (c *manualClock) fire() {
	c.mu.Lock()
	var due []func()
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t.fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

type testEnv struct {
	api    *API
	db     *gorm.DB
	clock  *manualClock
	server *httptest.Server
	client *http.Client
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		ShippingRateInside:  60,
		ShippingRateOutside: 120,
		DraftDebounce:       time.Second,
		FlowIdleTimeout:     time.Minute,
		CourierTimeout:      time.Second,
		RiskHighCancelled:   5,
		RiskHighRatio:       50,
		RiskMediumCancelled: 2,
		RiskMediumRatio:     70,
		RiskLowRatio:        80,
		SubmitRatePerMinute: 10,
	}
}

func setupTestEnv(t *testing.T, cfg config.AppConfig) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", atomic.AddInt64(&handlerDBSeq, 1))
	gdb, err := db.Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.EnsureUser(gdb, "admin", "secret"); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if _, err := service.NewPageService(gdb).ImportSeed(context.Background(), []byte(testSeed)); err != nil {
		t.Fatalf("failed to import seed: %v", err)
	}

	api := NewAPI(gdb, cfg)
	api.logger = zerolog.Nop()
	clock := &manualClock{}
	api.SetDraftClock(clock)
	api.SetCourierEngine(courier.NewEngine(courier.NewCache(courier.FetcherFunc(func(_ context.Context, number string) (courier.Report, error) {
		if number == "01712345678" {
			return courier.Report{Summary: courier.Record{TotalParcels: 10, CancelledParcels: 6, SuccessfulParcels: 4, SuccessRatio: 40}}, nil
		}
		return courier.Report{}, courier.ErrNoHistory
	}), time.Second), courier.DefaultThresholds()))

	server := httptest.NewServer(testRoutes(api))
	jar, _ := cookiejar.New(nil)
	env := &testEnv{api: api, db: gdb, clock: clock, server: server, client: &http.Client{Jar: jar}}

	t.Cleanup(func() {
		server.Close()
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return env
}

func testRoutes(api *API) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.SetHTMLTemplate(Templates())

	r.GET("/p/:slug", api.ShowPage)
	r.GET("/api/pages/:slug", api.GetPageTree)
	flow := r.Group("/api/checkout/:slug/:sectionID")
	flow.POST("/start", api.StartCheckout)
	flow.POST("/variant", api.SelectCheckoutVariant)
	flow.POST("/fields", api.UpdateCheckoutFields)
	flow.POST("/submit", api.Limiter().Middleware(), api.SubmitCheckout)
	flow.GET("/state", api.GetCheckoutState)
	flow.DELETE("", api.LeaveCheckout)

	r.POST("/admin/login", api.Login)
	auth := r.Group("/admin/api", AuthRequired())
	auth.POST("/pages", api.CreatePage)
	auth.PUT("/pages/:id", api.UpdatePage)
	auth.POST("/pages/:id/sections", api.AddSection)
	auth.PATCH("/pages/:id/sections/:sid", api.UpdateSection)
	auth.DELETE("/pages/:id/sections/:sid", api.DeleteSection)
	auth.POST("/pages/:id/sections/:sid/move", api.MoveSection)
	auth.POST("/pages/:id/sections/:sid/duplicate", api.DuplicateSection)
	auth.POST("/orders", api.CreateManualOrder)
	auth.POST("/orders/quote", api.QuoteOrder)
	auth.GET("/courier/:phone", api.CourierLookup)
	auth.GET("/drafts", api.ListDrafts)
	return r
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	payload := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}
	return resp.StatusCode, payload
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	if status, body := e.do(t, http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "secret"}); status != http.StatusOK {
		t.Fatalf("login failed: %d %v", status, body)
	}
}

// checkoutSectionID 返回页面中下单区块的 ID。
func (e *testEnv) checkoutSectionID(t *testing.T, slug string) string {
	t.Helper()
	doc, err := e.api.pages.GetPublishedBySlug(slug)
	if err != nil {
		t.Fatalf("load page %s: %v", slug, err)
	}
	for _, s := range doc.Sections {
		if s.Type == "checkout-form" {
			return s.ID
		}
	}
	t.Fatalf("page %s has no checkout section", slug)
	return ""
}

func object(t *testing.T, v any, key string) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", v)
	}
	child, ok := m[key].(map[string]any)
	if !ok {
		t.Fatalf("expected %q object in %v", key, m)
	}
	return child
}
