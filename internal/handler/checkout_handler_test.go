package handler

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pagecart/internal/db"
	"github.com/pagecart/internal/service"
)

func TestShowPageRendersCheckoutForm(t *testing.T) {
	env := setupTestEnv(t, testConfig())
	sid := env.checkoutSectionID(t, "eid-offer")

	resp, err := env.client.Get(env.server.URL + "/p/eid-offer")
	if err != nil {
		t.Fatalf("GET page: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	html := string(body)
	for _, want := range []string{"<title>Eid Offer</title>", "Eid collection", `data-checkout-endpoint="/api/checkout/eid-offer/` + sid + `"`, "--color-primary:"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}

	if _, err := service.NewPageService(env.db).Create(service.PageInput{Slug: "hidden", Title: "Hidden"}); err != nil {
		t.Fatalf("create draft page: %v", err)
	}
	for _, path := range []string{"/p/hidden", "/p/missing"} {
		resp, err := env.client.Get(env.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestCheckoutFlowPlacesOrderAndConvertsDraft(t *testing.T) {
	env := setupTestEnv(t, testConfig())
	base := "/api/checkout/eid-offer/" + env.checkoutSectionID(t, "eid-offer")

	status, body := env.do(t, http.MethodPost, base+"/start", nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on start, got %d %v", status, body)
	}
	if state := object(t, body, "flow")["state"]; state != "variant_chosen" {
		t.Fatalf("single variant should be preselected, got %v", state)
	}
	if status, _ := env.do(t, http.MethodPost, base+"/start", nil); status != http.StatusOK {
		t.Fatalf("expected existing flow to be resumed, got %d", status)
	}

	status, body = env.do(t, http.MethodPost, base+"/fields", map[string]any{
		"name":     "Rahim",
		"phone":    "01812345678",
		"address":  "House 4, Road 2, Mirpur",
		"zone":     "outside_local",
		"quantity": 2,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on fields, got %d %v", status, body)
	}
	totals := object(t, object(t, body, "flow"), "totals")
	if totals["total"] != float64(2120) {
		t.Fatalf("expected total 2120, got %v", totals["total"])
	}

	env.clock.fire()
	var drafts []db.DraftOrder
	env.db.Find(&drafts)
	if len(drafts) != 1 || drafts[0].Converted || !strings.Contains(drafts[0].Snapshot, "Rahim") {
		t.Fatalf("expected one open draft with the contact, got %+v", drafts)
	}

	status, body = env.do(t, http.MethodPost, base+"/submit", nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on submit, got %d %v", status, body)
	}
	if number, _ := object(t, body, "order")["orderNumber"].(string); !strings.HasPrefix(number, "PC-") {
		t.Fatalf("unexpected order number %v", number)
	}

	var order db.Order
	if err := env.db.Preload("Items").First(&order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Total != 2120 || order.Source != "landing_page" || order.PageSlug != "eid-offer" || len(order.Items) != 1 {
		t.Fatalf("unexpected order %+v", order)
	}

	env.db.Find(&drafts)
	if len(drafts) != 1 || !drafts[0].Converted || drafts[0].OrderID == nil || *drafts[0].OrderID != order.ID {
		t.Fatalf("expected draft to be converted, got %+v", drafts)
	}

	if status, _ := env.do(t, http.MethodGet, base+"/state", nil); status != http.StatusNotFound {
		t.Fatalf("confirmed flow should be released, got %d", status)
	}
}

func TestCheckoutValidationAndVariantChoice(t *testing.T) {
	env := setupTestEnv(t, testConfig())
	base := "/api/checkout/attar/" + env.checkoutSectionID(t, "attar")

	status, body := env.do(t, http.MethodPost, base+"/start", nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on start, got %d", status)
	}
	if state := object(t, body, "flow")["state"]; state != "idle" {
		t.Fatalf("expected idle flow, got %v", state)
	}
	if variants, _ := body["variants"].([]any); len(variants) != 2 {
		t.Fatalf("out of stock variant must not be offered, got %v", body["variants"])
	}

	status, body = env.do(t, http.MethodPost, base+"/submit", nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	fields, _ := body["fields"].(map[string]any)
	for _, key := range []string{"variant", "name", "phone", "address"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected %q field error, got %v", key, fields)
		}
	}

	var soldOut, large db.ProductVariant
	env.db.Where("name = ?", "30ml").First(&soldOut)
	env.db.Where("name = ?", "12ml").First(&large)

	if status, _ := env.do(t, http.MethodPost, base+"/variant", map[string]any{"variantId": soldOut.ID}); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unavailable variant, got %d", status)
	}
	status, body = env.do(t, http.MethodPost, base+"/variant", map[string]any{"variantId": large.ID, "quantity": 3})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	flow := object(t, body, "flow")
	if flow["quantity"] != float64(3) || object(t, flow, "totals")["total"] != float64(2460) {
		t.Fatalf("unexpected flow after selection %v", flow)
	}

	if status, _ := env.do(t, http.MethodPost, base+"/fields", map[string]any{"zone": "abroad"}); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown zone, got %d", status)
	}
}

func TestCheckoutSubmitIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.SubmitRatePerMinute = 1
	env := setupTestEnv(t, cfg)
	base := "/api/checkout/eid-offer/" + env.checkoutSectionID(t, "eid-offer")

	env.do(t, http.MethodPost, base+"/start", nil)
	if status, _ := env.do(t, http.MethodPost, base+"/submit", nil); status != http.StatusUnprocessableEntity {
		t.Fatalf("expected validation failure first, got %d", status)
	}
	if status, _ := env.do(t, http.MethodPost, base+"/submit", nil); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
}

func TestLeaveCheckoutDropsPendingDraft(t *testing.T) {
	env := setupTestEnv(t, testConfig())
	base := "/api/checkout/eid-offer/" + env.checkoutSectionID(t, "eid-offer")

	env.do(t, http.MethodPost, base+"/start", nil)
	env.do(t, http.MethodPost, base+"/fields", map[string]any{"name": "Karim"})

	if status, _ := env.do(t, http.MethodDelete, base, nil); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	env.clock.fire()

	var count int64
	env.db.Model(&db.DraftOrder{}).Count(&count)
	if count != 0 {
		t.Fatalf("pending draft write must be cancelled on leave, found %d", count)
	}
	if status, _ := env.do(t, http.MethodGet, base+"/state", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after leaving, got %d", status)
	}
}

func TestStartCheckoutUnknownSection(t *testing.T) {
	env := setupTestEnv(t, testConfig())
	doc, _ := env.api.pages.GetPublishedBySlug("eid-offer")
	hero := doc.Ordered()[0].ID

	for _, path := range []string{"/api/checkout/missing/abc/start", "/api/checkout/eid-offer/" + hero + "/start"} {
		if status, _ := env.do(t, http.MethodPost, path, nil); status != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, status)
		}
	}
}

func TestVisitorLimiter(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	limiter := NewVisitorLimiter(2)
	limiter.now = func() time.Time { return now }
	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatal("expected burst of two")
	}
	if limiter.Allow("a") {
		t.Fatal("third attempt should be limited")
	}
	if !limiter.Allow("b") {
		t.Fatal("visitors are limited independently")
	}
	now = now.Add(10 * time.Second)
	if removed := limiter.Cleanup(time.Minute); removed != 0 {
		t.Fatalf("recent visitors must be kept, removed %d", removed)
	}
	now = now.Add(2 * time.Minute)
	if removed := limiter.Cleanup(time.Minute); removed != 2 {
		t.Fatalf("expected both visitors to be cleaned up, got %d", removed)
	}

	unlimited := NewVisitorLimiter(0)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow("a") {
			t.Fatal("zero rate disables limiting")
		}
	}
}
