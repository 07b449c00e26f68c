package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pagecart/internal/autosave"
	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/checkout"
	"github.com/pagecart/internal/pricing"
	"github.com/pagecart/internal/section"
	"github.com/pagecart/internal/service"
)

var errNotCheckoutSection = errors.New("section does not accept orders")

// StartCheckout 为访客在某个下单区块创建（或恢复）下单流程，并挂上草稿自动保存。
func (a *API) StartCheckout(c *gin.Context) {
	visitor, err := ensureVisitorID(c)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not start a session")
		return
	}
	key := checkout.Key{Visitor: visitor, PageSlug: c.Param("slug"), SectionID: c.Param("sectionID")}

	settings, err := a.checkoutSettings(key)
	var variants []catalog.Variant
	if err == nil {
		variants, err = a.purchasable(c.Request.Context(), settings.ProductIDs)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPageNotFound), errors.Is(err, errNotCheckoutSection):
			respondError(c, http.StatusNotFound, "this order form is not available")
		default:
			a.logger.Error().Err(err).Str("slug", key.PageSlug).Str("section_id", key.SectionID).Msg("start checkout")
			respondError(c, http.StatusInternalServerError, "could not load the order form")
		}
		return
	}

	flow, created, _ := a.flows.GetOrCreate(key, func() (*checkout.Flow, func(), error) {
		flow, teardown := a.newLandingFlow(key, settings, variants)
		return flow, teardown, nil
	})

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"flow": flow.Snapshot(), "variants": variants})
}

// SelectCheckoutVariant 选择规格，可同时指定数量。
func (a *API) SelectCheckoutVariant(c *gin.Context) {
	var payload struct {
		VariantID uint `json:"variantId" binding:"required"`
		Quantity  *int `json:"quantity"`
	}
	if !bindJSON(c, &payload, "please choose a product") {
		return
	}
	flow, ok := a.currentFlow(c)
	if !ok {
		return
	}
	snap, err := flow.SelectVariant(payload.VariantID)
	if err == nil && payload.Quantity != nil {
		snap, err = flow.SetQuantity(*payload.Quantity)
	}
	if err != nil {
		respondFlowError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": snap})
}

type checkoutFieldsPayload struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Zone     *string `json:"zone"`
	Quantity *int    `json:"quantity"`
}

// UpdateCheckoutFields 部分更新联系人、运费档位与数量。
func (a *API) UpdateCheckoutFields(c *gin.Context) {
	var payload checkoutFieldsPayload
	if !bindJSON(c, &payload, "invalid form data") {
		return
	}
	flow, ok := a.currentFlow(c)
	if !ok {
		return
	}

	snap := flow.Snapshot()
	var err error
	if payload.Name != nil || payload.Phone != nil || payload.Address != nil {
		snap, err = flow.UpdateFields(checkout.FieldUpdate{Name: payload.Name, Phone: payload.Phone, Address: payload.Address})
	}
	if err == nil && payload.Zone != nil {
		snap, err = flow.SetZone(*payload.Zone)
	}
	if err == nil && payload.Quantity != nil {
		snap, err = flow.SetQuantity(*payload.Quantity)
	}
	if err != nil {
		respondFlowError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": snap})
}

// SubmitCheckout 提交订单。成功后流程结束并从内存中移除。
func (a *API) SubmitCheckout(c *gin.Context) {
	flow, ok := a.currentFlow(c)
	if !ok {
		return
	}
	snap, err := flow.Submit(c.Request.Context())
	if err != nil {
		respondFlowError(c, snap, err)
		return
	}
	a.flows.Discard(a.flowKey(c))
	c.JSON(http.StatusCreated, gin.H{"flow": snap, "order": snap.Order})
}

// GetCheckoutState 返回当前流程快照。
func (a *API) GetCheckoutState(c *gin.Context) {
	flow, ok := a.currentFlow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": flow.Snapshot()})
}

// LeaveCheckout 在访客离开时结束流程，未写入的草稿不再保存。
func (a *API) LeaveCheckout(c *gin.Context) {
	a.flows.Discard(a.flowKey(c))
	c.Status(http.StatusNoContent)
}

func (a *API) flowKey(c *gin.Context) checkout.Key {
	return checkout.Key{Visitor: visitorID(c), PageSlug: c.Param("slug"), SectionID: c.Param("sectionID")}
}

func (a *API) currentFlow(c *gin.Context) (*checkout.Flow, bool) {
	key := a.flowKey(c)
	if key.Visitor == "" {
		respondError(c, http.StatusNotFound, "please open the order form first")
		return nil, false
	}
	flow, ok := a.flows.Get(key)
	if !ok {
		respondError(c, http.StatusNotFound, "please open the order form first")
		return nil, false
	}
	return flow, true
}

// checkoutSettings 读取已发布页面中指定下单区块的配置。
func (a *API) checkoutSettings(key checkout.Key) (*section.CheckoutFormSettings, error) {
	doc, err := a.pages.GetPublishedBySlug(key.PageSlug)
	if err != nil {
		return nil, err
	}
	s, ok := doc.Find(key.SectionID)
	if !ok {
		return nil, errNotCheckoutSection
	}
	settings, ok := s.Settings.(*section.CheckoutFormSettings)
	if !ok {
		return nil, errNotCheckoutSection
	}
	return settings, nil
}

// purchasable 返回区块引用商品中有库存的规格，顺序与渲染一致。
func (a *API) purchasable(ctx context.Context, productIDs []uint) ([]catalog.Variant, error) {
	byProduct, err := a.catalog.Variants(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	var out []catalog.Variant
	for _, v := range catalog.Flatten(byProduct, productIDs) {
		if v.Stock > 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

func (a *API) newLandingFlow(key checkout.Key, settings *section.CheckoutFormSettings, variants []catalog.Variant) (*checkout.Flow, func()) {
	saver := autosave.NewSaver(a.drafts, key.Visitor, a.draftWindow, a.clock)
	flow := checkout.NewFlow(checkout.Options{
		Source:       checkout.SourceLandingPage,
		PageSlug:     key.PageSlug,
		SectionID:    key.SectionID,
		Variants:     variants,
		Rates:        a.rates,
		FreeDelivery: settings.FreeDelivery,
		DefaultZone:  pricing.Zone(settings.DefaultZone),
		Submitter:    a.orders,
		OnChange: func(snap checkout.Snapshot) {
			if snap.State == checkout.StateSubmitting || snap.State == checkout.StateConfirmed {
				return
			}
			saver.Observe(key.PageSlug, key.SectionID, snap)
		},
		OnConfirmed: func(ctx context.Context, result checkout.Result) {
			// 草稿转换失败不影响已经成功的订单。
			_ = saver.Convert(context.WithoutCancel(ctx), result.OrderID)
		},
	})
	return flow, func() { _ = saver.Close() }
}
