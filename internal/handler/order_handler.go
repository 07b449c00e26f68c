package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/checkout"
	"github.com/pagecart/internal/phone"
	"github.com/pagecart/internal/pricing"
	"github.com/pagecart/internal/service"
)

type quotePayload struct {
	VariantID    uint   `json:"variantId" binding:"required"`
	Quantity     int    `json:"quantity"`
	Zone         string `json:"zone"`
	FreeDelivery bool   `json:"freeDelivery"`
	Discount     int64  `json:"discount"`
	Advance      int64  `json:"advance"`
}

type manualOrderPayload struct {
	quotePayload
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// QuoteOrder 计算手工订单的金额，不落库。
func (a *API) QuoteOrder(c *gin.Context) {
	var payload quotePayload
	if !bindJSON(c, &payload, "请选择商品规格") {
		return
	}
	variant, err := a.catalog.Variant(c.Request.Context(), payload.VariantID)
	if err != nil {
		a.respondOrderError(c, err)
		return
	}
	zone := pricing.ZoneInsideLocal
	if payload.Zone != "" {
		zone, err = pricing.ParseZone(payload.Zone)
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "未知的配送区域")
		return
	}
	totals, err := a.rates.Calculate(pricing.Quote{
		UnitPrice:    variant.Price,
		Quantity:     quantityOrOne(payload.Quantity),
		Zone:         zone,
		FreeDelivery: payload.FreeDelivery,
		Discount:     payload.Discount,
		Advance:      payload.Advance,
	})
	if err != nil {
		a.respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variant": variant, "totals": totals})
}

// CreateManualOrder 后台录入电话订单：走可调整优惠与预付的下单流程，并附带快递历史风险评估。
func (a *API) CreateManualOrder(c *gin.Context) {
	var payload manualOrderPayload
	if !bindJSON(c, &payload, "订单参数无效") {
		return
	}
	ctx := c.Request.Context()
	variant, err := a.catalog.Variant(ctx, payload.VariantID)
	if err != nil {
		a.respondOrderError(c, err)
		return
	}

	flow := checkout.NewFlow(checkout.Options{
		Source:       checkout.SourceAdminManual,
		Variants:     []catalog.Variant{variant},
		Rates:        a.rates,
		FreeDelivery: payload.FreeDelivery,
		DefaultZone:  pricing.Zone(payload.Zone),
		Adjustable:   true,
		Submitter:    a.orders,
	})
	snap, err := applyManualOrder(flow, payload)
	if err != nil {
		a.respondManualOrderError(c, snap, err)
		return
	}

	assessment := a.courier.Assess(ctx, payload.Phone)

	snap, err = flow.Submit(ctx)
	if err != nil {
		a.respondManualOrderError(c, snap, err)
		return
	}
	if assessment.Available && snap.Order != nil {
		if err := a.orders.AnnotateRisk(ctx, snap.Order.OrderID, string(assessment.Band)); err != nil {
			a.logger.Warn().Err(err).Uint("order_id", snap.Order.OrderID).Msg("annotate order risk")
		}
	}
	c.JSON(http.StatusCreated, gin.H{"order": snap.Order, "flow": snap, "risk": assessment})
}

// 后台字段提示，键与 checkout.ValidationError 的字段名一致
var manualOrderFieldMessages = map[string]string{
	"variant":  "请选择商品规格",
	"quantity": "数量至少为 1",
	"name":     "请填写收货人姓名",
	"phone":    "请输入有效的 11 位手机号",
	"address":  "请填写完整的收货地址",
}

// respondManualOrderError 与 respondFlowError 对应，面向后台使用中文提示。
func (a *API) respondManualOrderError(c *gin.Context, snap checkout.Snapshot, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Fields))
		for key, msg := range verr.Fields {
			if zh, ok := manualOrderFieldMessages[key]; ok {
				msg = zh
			}
			fields[key] = msg
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "请检查标记的字段", "fields": fields, "flow": snap})
	case errors.Is(err, pricing.ErrUnknownZone):
		respondError(c, http.StatusBadRequest, "未知的配送区域")
	case errors.Is(err, pricing.ErrInvalidQuantity):
		respondError(c, http.StatusBadRequest, "数量至少为 1")
	case errors.Is(err, checkout.ErrSubmitInProgress), errors.Is(err, checkout.ErrClosed):
		respondError(c, http.StatusConflict, "订单已提交")
	case snap.State == checkout.StateFailed:
		a.logger.Error().Err(err).Msg("manual order submission")
		c.JSON(http.StatusBadGateway, gin.H{"error": "下单失败，请重试", "flow": snap})
	default:
		a.logger.Warn().Err(err).Msg("manual order rejected")
		respondError(c, http.StatusBadRequest, "订单参数无效")
	}
}

func applyManualOrder(flow *checkout.Flow, payload manualOrderPayload) (checkout.Snapshot, error) {
	steps := []func() (checkout.Snapshot, error){
		func() (checkout.Snapshot, error) { return flow.SetQuantity(quantityOrOne(payload.Quantity)) },
		func() (checkout.Snapshot, error) {
			if payload.Zone == "" {
				return flow.Snapshot(), nil
			}
			return flow.SetZone(payload.Zone)
		},
		func() (checkout.Snapshot, error) {
			return flow.SetContact(checkout.Contact{Name: payload.Name, Phone: payload.Phone, Address: payload.Address})
		},
		func() (checkout.Snapshot, error) { return flow.SetDiscount(payload.Discount) },
		func() (checkout.Snapshot, error) { return flow.SetAdvance(payload.Advance) },
	}
	var snap checkout.Snapshot
	for _, step := range steps {
		var err error
		if snap, err = step(); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func quantityOrOne(q int) int {
	if q == 0 {
		return 1
	}
	return q
}

// CourierLookup 查询手机号的快递历史与风险等级。
func (a *API) CourierLookup(c *gin.Context) {
	raw := c.Param("phone")
	if !phone.Valid(raw) {
		respondError(c, http.StatusBadRequest, "请输入有效的 11 位手机号")
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": a.courier.Assess(c.Request.Context(), raw), "thresholds": a.courier.Thresholds()})
}

// ListOrders 返回最近的订单。
func (a *API) ListOrders(c *gin.Context) {
	orders, err := a.orders.Recent(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取订单列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder 返回订单详情。
func (a *API) GetOrder(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的订单ID")
		return
	}
	order, err := a.orders.Get(c.Request.Context(), id)
	if err != nil {
		a.respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListDrafts 返回未转换的草稿，便于跟进未完成的订单。
func (a *API) ListDrafts(c *gin.Context) {
	drafts, err := a.drafts.ListOpen(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取草稿失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// ListVariants 返回指定商品的在售规格，供编辑器选择商品。
func (a *API) ListVariants(c *gin.Context) {
	ids := parseUintQuerySlice(c.QueryArray("productId"))
	byProduct, err := a.catalog.Variants(c.Request.Context(), ids)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取商品规格失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": byProduct})
}

// ImportSeed 导入 YAML 格式的商品与页面种子。
func (a *API) ImportSeed(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil || len(raw) == 0 {
		respondError(c, http.StatusBadRequest, "请提供 YAML 内容")
		return
	}
	result, err := a.pages.ImportSeed(c.Request.Context(), raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "导入失败", "detail": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (a *API) respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVariantUnavailable):
		respondError(c, http.StatusNotFound, "商品规格不存在或已下架")
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, http.StatusNotFound, "订单不存在")
	case errors.Is(err, pricing.ErrInvalidQuantity):
		respondError(c, http.StatusBadRequest, "数量至少为 1")
	case errors.Is(err, pricing.ErrUnknownZone):
		respondError(c, http.StatusBadRequest, "未知的配送区域")
	default:
		a.logger.Error().Err(err).Msg("order request")
		respondError(c, http.StatusInternalServerError, "处理订单失败")
	}
}
