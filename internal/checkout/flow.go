// Package checkout 实现嵌入在下单区块中的订单采集流程：
// 选择规格、填写联系方式、计价、提交以及失败后的重试。
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/logging"
	"github.com/pagecart/internal/metrics"
	"github.com/pagecart/internal/phone"
	"github.com/pagecart/internal/pricing"
	"github.com/rs/zerolog"
)

// State 是流程所处的阶段。
type State string

const (
	StateIdle          State = "idle"
	StateVariantChosen State = "variant_chosen"
	StateFilling       State = "filling"
	StateSubmitting    State = "submitting"
	StateConfirmed     State = "confirmed"
	StateFailed        State = "failed"
)

// 订单来源。
const (
	SourceLandingPage = "landing_page"
	SourceAdminManual = "admin_manual"
)

var (
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrClosed           = errors.New("order already confirmed")
	ErrUnknownVariant   = errors.New("variant is not available in this section")
	ErrNotAdjustable    = errors.New("discount and advance are not available here")
	ErrNoOrderID        = errors.New("order service returned no identifier")
)

// Contact 是收货联系人。
type Contact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// FieldUpdate 是对联系人的部分更新，nil 表示不修改。
type FieldUpdate struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// Line 是提交给下单服务的一行商品。
type Line struct {
	ProductID uint   `json:"productId"`
	VariantID uint   `json:"variantId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// Request 是一次下单请求。
type Request struct {
	Source       string         `json:"source"`
	PageSlug     string         `json:"pageSlug,omitempty"`
	SectionID    string         `json:"sectionId,omitempty"`
	Zone         pricing.Zone   `json:"zone"`
	Items        []Line         `json:"items"`
	Contact      Contact        `json:"contact"`
	FreeDelivery bool           `json:"freeDelivery"`
	Discount     int64          `json:"discount"`
	Advance      int64          `json:"advance"`
	Totals       pricing.Totals `json:"totals"`
}

// Result 是下单服务返回的订单标识与面向顾客的订单号。
type Result struct {
	OrderID uint   `json:"orderId"`
	Number  string `json:"orderNumber"`
}

// Submitter 是外部下单服务。调用可以安全重试。
type Submitter interface {
	SubmitOrder(ctx context.Context, req Request) (Result, error)
}

// SubmitterFunc 让普通函数实现 Submitter。
type SubmitterFunc func(ctx context.Context, req Request) (Result, error)

func (f SubmitterFunc) SubmitOrder(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Snapshot 是流程在某一时刻的只读副本，用于展示与草稿保存。
type Snapshot struct {
	State        State            `json:"state"`
	Source       string           `json:"source"`
	PageSlug     string           `json:"pageSlug,omitempty"`
	SectionID    string           `json:"sectionId,omitempty"`
	Variant      *catalog.Variant `json:"variant,omitempty"`
	Quantity     int              `json:"quantity"`
	Zone         pricing.Zone     `json:"zone"`
	Contact      Contact          `json:"contact"`
	FreeDelivery bool             `json:"freeDelivery"`
	Adjustable   bool             `json:"adjustable"`
	Discount     int64            `json:"discount"`
	Advance      int64            `json:"advance"`
	Totals       pricing.Totals   `json:"totals"`
	LastError    string           `json:"lastError,omitempty"`
	Order        *Result          `json:"order,omitempty"`
}

// Options 配置一个流程实例。
type Options struct {
	Source       string
	PageSlug     string
	SectionID    string
	Variants     []catalog.Variant
	Rates        pricing.RateTable
	FreeDelivery bool
	DefaultZone  pricing.Zone
	// Adjustable 打开优惠与预付字段，仅供后台手工下单使用。
	Adjustable bool
	Submitter  Submitter
	// OnChange 在每次状态变化后、锁外调用。
	OnChange func(Snapshot)
	// OnConfirmed 在下单成功后调用，一般用于把草稿标记为已转换。
	OnConfirmed func(ctx context.Context, result Result)
	Logger      *zerolog.Logger
}

// Flow 是单个访客在单个下单区块中的采集状态。所有方法都可以并发调用。
type Flow struct {
	mu sync.Mutex

	opts     Options
	variants map[uint]catalog.Variant
	logger   zerolog.Logger

	state     State
	variant   *catalog.Variant
	quantity  int
	zone      pricing.Zone
	contact   Contact
	discount  int64
	advance   int64
	totals    pricing.Totals
	lastError string
	result    *Result
}

// NewFlow 创建流程。Variants 只应包含可购买的规格，只有一个时会自动选中它。
func NewFlow(opts Options) *Flow {
	if opts.Rates == nil {
		opts.Rates = pricing.DefaultRates()
	}
	if opts.Source == "" {
		opts.Source = SourceLandingPage
	}
	zone := opts.DefaultZone
	if _, err := opts.Rates.Rate(zone); err != nil {
		zone = pricing.ZoneInsideLocal
	}

	f := &Flow{
		opts:     opts,
		variants: make(map[uint]catalog.Variant, len(opts.Variants)),
		state:    StateIdle,
		quantity: 1,
		zone:     zone,
		logger:   logging.For("checkout"),
	}
	if opts.Logger != nil {
		f.logger = *opts.Logger
	}
	for _, v := range opts.Variants {
		f.variants[v.ID] = v
	}

	if len(opts.Variants) == 1 {
		v := opts.Variants[0]
		f.variant = &v
		f.state = StateVariantChosen
		f.recompute()
	}
	return f
}

// State 返回当前阶段。
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot 返回当前状态的副本。
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// SelectVariant 选择规格并把数量重置为 1。
func (f *Flow) SelectVariant(id uint) (Snapshot, error) {
	return f.mutate(func() error {
		v, ok := f.variants[id]
		if !ok {
			return ErrUnknownVariant
		}
		f.variant = &v
		f.quantity = 1
		switch f.state {
		case StateIdle:
			f.state = StateVariantChosen
		case StateFailed:
			f.state = StateFilling
		}
		return nil
	})
}

// SetQuantity 修改数量，数量必须不小于 1。
func (f *Flow) SetQuantity(quantity int) (Snapshot, error) {
	return f.mutate(func() error {
		if quantity < 1 {
			return pricing.ErrInvalidQuantity
		}
		f.quantity = quantity
		f.state = StateFilling
		return nil
	})
}

// SetZone 修改运费档位。
func (f *Flow) SetZone(raw string) (Snapshot, error) {
	return f.mutate(func() error {
		zone, err := pricing.ParseZone(raw)
		if err != nil {
			return err
		}
		if _, err := f.opts.Rates.Rate(zone); err != nil {
			return err
		}
		f.zone = zone
		f.state = StateFilling
		return nil
	})
}

// UpdateFields 部分更新联系人信息。
func (f *Flow) UpdateFields(update FieldUpdate) (Snapshot, error) {
	return f.mutate(func() error {
		if update.Name != nil {
			f.contact.Name = *update.Name
		}
		if update.Phone != nil {
			f.contact.Phone = *update.Phone
		}
		if update.Address != nil {
			f.contact.Address = *update.Address
		}
		f.state = StateFilling
		return nil
	})
}

// SetContact 一次性覆盖联系人信息。
func (f *Flow) SetContact(contact Contact) (Snapshot, error) {
	return f.UpdateFields(FieldUpdate{Name: &contact.Name, Phone: &contact.Phone, Address: &contact.Address})
}

// SetDiscount 设置优惠金额，负数按 0 计。
func (f *Flow) SetDiscount(amount int64) (Snapshot, error) {
	return f.mutate(func() error {
		if !f.opts.Adjustable {
			return ErrNotAdjustable
		}
		f.discount = amount
		f.state = StateFilling
		return nil
	})
}

// SetAdvance 设置预付金额，负数按 0 计。
func (f *Flow) SetAdvance(amount int64) (Snapshot, error) {
	return f.mutate(func() error {
		if !f.opts.Adjustable {
			return ErrNotAdjustable
		}
		f.advance = amount
		f.state = StateFilling
		return nil
	})
}

// Submit 校验后调用下单服务。提交进行中再次调用返回 ErrSubmitInProgress 且不做任何事；
// 失败后保留已填写的数据，可以无限次重试。
func (f *Flow) Submit(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	switch f.state {
	case StateConfirmed:
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrClosed
	case StateSubmitting:
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrSubmitInProgress
	}

	req, err := f.requestLocked()
	if err != nil {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, err
	}
	f.state = StateSubmitting
	f.lastError = ""
	submitting := f.snapshotLocked()
	f.mu.Unlock()
	f.notify(submitting)

	result, err := f.call(ctx, req)

	f.mu.Lock()
	if err != nil {
		f.state = StateFailed
		f.lastError = err.Error()
		snap := f.snapshotLocked()
		f.mu.Unlock()

		f.logger.Warn().Err(err).Str("source", req.Source).Str("section_id", req.SectionID).Msg("order submission failed")
		metrics.RecordOrderSubmission(req.Source, false)
		f.notify(snap)
		return snap, err
	}
	f.state = StateConfirmed
	f.result = &result
	snap := f.snapshotLocked()
	f.mu.Unlock()

	metrics.RecordOrderSubmission(req.Source, true)
	f.notify(snap)
	if f.opts.OnConfirmed != nil {
		f.opts.OnConfirmed(ctx, result)
	}
	return snap, nil
}

func (f *Flow) call(ctx context.Context, req Request) (Result, error) {
	if f.opts.Submitter == nil {
		return Result{}, ErrNoOrderID
	}
	result, err := f.opts.Submitter.SubmitOrder(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if result.OrderID == 0 {
		return Result{}, ErrNoOrderID
	}
	return result, nil
}

// mutate 执行一次编辑。提交中与已确认的流程拒绝编辑。
func (f *Flow) mutate(apply func() error) (Snapshot, error) {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrSubmitInProgress
	case StateConfirmed:
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrClosed
	}
	if err := apply(); err != nil {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, err
	}
	f.recompute()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(snap)
	return snap, nil
}

func (f *Flow) notify(snap Snapshot) {
	if f.opts.OnChange != nil {
		f.opts.OnChange(snap)
	}
}

func (f *Flow) recompute() {
	if f.variant == nil {
		f.totals = pricing.Totals{}
		return
	}
	totals, err := f.opts.Rates.Calculate(f.quote())
	if err != nil {
		f.logger.Debug().Err(err).Msg("price calculation skipped")
		return
	}
	f.totals = totals
}

func (f *Flow) quote() pricing.Quote {
	q := pricing.Quote{
		UnitPrice:    f.variant.Price,
		Quantity:     f.quantity,
		Zone:         f.zone,
		FreeDelivery: f.opts.FreeDelivery,
	}
	if f.opts.Adjustable {
		q.Discount = f.discount
		q.Advance = f.advance
	}
	return q
}

func (f *Flow) requestLocked() (Request, error) {
	if verr := f.validateLocked(); verr != nil {
		return Request{}, verr
	}
	normalized, _ := phone.Normalize(f.contact.Phone)
	totals, err := f.opts.Rates.Calculate(f.quote())
	if err != nil {
		return Request{}, err
	}
	f.totals = totals

	req := Request{
		Source:    f.opts.Source,
		PageSlug:  f.opts.PageSlug,
		SectionID: f.opts.SectionID,
		Zone:      f.zone,
		Items: []Line{{
			ProductID: f.variant.ProductID,
			VariantID: f.variant.ID,
			Name:      f.variant.Label(),
			UnitPrice: f.variant.Price,
			Quantity:  f.quantity,
		}},
		Contact: Contact{
			Name:    strings.TrimSpace(f.contact.Name),
			Phone:   normalized,
			Address: strings.TrimSpace(f.contact.Address),
		},
		FreeDelivery: f.opts.FreeDelivery,
		Totals:       totals,
	}
	if f.opts.Adjustable {
		req.Discount = totals.Discount
		req.Advance = totals.Advance
	}
	return req, nil
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        f.state,
		Source:       f.opts.Source,
		PageSlug:     f.opts.PageSlug,
		SectionID:    f.opts.SectionID,
		Quantity:     f.quantity,
		Zone:         f.zone,
		Contact:      f.contact,
		FreeDelivery: f.opts.FreeDelivery,
		Adjustable:   f.opts.Adjustable,
		Discount:     f.discount,
		Advance:      f.advance,
		Totals:       f.totals,
		LastError:    f.lastError,
	}
	if f.variant != nil {
		v := *f.variant
		snap.Variant = &v
	}
	if f.result != nil {
		r := *f.result
		snap.Order = &r
	}
	return snap
}
