package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/pricing"
)

var testVariants = []catalog.Variant{
	{ID: 11, ProductID: 1, ProductName: "Saree", Name: "Red", Price: 1000, Stock: 10},
	{ID: 12, ProductID: 1, ProductName: "Saree", Name: "Blue", Price: 1200, Stock: 10},
}

type recordingSubmitter struct {
	mu       sync.Mutex
	requests []Request
	results  []error
}

func (s *recordingSubmitter) SubmitOrder(_ context.Context, req Request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.results) > 0 {
		err := s.results[0]
		s.results = s.results[1:]
		if err != nil {
			return Result{}, err
		}
	}
	return Result{OrderID: uint(len(s.requests)), Number: "PC-1001"}, nil
}

func fillContact(t *testing.T, f *Flow) {
	t.Helper()
	if _, err := f.SetContact(Contact{Name: "Rahim", Phone: "+880 1712-345678", Address: "House 4, Road 2, Dhanmondi"}); err != nil {
		t.Fatalf("SetContact: %v", err)
	}
}

func TestFlowEndToEnd(t *testing.T) {
	submitter := &recordingSubmitter{}
	var confirmed Result
	f := NewFlow(Options{
		PageSlug:    "eid",
		SectionID:   "order",
		Variants:    testVariants,
		Rates:       pricing.NewRateTable(60, 120),
		Submitter:   submitter,
		OnConfirmed: func(_ context.Context, r Result) { confirmed = r },
	})
	if f.State() != StateIdle {
		t.Fatalf("expected idle with two variants, got %s", f.State())
	}

	snap, err := f.SelectVariant(11)
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	if snap.State != StateVariantChosen || snap.Totals.Total != 1060 {
		t.Fatalf("unexpected snapshot after select: %+v", snap)
	}
	if _, err := f.SetQuantity(2); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	snap, err = f.SetZone("outside_local")
	if err != nil {
		t.Fatalf("SetZone: %v", err)
	}
	if snap.State != StateFilling || snap.Totals.Total != 2120 {
		t.Fatalf("expected filling with total 2120, got %+v", snap)
	}
	fillContact(t, f)

	snap, err = f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.State != StateConfirmed || snap.Order == nil || snap.Order.Number != "PC-1001" {
		t.Fatalf("unexpected confirmed snapshot: %+v", snap)
	}
	if confirmed.OrderID != 1 {
		t.Fatalf("expected OnConfirmed to receive the result, got %+v", confirmed)
	}

	req := submitter.requests[0]
	if req.Totals.Total != 2120 || req.Zone != pricing.ZoneOutsideLocal {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Contact.Phone != "01712345678" {
		t.Fatalf("expected normalized phone, got %q", req.Contact.Phone)
	}
	if len(req.Items) != 1 || req.Items[0].VariantID != 11 || req.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", req.Items)
	}

	if _, err := f.SetQuantity(3); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after confirmation, got %v", err)
	}
}

func TestFlowAutoSelectsSingleVariant(t *testing.T) {
	f := NewFlow(Options{Variants: testVariants[:1], DefaultZone: pricing.ZoneOutsideLocal})
	snap := f.Snapshot()
	if snap.State != StateVariantChosen || snap.Variant == nil || snap.Variant.ID != 11 {
		t.Fatalf("expected auto selection, got %+v", snap)
	}
	if snap.Totals.Total != 1120 {
		t.Fatalf("expected 1120 with default rates, got %d", snap.Totals.Total)
	}
}

func TestFlowFreeDeliveryIgnoresZone(t *testing.T) {
	f := NewFlow(Options{Variants: testVariants[:1], FreeDelivery: true})
	for _, zone := range []string{"inside_local", "outside_local"} {
		snap, err := f.SetZone(zone)
		if err != nil {
			t.Fatalf("SetZone: %v", err)
		}
		if snap.Totals.Shipping != 0 || snap.Totals.Total != 1000 {
			t.Fatalf("zone %s: unexpected totals %+v", zone, snap.Totals)
		}
	}
}

func TestFlowValidationBlocksSubmit(t *testing.T) {
	submitter := &recordingSubmitter{}
	f := NewFlow(Options{Variants: testVariants, Submitter: submitter})
	if _, err := f.UpdateFields(FieldUpdate{Phone: strPtr("12345")}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	_, err := f.Submit(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"variant", "name", "phone", "address"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected %s to be reported, got %v", field, verr.Fields)
		}
	}
	if len(submitter.requests) != 0 {
		t.Fatal("invalid orders must never reach the order service")
	}
	if f.State() != StateFilling {
		t.Fatalf("validation failure must not change state, got %s", f.State())
	}
}

func TestFlowFailureThenResubmit(t *testing.T) {
	submitter := &recordingSubmitter{results: []error{errors.New("backend down"), nil}}
	f := NewFlow(Options{Variants: testVariants[:1], Submitter: submitter})
	fillContact(t, f)

	snap, err := f.Submit(context.Background())
	if err == nil {
		t.Fatal("expected first submission to fail")
	}
	if snap.State != StateFailed || snap.LastError != "backend down" {
		t.Fatalf("unexpected failed snapshot: %+v", snap)
	}
	if snap.Contact.Name != "Rahim" {
		t.Fatal("entered data must be preserved after failure")
	}

	snap, err = f.Submit(context.Background())
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if snap.State != StateConfirmed || snap.LastError != "" {
		t.Fatalf("unexpected snapshot after resubmit: %+v", snap)
	}
	if len(submitter.requests) != 2 {
		t.Fatalf("expected two calls, got %d", len(submitter.requests))
	}
}

func TestFlowEditAfterFailureReturnsToFilling(t *testing.T) {
	f := NewFlow(Options{Variants: testVariants[:1], Submitter: SubmitterFunc(func(context.Context, Request) (Result, error) {
		return Result{}, nil
	})})
	fillContact(t, f)

	_, err := f.Submit(context.Background())
	if !errors.Is(err, ErrNoOrderID) {
		t.Fatalf("expected ErrNoOrderID, got %v", err)
	}
	snap, err := f.UpdateFields(FieldUpdate{Address: strPtr("Flat 2B, Gulshan 1")})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if snap.State != StateFilling {
		t.Fatalf("expected filling after edit, got %s", snap.State)
	}
}

func TestFlowResultWithoutOrderIDFails(t *testing.T) {
	confirmed := false
	f := NewFlow(Options{
		Variants: testVariants[:1],
		Submitter: SubmitterFunc(func(context.Context, Request) (Result, error) {
			return Result{Number: "PC-X"}, nil
		}),
		OnConfirmed: func(context.Context, Result) { confirmed = true },
	})
	fillContact(t, f)

	snap, err := f.Submit(context.Background())
	if !errors.Is(err, ErrNoOrderID) {
		t.Fatalf("expected ErrNoOrderID, got %v", err)
	}
	if snap.State != StateFailed {
		t.Fatalf("expected failed state, got %s", snap.State)
	}
	if confirmed {
		t.Fatal("OnConfirmed must not run without an order id")
	}
}

func TestFlowConcurrentSubmitIsNoop(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	f := NewFlow(Options{Variants: testVariants[:1], Submitter: SubmitterFunc(func(context.Context, Request) (Result, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return Result{OrderID: 9, Number: "PC-9"}, nil
	})})
	fillContact(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.State() != StateSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("flow never entered submitting")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	if _, err := f.SetQuantity(4); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected edits to be rejected while submitting, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one call to the order service, got %d", got)
	}
}

func TestFlowAdjustments(t *testing.T) {
	plain := NewFlow(Options{Variants: testVariants[:1]})
	if _, err := plain.SetDiscount(100); !errors.Is(err, ErrNotAdjustable) {
		t.Fatalf("expected ErrNotAdjustable, got %v", err)
	}

	manual := NewFlow(Options{Source: SourceAdminManual, Variants: testVariants[:1], Adjustable: true})
	cases := []struct {
		name     string
		discount int64
		advance  int64
		want     int64
	}{
		{"discount and advance", 200, 300, 1000 - 200 + 60 - 300},
		{"negative inputs clamp", -50, -10, 1060},
		{"discount larger than subtotal", 5000, 0, 60},
		{"advance larger than total", 0, 5000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := manual.SetDiscount(tc.discount); err != nil {
				t.Fatalf("SetDiscount: %v", err)
			}
			snap, err := manual.SetAdvance(tc.advance)
			if err != nil {
				t.Fatalf("SetAdvance: %v", err)
			}
			if snap.Totals.Total != tc.want {
				t.Fatalf("expected %d, got %+v", tc.want, snap.Totals)
			}
		})
	}
}

func TestFlowRejectsInvalidEdits(t *testing.T) {
	f := NewFlow(Options{Variants: testVariants})
	if _, err := f.SelectVariant(99); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
	if _, err := f.SetQuantity(0); !errors.Is(err, pricing.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := f.SetZone("mars"); !errors.Is(err, pricing.ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone, got %v", err)
	}
	if f.State() != StateIdle {
		t.Fatalf("rejected edits must not change state, got %s", f.State())
	}
}

func TestFlowSelectResetsQuantity(t *testing.T) {
	f := NewFlow(Options{Variants: testVariants})
	f.SelectVariant(11)
	f.SetQuantity(5)
	snap, _ := f.SelectVariant(12)
	if snap.Quantity != 1 || snap.State != StateFilling {
		t.Fatalf("expected quantity reset while staying in filling, got %+v", snap)
	}
}

func TestFlowOnChangeReceivesEverySnapshot(t *testing.T) {
	var states []State
	f := NewFlow(Options{
		Variants:  testVariants[:1],
		Submitter: &recordingSubmitter{},
		OnChange:  func(s Snapshot) { states = append(states, s.State) },
	})
	fillContact(t, f)
	f.Submit(context.Background())

	want := []State{StateFilling, StateSubmitting, StateConfirmed}
	if len(states) != len(want) {
		t.Fatalf("expected %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, states)
		}
	}
}

func strPtr(s string) *string { return &s }
