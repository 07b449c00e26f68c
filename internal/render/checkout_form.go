package render

import (
	"strconv"
	"strings"

	"github.com/pagecart/internal/catalog"
	"github.com/pagecart/internal/pricing"
	"github.com/pagecart/internal/section"
)

// renderCheckoutForm 输出下单表单的初始视图。交互状态由 checkout API 持有，
// 表单通过 data-checkout-endpoint 找到属于自己的那个流程。
func renderCheckoutForm(ctx *Context, s section.Section, st *section.CheckoutFormSettings) *Node {
	variants := catalog.Flatten(ctx.Env.Variants, st.ProductIDs)
	node := el("div", "checkout", textIf("h2", "section-title", st.Title)).attr("id", "order")

	if len(variants) == 0 {
		return node.append(text("p", "checkout-unavailable", "No products are available right now."))
	}

	zone, err := pricing.ParseZone(st.DefaultZone)
	if err != nil {
		zone = pricing.ZoneInsideLocal
	}

	form := el("form", "checkout-form").
		attr("method", "post").
		attr("data-section-id", s.ID).
		attr("data-free-delivery", strconv.FormatBool(st.FreeDelivery))
	if base := strings.TrimRight(ctx.Env.CheckoutBase, "/"); base != "" {
		form.attr("data-checkout-endpoint", base+"/"+s.ID)
	}
	if msg := strings.TrimSpace(st.SuccessMessage); msg != "" {
		form.attr("data-success-message", msg)
	}

	options := el("fieldset", "checkout-variants", text("legend", "", "Choose a package"))
	for _, v := range variants {
		input := el("input", "variant-input").
			attr("type", "radio").
			attr("name", "variantId").
			attr("value", strconv.FormatUint(uint64(v.ID), 10)).
			attr("data-price", strconv.FormatInt(v.Price, 10))
		if len(variants) == 1 {
			input.attr("checked", "checked")
		}
		if v.Stock <= 0 {
			input.attr("disabled", "disabled")
		}
		options.append(el("label", "variant-option", input, text("span", "variant-label", v.Label()), priceNode(v)))
	}
	form.append(options)

	if st.ShowQuantity {
		form.append(el("label", "checkout-quantity",
			text("span", "", "Quantity"),
			el("input", "").attr("type", "number").attr("name", "quantity").attr("min", "1").attr("value", "1"),
		))
	} else {
		form.append(el("input", "").attr("type", "hidden").attr("name", "quantity").attr("value", "1"))
	}

	form.append(zoneSelect(ctx.Env.Rates, zone, st))

	form.append(
		field("name", "Your name", "text", "name"),
		field("phone", "Mobile number", "tel", "tel"),
		field("address", "Full address", "text", "street-address"),
	)

	if len(variants) == 1 {
		if totals, err := ctx.Env.Rates.Calculate(pricing.Quote{
			UnitPrice:    variants[0].Price,
			Quantity:     1,
			Zone:         zone,
			FreeDelivery: st.FreeDelivery,
		}); err == nil {
			form.append(totalsNode(totals))
		}
	}

	label := st.ButtonText
	if strings.TrimSpace(label) == "" {
		label = "Confirm order"
	}
	form.append(text("button", "button checkout-submit", label).attr("type", "submit"))
	form.append(text("p", "checkout-payment", "Cash on delivery"))
	return node.append(form)
}

func zoneSelect(rates pricing.RateTable, selected pricing.Zone, st *section.CheckoutFormSettings) *Node {
	sel := el("select", "checkout-zone").attr("name", "zone")
	for _, zone := range pricing.Zones() {
		label := st.InsideLabel
		if zone == pricing.ZoneOutsideLocal {
			label = st.OutsideLabel
		}
		if strings.TrimSpace(label) == "" {
			label = string(zone)
		}
		rate, err := rates.Rate(zone)
		if err != nil {
			continue
		}
		price := formatMoney(rate)
		if st.FreeDelivery {
			price = "Free"
		}
		opt := text("option", "", label+" ("+price+")").
			attr("value", string(zone)).
			attr("data-rate", strconv.FormatInt(rate, 10))
		if zone == selected {
			opt.attr("selected", "selected")
		}
		sel.append(opt)
	}
	return el("label", "checkout-zone-field", text("span", "", "Delivery area"), sel)
}

func field(name, label, inputType, autocomplete string) *Node {
	return el("label", "checkout-field checkout-"+name,
		text("span", "", label),
		el("input", "").
			attr("type", inputType).
			attr("name", name).
			attr("required", "required").
			attr("autocomplete", autocomplete),
	)
}

func totalsNode(t pricing.Totals) *Node {
	row := func(class, label string, amount int64) *Node {
		return el("div", "checkout-row "+class,
			text("span", "", label),
			text("strong", "", formatMoney(amount)).attr("data-amount", strconv.FormatInt(amount, 10)),
		)
	}
	return el("div", "checkout-totals",
		row("checkout-subtotal", "Subtotal", t.Subtotal),
		row("checkout-shipping", "Delivery", t.Shipping),
		row("checkout-total", "Total", t.Total),
	)
}
