package validate

import (
	"regexp"
	"strings"

	"diagflow/internal/actor"
	"diagflow/internal/cart"
	"diagflow/internal/catalog"
	"diagflow/internal/order"
	"diagflow/internal/payment"
)

// Step names used for batches and reports.
const (
	StepLogin      = "login"
	StepCart       = "cart"
	StepSlotAttach = "slot_attach"
	StepOrder      = "order"
	StepPayment    = "payment"
)

const (
	orderCreatedMsg = "Order Created Successfully"
	orderCurrency   = "INR"
)

var tenDigits = regexp.MustCompile(`^\d{10}$`)

// Login checks the stored session against the mobile that was logged in.
func Login(st actor.State, mobile string) *Batch {
	return NewBatch(StepLogin).
		That("token", st.Token != "", "non-empty", st.Token != "").
		Check("mobile", mobile, st.Mobile).
		That("userId", st.UserID != "", "non-empty", st.UserID)
}

// Cart checks the backend's cart against the submitted payload and the
// catalog items the lines were built from.
func Cart(payload cart.Payload, got *cart.Cart, items []catalog.Item) *Batch {
	b := NewBatch(StepCart)
	if got.UserID != "" {
		b.Check("user_id", payload.UserID, got.UserID)
	}
	byID := make(map[string]catalog.Item, len(items))
	for _, it := range items {
		byID[it.InternalID] = it
	}
	lines := make(map[string]cart.Line, len(got.Lines))
	for _, l := range got.Lines {
		lines[l.ProductID] = l
	}

	for _, sent := range payload.LineItems {
		prefix := "product[" + sent.ProductID + "]"
		line, ok := lines[sent.ProductID]
		b.That(prefix+".present", ok, "in cart", ok)
		if !ok {
			continue
		}
		b.Check(prefix+".quantity", sent.Quantity, line.Quantity)
		if line.BrandID != "" {
			b.Check(prefix+".brand_id", sent.BrandID, line.BrandID)
		}
		if line.LocationID != "" {
			b.Check(prefix+".location_id", sent.LocationID, line.LocationID)
		}
		if it, ok := byID[sent.ProductID]; ok {
			b.Check(prefix+".price", it.Price, line.Price)
			b.Check(prefix+".status", catalog.StatusActive, it.Status)
			if line.TestName != "" {
				b.That(prefix+".test_name", strings.EqualFold(it.Name, line.TestName), it.Name, line.TestName)
			}
		}
	}
	return b
}

// SlotAttach checks the cart echoes the slot that was attached.
func SlotAttach(sent string, got *cart.Cart) *Batch {
	return NewBatch(StepSlotAttach).
		Check("slot_guid", sent, got.SlotGUID)
}

// Order checks a created order for well-formedness and against the persona's
// recorded identity. The gateway may book a different slot than the one
// resolved earlier, so only the presence of notes.slot_guid is checked.
func Order(o order.Order, st actor.State) *Batch {
	return NewBatch(StepOrder).
		Check("msg", orderCreatedMsg, o.Message).
		That("id", strings.HasPrefix(o.ID, "order_"), "prefix order_", o.ID).
		That("amount", o.Amount > 0, "> 0", o.Amount).
		Check("amount_due", o.Amount, o.AmountDue).
		Check("status", "created", o.Status).
		Check("currency", orderCurrency, o.Currency).
		That("key_id", strings.HasPrefix(o.KeyID, "rzp_"), "prefix rzp_", o.KeyID).
		That("mobile", tenDigits.MatchString(o.Mobile), "10 digits", o.Mobile).
		Check("mobile", st.Mobile, o.Mobile).
		That("notes", o.Notes.Present, "present", o.Notes.Present).
		Check("notes.user_id", st.UserID, o.Notes.UserID).
		Check("notes.mobile", o.Mobile, o.Notes.Mobile).
		That("notes.slot_guid", o.Notes.SlotGUID != "", "present", o.Notes.SlotGUID)
}

// Payment checks what the backend reported after verification. A missing
// backend order id is logged by the caller, not failed here.
func Payment(v payment.Verification) *Batch {
	b := NewBatch(StepPayment).
		That("msg", strings.TrimSpace(v.Message) != "", "non-empty", v.Message)
	if v.EchoedPaymentID != "" {
		b.Check("payment_id", v.Attempt.PaymentID, v.EchoedPaymentID)
	}
	if v.MembershipOrder {
		b.That("membership_price", v.MembershipPrice > 0, "> 0", v.MembershipPrice)
	}
	return b
}
