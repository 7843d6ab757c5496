package fakebackend

import (
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"diagflow/internal/payment"
	"diagflow/internal/platform/middleware"
	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/platform/httputil"
	"diagflow/pkg/platform/sentinel"
)

const dateLayout = "2006-01-02"

var tenDigits = regexp.MustCompile(`^\d{10}$`)

func forbidden(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusForbidden, httputil.Envelope{Success: false, Error: "forbidden", Msg: msg})
}

// sameUser rejects requests acting on another user's data.
func sameUser(w http.ResponseWriter, r *http.Request, userID string) bool {
	if userID != middleware.GetUserID(r.Context()) {
		forbidden(w, "user_id does not belong to the token")
		return false
	}
	return true
}

type otpBody struct {
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
	OTP         string `json:"otp"`
}

func (b *Backend) handleOTP(w http.ResponseWriter, r *http.Request) {
	var body otpBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !tenDigits.MatchString(body.Mobile) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "mobile must be 10 digits"))
		return
	}
	if body.OTP == "" {
		httputil.WriteData(w, http.StatusOK, "OTP sent successfully", nil)
		return
	}
	if body.OTP != b.opts.StaticOTP {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid OTP"))
		return
	}

	b.mu.Lock()
	u, ok := b.users[body.Mobile]
	if !ok {
		u = &User{GUID: uuid.NewString(), Mobile: body.Mobile}
		b.users[body.Mobile] = u
	}
	user := *u
	b.mu.Unlock()

	token, err := b.tokens.GenerateAccessToken(user.GUID, user.Mobile, tokenTTL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, "Login successful", map[string]string{
		"access_token": token,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"mobile":       user.Mobile,
		"guid":         user.GUID,
	})
}

func (b *Backend) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var body User
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !tenDigits.MatchString(body.Mobile) || body.FirstName == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "first_name and a 10-digit mobile are required"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[body.Mobile]; exists {
		httputil.WriteError(w, fmt.Errorf("mobile %s already registered: %w", body.Mobile, sentinel.ErrInvalidState))
		return
	}
	body.GUID = uuid.NewString()
	body.Member = false
	b.users[body.Mobile] = &body
	httputil.WriteData(w, http.StatusCreated, "User created", body)
}

func (b *Backend) handleLocations(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, "Locations fetched", b.opts.Seed.Locations)
}

func (b *Backend) handleBrands(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, "Brands fetched", b.opts.Seed.Brands)
}

type searchBody struct {
	SearchString string `json:"search_string"`
	Location     string `json:"location"`
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !b.knownLocation(body.Location) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown location %q", body.Location))
		return
	}
	keyword := strings.ToLower(strings.TrimSpace(body.SearchString))

	b.mu.Lock()
	rows := make([]Test, 0)
	for _, t := range b.opts.Seed.Tests {
		if keyword == "" || strings.Contains(strings.ToLower(t.Name), keyword) {
			rows = append(rows, t)
		}
	}
	b.mu.Unlock()
	httputil.WriteData(w, http.StatusOK, "Tests fetched", rows)
}

type cartBody struct {
	UserID     string `json:"user_id"`
	LocationID string `json:"lab_location_id"`
	Products   []struct {
		ProductID  string `json:"product_id"`
		Quantity   int    `json:"quantity"`
		BrandID    string `json:"brand_id"`
		LocationID string `json:"location_id"`
	} `json:"product_details"`
	SlotGUID string `json:"slot_guid"`
}

func (b *Backend) handleAddCart(w http.ResponseWriter, r *http.Request) {
	var body cartBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !sameUser(w, r, body.UserID) {
		return
	}
	if len(body.Products) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "product_details is empty"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make([]cartLine, 0, len(body.Products))
	var total float64
	for _, p := range body.Products {
		t, ok := b.findTest(p.ProductID)
		if !ok {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown product %q", p.ProductID))
			return
		}
		qty := max(p.Quantity, 1)
		lines = append(lines, cartLine{
			ProductID:  t.ID,
			TestName:   t.Name,
			Price:      t.Price,
			Quantity:   qty,
			BrandID:    p.BrandID,
			LocationID: p.LocationID,
		})
		total += t.Price * float64(qty)
	}

	status := http.StatusOK
	c, ok := b.carts[body.UserID]
	if !ok {
		b.nextCart++
		c = &cart{GUID: uuid.NewString(), ID: b.nextCart, UserID: body.UserID}
		b.carts[body.UserID] = c
		status = http.StatusCreated
	}
	c.LocationID = body.LocationID
	c.Items = lines
	c.TotalAmount = total
	if body.SlotGUID != "" {
		c.SlotGUID = body.SlotGUID
	}
	httputil.WriteData(w, status, "Cart updated", *c)
}

func (b *Backend) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	var body address
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !sameUser(w, r, body.UserID) {
		return
	}
	if body.Line1 == "" || body.City == "" || body.Pincode == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "address_line1, city and pincode are required"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.addresses[body.UserID]
	if body.IsDefault {
		for i := range list {
			list[i].IsDefault = false
		}
	}
	body.GUID = uuid.NewString()
	b.addresses[body.UserID] = append(list, body)
	httputil.WriteData(w, http.StatusCreated, "Address added", body)
}

func (b *Backend) handleAddressesByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !sameUser(w, r, userID) {
		return
	}
	b.mu.Lock()
	list := append([]address{}, b.addresses[userID]...)
	b.mu.Unlock()
	httputil.WriteData(w, http.StatusOK, "Addresses fetched", list)
}

func (b *Backend) addressOf(userID, guid string) (address, bool) {
	for _, a := range b.addresses[userID] {
		if a.GUID == guid {
			return a, true
		}
	}
	return address{}, false
}

type centersBody struct {
	AddressID string `json:"addressid"`
	LabID     string `json:"lab_id"`
}

type center struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

func (b *Backend) handleCenters(w http.ResponseWriter, r *http.Request) {
	var body centersBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	b.mu.Lock()
	addr, ok := b.addressOf(middleware.GetUserID(r.Context()), body.AddressID)
	b.mu.Unlock()
	if !ok || !b.knownLocation(body.LabID) {
		httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Success: false, Msg: "Invalid Location"})
		return
	}
	httputil.WriteData(w, http.StatusOK, "Valid Location", []center{{
		ID:    "center-" + body.LabID,
		Name:  addr.City + " Collection Center",
		City:  addr.City,
		State: addr.State,
	}})
}

type slotBody struct {
	SlotStartTime string `json:"slot_start_time"`
	Type          string `json:"type"`
	AddressGUID   string `json:"addressguid"`
}

type slotRow struct {
	GUID      string `json:"guid"`
	StartTime string `json:"starttime"`
	EndTime   string `json:"endtime"`
	Count     any    `json:"count"`
}

func (b *Backend) handleSlotCount(w http.ResponseWriter, r *http.Request) {
	var body slotBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	day, err := time.Parse(dateLayout, body.SlotStartTime)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "slot_start_time must be YYYY-MM-DD"))
		return
	}

	b.mu.Lock()
	_, ok := b.addressOf(middleware.GetUserID(r.Context()), body.AddressGUID)
	firstOpen := b.opts.Seed.FirstOpenDay
	b.mu.Unlock()
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown address %q", body.AddressGUID))
		return
	}

	today, _ := time.Parse(dateLayout, b.opts.Now().Format(dateLayout))
	offset := int(day.Sub(today).Hours() / 24)
	open := offset >= firstOpen

	// The first slot of each day is always full; counts arrive in mixed encodings.
	rows := []slotRow{
		{StartTime: "07:00", EndTime: "08:00", Count: 0},
		{StartTime: "08:00", EndTime: "09:00", Count: "0"},
		{StartTime: "09:00", EndTime: "10:00", Count: 0.0},
	}
	if open {
		rows[1].Count = "3"
		rows[2].Count = 4.0
	}
	for i := range rows {
		rows[i].GUID = slotGUID(body.SlotStartTime, rows[i].StartTime)
	}
	httputil.WriteData(w, http.StatusOK, "Slots fetched", rows)
}

type createOrderBody struct {
	UserID string `json:"user_id"`
}

type orderNotes struct {
	UserID   string `json:"user_id"`
	Mobile   string `json:"mobile"`
	SlotGUID string `json:"slot_guid"`
}

type orderData struct {
	ID         string     `json:"id"`
	Entity     string     `json:"entity"`
	Amount     int64      `json:"amount"`
	AmountDue  int64      `json:"amount_due"`
	AmountPaid int64      `json:"amount_paid"`
	Currency   string     `json:"currency"`
	Receipt    string     `json:"receipt"`
	Status     string     `json:"status"`
	KeyID      string     `json:"key_id"`
	Mobile     string     `json:"mobile"`
	Notes      orderNotes `json:"notes"`
}

func (b *Backend) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !sameUser(w, r, body.UserID) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.carts[body.UserID]
	if !ok || len(c.Items) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "cart is empty"))
		return
	}
	if c.SlotGUID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "no slot selected for the cart"))
		return
	}
	u := b.userByGUID(body.UserID)
	if u == nil {
		httputil.WriteError(w, fmt.Errorf("user %s: %w", body.UserID, sentinel.ErrNotFound))
		return
	}

	o := &order{
		ID:       b.newOrderID(),
		UserID:   u.GUID,
		Mobile:   u.Mobile,
		Amount:   int64(math.Round(c.TotalAmount * 100)),
		SlotGUID: c.SlotGUID,
	}
	b.orders[o.ID] = o
	httputil.WriteData(w, http.StatusOK, "Order Created Successfully", orderData{
		ID:        o.ID,
		Entity:    "order",
		Amount:    o.Amount,
		AmountDue: o.Amount,
		Currency:  "INR",
		Receipt:   "rcpt_" + strconv.Itoa(c.ID),
		Status:    "created",
		KeyID:     b.opts.RazorpayKey,
		Mobile:    o.Mobile,
		Notes:     orderNotes{UserID: o.UserID, Mobile: o.Mobile, SlotGUID: o.SlotGUID},
	})
}

type verifyBody struct {
	OrderCreationID   string `json:"orderCreationId"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	Mobile            int64  `json:"mobile"`
	UserID            string `json:"user_id"`
}

type membershipDetails struct {
	IsMembershipOrder bool  `json:"isMembershipOrder"`
	MembershipPrice   int64 `json:"membershipPrice"`
}

type paidOrder struct {
	OrderItems        []map[string]string `json:"OrderItems"`
	MembershipDetails membershipDetails   `json:"membershipDetails"`
}

func (b *Backend) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !sameUser(w, r, body.UserID) {
		return
	}
	if body.OrderCreationID != body.RazorpayOrderID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "orderCreationId does not match razorpay_order_id"))
		return
	}
	if !payment.VerifySignature(b.opts.RazorpaySecret, body.RazorpayOrderID, body.RazorpayPaymentID, body.RazorpaySignature) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "Invalid signature"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[body.RazorpayOrderID]
	if !ok || o.UserID != body.UserID {
		httputil.WriteError(w, fmt.Errorf("order %s: %w", body.RazorpayOrderID, sentinel.ErrNotFound))
		return
	}
	if strconv.FormatInt(body.Mobile, 10) != o.Mobile {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "mobile does not match the order"))
		return
	}
	if o.Paid {
		httputil.WriteError(w, fmt.Errorf("order %s already paid: %w", o.ID, sentinel.ErrInvalidState))
		return
	}
	b.nextOrder++
	o.Paid = true
	o.Number = b.nextOrder

	details := membershipDetails{}
	if u := b.userByGUID(o.UserID); u != nil && u.Member {
		details = membershipDetails{IsMembershipOrder: true, MembershipPrice: b.opts.Seed.MembershipPrice}
	}
	httputil.WriteData(w, http.StatusOK, "Payment verified successfully", []paidOrder{{
		OrderItems:        []map[string]string{{"order_id": fmt.Sprintf("ORD%d", o.Number), "payment_id": body.RazorpayPaymentID}},
		MembershipDetails: details,
	}})
}
