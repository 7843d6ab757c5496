package fakebackend

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"diagflow/internal/payment"
	"diagflow/pkg/testutil"
)

const (
	memberMobile    = "9003730394"
	nonMemberMobile = "8220220227"
	secret          = "test_secret"
)

type BackendSuite struct {
	suite.Suite
	backend *Backend
	router  http.Handler
	now     time.Time
}

func TestBackendSuite(t *testing.T) {
	suite.Run(t, new(BackendSuite))
}

func (s *BackendSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.backend = New(Options{
		RazorpaySecret: secret,
		Seed:           DefaultSeed(memberMobile, nonMemberMobile),
		Logger:         slog.New(slog.DiscardHandler),
		Now:            func() time.Time { return s.now },
	})
	s.router = s.backend.Router()
}

func (s *BackendSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *BackendSuite) post(path, token string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, body)
	if token != "" {
		testutil.WithToken(req, token, true)
	}
	return s.do(req)
}

// login returns a token and user guid for mobile.
func (s *BackendSuite) login(mobile string) (string, string) {
	t := s.T()
	rr := s.post("/otps/getOtp", "", map[string]string{"mobile": mobile, "country_code": "+91"})
	testutil.AssertStatusOK(t, rr)
	rr = s.post("/otps/getOtp", "", map[string]string{"mobile": mobile, "country_code": "+91", "otp": DefaultOTP})
	testutil.AssertStatusOK(t, rr)
	token := testutil.JSONPath(t, rr, "data.access_token").String()
	s.Require().NotEmpty(token)
	return token, testutil.JSONPath(t, rr, "data.guid").String()
}

func (s *BackendSuite) TestLogin() {
	s.Run("seeded user keeps its identity", func() {
		_, guid := s.login(memberMobile)
		s.Equal("user-member", guid)
	})
	s.Run("wrong otp", func() {
		rr := s.post("/otps/getOtp", "", map[string]string{"mobile": memberMobile, "otp": "000000"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
	s.Run("malformed mobile", func() {
		rr := s.post("/otps/getOtp", "", map[string]string{"mobile": "12"})
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *BackendSuite) TestAddUser() {
	body := map[string]string{"first_name": "Kabir", "last_name": "Rao", "mobile": "9123456789"}
	rr := s.post("/users/addUser", "", body)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	s.NotEmpty(testutil.JSONPath(s.T(), rr, "data.guid").String())

	u, ok := s.backend.User("9123456789")
	s.Require().True(ok)
	s.Equal("Kabir", u.FirstName)

	rr = s.post("/users/addUser", "", body)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *BackendSuite) TestAuthHeaders() {
	token, _ := s.login(memberMobile)

	s.Run("bearer", func() {
		testutil.AssertStatusOK(s.T(), s.post("/tests/getlocations", token, map[string]any{}))
	})
	s.Run("raw", func() {
		req := testutil.WithToken(testutil.NewJSONRequest(s.T(), http.MethodPost, "/brand/getAllBrands", map[string]int{"page": 1}), token, false)
		rr := s.do(req)
		testutil.AssertStatusOK(s.T(), rr)
		s.Equal("Diagnostics", testutil.JSONPath(s.T(), rr, "data.0.title").String())
	})
	s.Run("missing", func() {
		testutil.AssertStatus(s.T(), s.post("/tests/getlocations", "", map[string]any{}), http.StatusUnauthorized)
	})
}

func (s *BackendSuite) TestSearchMatchesKeyword() {
	token, _ := s.login(memberMobile)
	rr := s.post("/tests/adminTests", token, map[string]any{"search_string": "blood", "location": "loc-madhapur"})
	testutil.AssertStatusOK(s.T(), rr)
	names := testutil.JSONPath(s.T(), rr, "data.#.test_name").Array()
	s.Len(names, 3)

	rr = s.post("/tests/adminTests", token, map[string]any{"search_string": "blood", "location": "nowhere"})
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *BackendSuite) TestCartAndOwnership() {
	token, guid := s.login(memberMobile)
	cart := map[string]any{
		"user_id":         guid,
		"lab_location_id": "loc-madhapur",
		"product_details": []map[string]any{{"product_id": "t-coag", "quantity": 1, "brand_id": "brand-diagnostics", "location_id": "loc-madhapur"}},
	}

	rr := s.post("/carts/v2/addCart", token, cart)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	s.Equal(450.0, testutil.JSONPath(s.T(), rr, "data.total_amount").Float())
	s.Equal("Blood Coagulation", testutil.JSONPath(s.T(), rr, "data.cart_items.0.test_name").String())

	rr = s.post("/carts/v2/addCart", token, cart)
	testutil.AssertStatusOK(s.T(), rr)

	cart["user_id"] = "someone-else"
	testutil.AssertStatus(s.T(), s.post("/carts/v2/addCart", token, cart), http.StatusForbidden)
}

func (s *BackendSuite) TestSlotsOpenFromFirstOpenDay() {
	token, guid := s.login(nonMemberMobile)
	rr := s.post("/address/addAddress", token, map[string]any{
		"user_id": guid, "address_line1": "Plot 42", "city": "Hyderabad", "state": "Telangana", "pincode": "500081", "is_default": true,
	})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	addressID := testutil.JSONPath(s.T(), rr, "data.guid").String()

	count := func(date string) int64 {
		rr := s.post("/slot/getSlotCountByTime", token, map[string]any{"slot_start_time": date, "type": "home", "addressguid": addressID})
		testutil.AssertStatusOK(s.T(), rr)
		return testutil.JSONPath(s.T(), rr, "data.1.count").Int()
	}
	s.Equal(int64(0), count("2026-03-10"))
	s.Equal(int64(3), count("2026-03-11"))

	rr = s.post("/slot/getCentersByadd", token, map[string]any{"addressid": addressID, "lab_id": "loc-madhapur"})
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal("Valid Location", testutil.JSONPath(s.T(), rr, "msg").String())

	rr = s.post("/slot/getCentersByadd", token, map[string]any{"addressid": "nope", "lab_id": "loc-madhapur"})
	s.False(testutil.JSONPath(s.T(), rr, "success").Bool())
}

func (s *BackendSuite) TestOrderAndPayment() {
	token, guid := s.login(memberMobile)
	cart := map[string]any{
		"user_id":         guid,
		"lab_location_id": "loc-madhapur",
		"product_details": []map[string]any{{"product_id": "t-coag", "quantity": 1}},
	}
	s.post("/carts/v2/addCart", token, cart)

	rr := s.post("/gateway/v2/CreateOrder", token, map[string]string{"user_id": guid})
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)

	cart["slot_guid"] = "slot-1"
	s.post("/carts/v2/addCart", token, cart)
	rr = s.post("/gateway/v2/CreateOrder", token, map[string]string{"user_id": guid})
	testutil.AssertStatusOK(s.T(), rr)
	orderID := testutil.JSONPath(s.T(), rr, "data.id").String()
	s.Equal(int64(45000), testutil.JSONPath(s.T(), rr, "data.amount").Int())
	s.Equal("slot-1", testutil.JSONPath(s.T(), rr, "data.notes.slot_guid").String())
	s.Equal(DefaultRazorpayKey, testutil.JSONPath(s.T(), rr, "data.key_id").String())

	verify := map[string]any{
		"orderCreationId":     orderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_order_id":   orderID,
		"razorpay_signature":  "bad",
		"mobile":              9003730394,
		"user_id":             guid,
	}
	rr = s.post("/gateway/v2/VerifyPayment", token, verify)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_failed")

	verify["razorpay_signature"] = payment.Sign(secret, orderID, "pay_1")
	rr = s.post("/gateway/v2/VerifyPayment", token, verify)
	testutil.AssertStatusOK(s.T(), rr)
	s.True(testutil.JSONPath(s.T(), rr, "data.0.membershipDetails.isMembershipOrder").Bool())
	s.Equal(int64(999), testutil.JSONPath(s.T(), rr, "data.0.membershipDetails.membershipPrice").Int())
	s.Equal("ORD5001", testutil.JSONPath(s.T(), rr, "data.0.OrderItems.0.order_id").String())

	rr = s.post("/gateway/v2/VerifyPayment", token, verify)
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	s.Equal(3, s.backend.Calls(http.MethodPost, "/gateway/v2/VerifyPayment"))
}
