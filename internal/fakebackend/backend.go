// Package fakebackend is an in-memory stand-in for the diagnostics API. It
// serves every endpoint the verifier calls, with the same envelopes, auth
// header quirks and status codes, so runs and tests need no staging host.
package fakebackend

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	jwttoken "diagflow/internal/jwt_token"
	"diagflow/internal/platform/middleware"
)

const (
	tokenIssuer = "diagflow-fake-backend"
	tokenTTL    = 2 * time.Hour

	DefaultOTP         = "123456"
	DefaultRazorpayKey = "rzp_test_fakebackend"
)

// Options configure a Backend.
type Options struct {
	StaticOTP      string
	SigningKey     string
	RazorpayKey    string
	RazorpaySecret string
	Seed           Seed
	Logger         *slog.Logger
	Now            func() time.Time
}

type address struct {
	GUID      string `json:"guid"`
	UserID    string `json:"user_id"`
	Line1     string `json:"address_line1"`
	Line2     string `json:"address_line2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
	IsDefault bool   `json:"is_default"`
}

type cartLine struct {
	ProductID  string  `json:"product_id"`
	TestName   string  `json:"test_name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	BrandID    string  `json:"brand_id"`
	LocationID string  `json:"location_id"`
}

type cart struct {
	GUID        string     `json:"guid"`
	ID          int        `json:"id"`
	UserID      string     `json:"user_id"`
	LocationID  string     `json:"lab_location_id"`
	SlotGUID    string     `json:"slot_guid,omitempty"`
	TotalAmount float64    `json:"total_amount"`
	Items       []cartLine `json:"cart_items"`
}

type order struct {
	ID       string
	UserID   string
	Mobile   string
	Amount   int64
	SlotGUID string
	Paid     bool
	Number   int
}

// Backend holds all state behind one mutex.
type Backend struct {
	opts   Options
	logger *slog.Logger
	tokens *jwttoken.JWTService

	mu        sync.Mutex
	users     map[string]*User // by mobile
	addresses map[string][]address
	carts     map[string]*cart // by user guid
	orders    map[string]*order
	nextCart  int
	nextOrder int
	calls     map[string]int
}

func New(opts Options) *Backend {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StaticOTP == "" {
		opts.StaticOTP = DefaultOTP
	}
	if opts.RazorpayKey == "" {
		opts.RazorpayKey = DefaultRazorpayKey
	}
	if opts.SigningKey == "" {
		opts.SigningKey = uuid.NewString()
	}
	b := &Backend{
		opts:      opts,
		logger:    opts.Logger,
		tokens:    jwttoken.NewJWTService(opts.SigningKey, tokenIssuer),
		users:     make(map[string]*User),
		addresses: make(map[string][]address),
		carts:     make(map[string]*cart),
		orders:    make(map[string]*order),
		nextCart:  1000,
		nextOrder: 5000,
		calls:     make(map[string]int),
	}
	for _, u := range opts.Seed.Users {
		if u.Mobile == "" {
			continue
		}
		b.users[u.Mobile] = &u
	}
	return b
}

// Router exposes the API.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(b.countCalls)

	r.Post("/otps/getOtp", b.handleOTP)
	r.Post("/users/addUser", b.handleAddUser)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(b.tokens, b.logger))

		r.Post("/tests/getlocations", b.handleLocations)
		r.Post("/tests/adminTests", b.handleSearch)
		r.Post("/brand/getAllBrands", b.handleBrands)
		r.Post("/carts/v2/addCart", b.handleAddCart)
		r.Post("/address/addAddress", b.handleAddAddress)
		r.Get("/address/getAddressByUserId/{userID}", b.handleAddressesByUser)
		r.Post("/slot/getCentersByadd", b.handleCenters)
		r.Post("/slot/getSlotCountByTime", b.handleSlotCount)
		r.Post("/gateway/v2/CreateOrder", b.handleCreateOrder)
		r.Post("/gateway/v2/VerifyPayment", b.handleVerifyPayment)
	})
	return r
}

func (b *Backend) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Calls reports how often method+path was requested.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// SetFirstOpenDay moves the first day with free slots.
func (b *Backend) SetFirstOpenDay(day int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.Seed.FirstOpenDay = day
}

// SetHomeCollection changes a seeded test's home-collection flag.
func (b *Backend) SetHomeCollection(testName string, v any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.opts.Seed.Tests {
		if strings.EqualFold(b.opts.Seed.Tests[i].Name, testName) {
			b.opts.Seed.Tests[i].HomeCollection = v
			return true
		}
	}
	return false
}

// SetTestStatus changes a seeded test's catalog status, e.g. to "INACTIVE".
func (b *Backend) SetTestStatus(testName, status string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.opts.Seed.Tests {
		if strings.EqualFold(b.opts.Seed.Tests[i].Name, testName) {
			b.opts.Seed.Tests[i].Status = status
			return true
		}
	}
	return false
}

// User returns the account registered for mobile.
func (b *Backend) User(mobile string) (User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[mobile]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (b *Backend) userByGUID(guid string) *User {
	for _, u := range b.users {
		if u.GUID == guid {
			return u
		}
	}
	return nil
}

func (b *Backend) findTest(id string) (Test, bool) {
	for _, t := range b.opts.Seed.Tests {
		if t.ID == id {
			return t, true
		}
	}
	return Test{}, false
}

func (b *Backend) knownLocation(id string) bool {
	for _, l := range b.opts.Seed.Locations {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (b *Backend) newOrderID() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func slotGUID(date, start string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("slot:%sT%s", date, start))).String()
}
