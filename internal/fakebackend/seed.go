package fakebackend

// Location is a lab location the backend serves.
type Location struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// Brand is a lab brand. Brands live on a separate host in production.
type Brand struct {
	GUID     string `json:"Guid"`
	Title    string `json:"title"`
	IsActive bool   `json:"is_active"`
}

// Test is a catalog row. HomeCollection is kept as the backend sends it:
// sometimes a bool, sometimes "AVAILABLE"/"NOT_AVAILABLE", sometimes 0/1.
type Test struct {
	ID             string  `json:"_id"`
	TestID         string  `json:"test_id"`
	Name           string  `json:"test_name"`
	Price          float64 `json:"price"`
	OriginalPrice  float64 `json:"original_price"`
	Discount       float64 `json:"discount_percentage"`
	Type           string  `json:"Type"`
	Status         string  `json:"status"`
	HomeCollection any     `json:"home_collection"`
}

// User is a known account.
type User struct {
	GUID      string `json:"guid"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Member    bool   `json:"-"`
}

// Seed is the catalog and account data a backend starts with.
type Seed struct {
	Locations []Location
	Brands    []Brand
	Tests     []Test
	Users     []User
	// FirstOpenDay is the day offset, counted from the backend clock's
	// today, of the first day with free slots.
	FirstOpenDay int
	// MembershipPrice is reported for payments by member users.
	MembershipPrice int64
}

// DefaultSeed mirrors the staging data the default plan was written against.
// memberMobile and nonMemberMobile become pre-registered users.
func DefaultSeed(memberMobile, nonMemberMobile string) Seed {
	return Seed{
		Locations: []Location{
			{ID: "loc-madhapur", Title: "Madhapur"},
			{ID: "loc-ameerpet", Title: "Ameerpet"},
			{ID: "loc-kondapur", Title: "Kondapur"},
		},
		Brands: []Brand{
			{GUID: "brand-diagnostics", Title: "Diagnostics", IsActive: true},
			{GUID: "brand-wellness", Title: "Wellness", IsActive: false},
		},
		Tests: []Test{
			{ID: "t-coag", TestID: "LAB-1001", Name: "Blood Coagulation", Price: 450, OriginalPrice: 600, Discount: 25, Type: "Test", Status: "ACTIVE", HomeCollection: "AVAILABLE"},
			{ID: "t-sugar", TestID: "LAB-1002", Name: "Blood Sugar Fasting", Price: 120, OriginalPrice: 150, Discount: 20, Type: "Test", Status: "ACTIVE", HomeCollection: "NOT_AVAILABLE"},
			{ID: "t-group", TestID: "LAB-1003", Name: "Blood Group", Price: 200, OriginalPrice: 200, Type: "Test", Status: "ACTIVE", HomeCollection: 1},
			{ID: "t-bone", TestID: "LAB-2001", Name: "Bone Profile -1", Price: 900, OriginalPrice: 1200, Discount: 25, Type: "Package", Status: "ACTIVE", HomeCollection: true},
			{ID: "t-lipid", TestID: "LAB-3001", Name: "Lipid Profile", Price: 650, OriginalPrice: 800, Type: "Test", Status: "ACTIVE", HomeCollection: false},
		},
		Users: []User{
			{GUID: "user-member", FirstName: "Priya", LastName: "Raman", Mobile: memberMobile, Member: true},
			{GUID: "user-nonmember", FirstName: "Arjun", LastName: "Varma", Mobile: nonMemberMobile},
		},
		FirstOpenDay:    1,
		MembershipPrice: 999,
	}
}
