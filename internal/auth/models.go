package auth

// State is a position in the OTP login state machine.
type State string

const (
	StateInit         State = "INIT"
	StateOTPRequested State = "OTP_REQUESTED"
	StateOTPVerified  State = "OTP_VERIFIED"
	StateTokenIssued  State = "TOKEN_ISSUED"
	StateFailed       State = "FAILED"
)

// next lists the single forward transition allowed from each live state.
// FAILED is reachable from any state and has no exit.
var next = map[State]State{
	StateInit:         StateOTPRequested,
	StateOTPRequested: StateOTPVerified,
	StateOTPVerified:  StateTokenIssued,
}

// Identity is what a successful verify response tells us about the user.
type Identity struct {
	Token     string
	FirstName string
	LastName  string
	Mobile    string
	UserID    string
}

// Registration is the profile submitted for a new user.
type Registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
}

type otpRequest struct {
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
	OTP         string `json:"otp,omitempty"`
}
