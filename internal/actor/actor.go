// Package actor keeps per-persona state for one verification run.
//
// Every flow step reads what earlier steps wrote for the same persona. A read
// never falls back to another persona or to a default: absence is reported as
// a missing-context error so the dependent chain stops.
package actor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/platform/sentinel"
)

// Persona tags one isolated identity driven through the flow.
type Persona string

const (
	Member         Persona = "MEMBER"
	ExistingMember Persona = "EXISTING_MEMBER"
	NonMember      Persona = "NON_MEMBER"
	NewUser        Persona = "NEW_USER"
	// Generic backs ad-hoc logins that belong to no scripted persona.
	Generic Persona = "GENERIC"
)

// ParsePersona accepts the persona tags used in plan files.
func ParsePersona(s string) (Persona, error) {
	switch p := Persona(s); p {
	case Member, ExistingMember, NonMember, NewUser, Generic:
		return p, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown persona %q", s)
	}
}

// Field names one value in a persona's state.
type Field string

const (
	Token         Field = "token"
	FirstName     Field = "firstName"
	LastName      Field = "lastName"
	UserID        Field = "userId"
	Mobile        Field = "mobile"
	CartGUID      Field = "cartGuid"
	CartNumericID Field = "cartNumericId"
	TotalAmount   Field = "totalAmount"
	OrderID       Field = "orderId"
	SlotGUID      Field = "slotGuid"
	SlotDate      Field = "slotDate"
	AddressID     Field = "addressId"
)

// Fields lists every field in State order.
var Fields = []Field{
	Token, FirstName, LastName, UserID, Mobile,
	CartGUID, CartNumericID, TotalAmount, OrderID,
	SlotGUID, SlotDate, AddressID,
}

// Store is the persona-namespaced state container. Implementations must be
// safe for concurrent use by different personas.
type Store interface {
	Set(ctx context.Context, persona Persona, field Field, value string) error
	// Get returns a missing-context error wrapping sentinel.ErrNotFound when
	// the field was never set for persona.
	Get(ctx context.Context, persona Persona, field Field) (string, error)
	// Clear drops the given personas, or every persona when none are given.
	Clear(ctx context.Context, personas ...Persona) error
}

// State is a point-in-time copy of one persona's fields. Unset fields are empty.
type State struct {
	Token         string `json:"token,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	UserID        string `json:"userId,omitempty"`
	Mobile        string `json:"mobile,omitempty"`
	CartGUID      string `json:"cartGuid,omitempty"`
	CartNumericID string `json:"cartNumericId,omitempty"`
	TotalAmount   string `json:"totalAmount,omitempty"`
	OrderID       string `json:"orderId,omitempty"`
	SlotGUID      string `json:"slotGuid,omitempty"`
	SlotDate      string `json:"slotDate,omitempty"`
	AddressID     string `json:"addressId,omitempty"`
}

func (s *State) set(f Field, v string) {
	switch f {
	case Token:
		s.Token = v
	case FirstName:
		s.FirstName = v
	case LastName:
		s.LastName = v
	case UserID:
		s.UserID = v
	case Mobile:
		s.Mobile = v
	case CartGUID:
		s.CartGUID = v
	case CartNumericID:
		s.CartNumericID = v
	case TotalAmount:
		s.TotalAmount = v
	case OrderID:
		s.OrderID = v
	case SlotGUID:
		s.SlotGUID = v
	case SlotDate:
		s.SlotDate = v
	case AddressID:
		s.AddressID = v
	}
}

// Snapshot reads every known field for persona.
func Snapshot(ctx context.Context, store Store, persona Persona) (State, error) {
	var st State
	for _, f := range Fields {
		v, err := store.Get(ctx, persona, f)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return State{}, err
		}
		st.set(f, v)
	}
	return st, nil
}

// GetInt reads a numeric field.
func GetInt(ctx context.Context, store Store, persona Persona, field Field) (int64, error) {
	v, err := store.Get(ctx, persona, field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput,
			fmt.Sprintf("%s.%s is not an integer", persona, field))
	}
	return n, nil
}

// SetAll writes several fields for one persona, stopping at the first error.
func SetAll(ctx context.Context, store Store, persona Persona, values map[Field]string) error {
	for f, v := range values {
		if err := store.Set(ctx, persona, f, v); err != nil {
			return err
		}
	}
	return nil
}

func missing(persona Persona, field Field) error {
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeContextMissing,
		fmt.Sprintf("%s has no %s", persona, field))
}
