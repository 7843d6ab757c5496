package slot

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"diagflow/internal/actor"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
)

const (
	centersPath = "/slot/getCentersByadd"

	validLocationMsg = "Valid Location"
)

// Center is a collection center serving an address.
type Center struct {
	ID    string
	Name  string
	City  string
	State string
}

type centersRequest struct {
	AddressID string `json:"addressid"`
	LabID     string `json:"lab_id"`
}

// Centers confirms that labID serves persona's recorded address. The backend
// may answer with a list, a single object or no data at all; an empty result
// is not an error.
func (r *Resolver) Centers(ctx context.Context, persona actor.Persona, labID string) ([]Center, error) {
	token, err := r.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return nil, err
	}
	addressID, err := r.actors.Get(ctx, persona, actor.AddressID)
	if err != nil {
		return nil, err
	}

	resp, err := r.doer.Do(ctx, transport.Request{
		Name:   "centers",
		Method: http.MethodPost,
		Path:   centersPath,
		Auth:   transport.AuthRaw,
		Token:  token,
		Body:   centersRequest{AddressID: addressID, LabID: labID},
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return nil, err
	}
	if err := resp.ExpectSuccess(); err != nil {
		return nil, err
	}
	if msg := resp.Get("msg").String(); msg != validLocationMsg {
		return nil, dErrors.Newf(dErrors.CodeValidation, "centers for %s: msg %q, want %q", persona, msg, validLocationMsg)
	}

	var rows []gjson.Result
	switch data := resp.Get("data"); {
	case data.IsArray():
		rows = data.Array()
	case data.IsObject():
		rows = []gjson.Result{data}
	}
	centers := make([]Center, 0, len(rows))
	for _, row := range rows {
		centers = append(centers, Center{
			ID:    row.Get("_id").String(),
			Name:  row.Get("name").String(),
			City:  row.Get("city").String(),
			State: row.Get("state").String(),
		})
	}
	r.logger.InfoContext(ctx, "centers found", "persona", persona, "lab_id", labID, "count", len(centers))
	return centers, nil
}
