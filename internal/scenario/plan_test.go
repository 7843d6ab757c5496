package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagflow/internal/actor"
	dErrors "diagflow/pkg/domain-errors"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "Madhapur", p.Location)
	assert.Equal(t, []string{"Blood Coagulation", "Bone Profile -1"}, p.Tests)
	assert.Equal(t, actor.NonMember, p.SlotOwner)
	assert.Equal(t, []actor.Persona{actor.NonMember, actor.Member, actor.NewUser}, p.PersonaList())
	assert.Equal(t, "500081", p.Address.Pincode)
}

func TestLoad(t *testing.T) {
	p, err := Load("testdata/two_personas.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, p.CartCap, "defaults applied")
	assert.Equal(t, 7, p.SlotWindow)
	assert.Equal(t, actor.Member, p.SlotOwner, "first persona owns the slot by default")

	_, err = Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":     "location: X\nbrand: B\ntests: [a]\nflavour: sour\npersonas: [{persona: MEMBER, mobile: '1'}]",
		"no location":       "brand: B\ntests: [a]\npersonas: [{persona: MEMBER, mobile: '1'}]",
		"no tests":          "location: X\nbrand: B\npersonas: [{persona: MEMBER, mobile: '1'}]",
		"unknown persona":   "location: X\nbrand: B\ntests: [a]\npersonas: [{persona: ADMIN, mobile: '1'}]",
		"duplicate persona": "location: X\nbrand: B\ntests: [a]\npersonas: [{persona: MEMBER, mobile: '1'}, {persona: MEMBER, mobile: '2'}]",
		"no mobile source":  "location: X\nbrand: B\ntests: [a]\npersonas: [{persona: MEMBER}]",
		"foreign owner":     "location: X\nbrand: B\ntests: [a]\nslot_owner: NEW_USER\npersonas: [{persona: MEMBER, mobile: '1'}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseNormalizesTests(t *testing.T) {
	p, err := Parse([]byte("location: X\nbrand: B\ntests: [' Blood Coagulation', 'blood coagulation', '']\npersonas: [{persona: MEMBER, mobile: '1'}]"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Blood Coagulation"}, p.Tests)

	_, err = Parse([]byte("location: X\nbrand: B\ntests: ['  ']\npersonas: [{persona: MEMBER, mobile: '1'}]"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
