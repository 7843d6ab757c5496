package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagflow/internal/actor"
	"diagflow/internal/validate"
)

func sample() *Report {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := New("default", "run-1", start, []actor.Persona{actor.NonMember, actor.Member})

	nm := r.For(actor.NonMember)
	login := validate.NewBatch("login").Check("mobile", "9", "9").Check("user_id", "u", "u")
	nm.Record("login", 120*time.Millisecond, login, nil)
	nm.Skip("cart", "no eligible items")

	m := r.For(actor.Member)
	m.Record("login", 80*time.Millisecond, nil, nil)
	order := validate.NewBatch("order").Check("amount", 450, 0).Check("status", "created", "created")
	m.Record("order", 250*time.Millisecond, order, errors.New("order: 1 of 2 checks failed"))

	r.Finish(start.Add(1500 * time.Millisecond))
	return r
}

func TestRenderGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	for name, f := range map[string]Format{"report_text": FormatText, "report_json": FormatJSON} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, sample(), f))
			g.Assert(t, name, buf.Bytes())
		})
	}
}

func TestCounts(t *testing.T) {
	r := sample()
	passed, failed := r.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, failed)
	assert.False(t, r.Passed())
	assert.Nil(t, r.For(actor.NewUser))
	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Write(dir, sample(), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report-run-1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
