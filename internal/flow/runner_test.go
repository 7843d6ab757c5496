package flow

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"diagflow/internal/actor"
	"diagflow/internal/fakebackend"
	"diagflow/internal/platform/config"
	"diagflow/internal/platform/metrics"
	"diagflow/internal/report"
	"diagflow/internal/scenario"
	"diagflow/internal/transport"
	"diagflow/internal/validate"
	dErrors "diagflow/pkg/domain-errors"
)

const (
	memberMobile    = "9003730394"
	nonMemberMobile = "8220220227"
	secret          = "test_secret"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	backend *fakebackend.Backend
	actors  *actor.InMemoryStore
	metrics *metrics.Metrics
	runner  *Runner
}

func settings() config.Static {
	return config.Static{
		config.KeyCountryCode:     "+91",
		config.KeyStaticOTP:       fakebackend.DefaultOTP,
		config.KeyMemberMobile:    memberMobile,
		config.KeyNonMemberMobile: nonMemberMobile,
		config.KeyRazorpaySecret:  secret,
	}
}

// newHarness starts a fake backend; the caller must Close the returned server
// before leak checks run.
func newHarness(t *testing.T, s config.Static, opts ...Option) (*harness, *httptest.Server) {
	t.Helper()
	backend := fakebackend.New(fakebackend.Options{
		RazorpaySecret: secret,
		Seed:           fakebackend.DefaultSeed(memberMobile, nonMemberMobile),
		Logger:         slog.New(slog.DiscardHandler),
		Now:            func() time.Time { return now },
	})
	srv := httptest.NewServer(backend.Router())

	plan, err := scenario.Default()
	require.NoError(t, err)

	m := metrics.New()
	client := transport.New(srv.URL,
		transport.WithHTTPClient(&http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{DisableKeepAlives: true},
		}),
		transport.WithMetrics(m),
	)
	actors := actor.NewInMemoryStore()
	opts = append([]Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithMetrics(m),
		WithRunID("run-test"),
		WithClock(func() time.Time { return now }),
	}, opts...)

	return &harness{
		backend: backend,
		actors:  actors,
		metrics: m,
		runner:  New(client, actors, s, plan, "", opts...),
	}, srv
}

func steps(pr *report.PersonaReport) []string {
	out := make([]string, 0, len(pr.Steps))
	for _, st := range pr.Steps {
		out = append(out, st.Step+":"+string(st.Status))
	}
	return out
}

func checkout(status report.Status) []string {
	return []string{
		validate.StepCart + ":" + string(status),
		StepAddress + ":" + string(status),
		StepCenters + ":" + string(status),
		StepSlot + ":" + string(status),
		validate.StepSlotAttach + ":" + string(status),
		validate.StepOrder + ":" + string(status),
		validate.StepPayment + ":" + string(status),
	}
}

func TestRunDefaultPlan(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, srv := newHarness(t, settings())
	defer srv.Close()

	rep, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	require.True(t, rep.Passed(), "personas: %+v", rep.Personas)

	head := []string{"login:PASSED", "registry:PASSED", "search:PASSED"}
	want := append(append([]string{}, head...), checkout(report.StatusPassed)...)
	if diff := cmp.Diff(want, steps(rep.For(actor.NonMember))); diff != "" {
		t.Errorf("NON_MEMBER steps (-want +got):\n%s", diff)
	}
	wantNew := append([]string{"register:PASSED"}, want...)
	if diff := cmp.Diff(wantNew, steps(rep.For(actor.NewUser))); diff != "" {
		t.Errorf("NEW_USER steps (-want +got):\n%s", diff)
	}

	owner, err := h.actors.Get(context.Background(), actor.NonMember, actor.SlotGUID)
	require.NoError(t, err)
	for _, p := range []actor.Persona{actor.Member, actor.NewUser} {
		got, err := h.actors.Get(context.Background(), p, actor.SlotGUID)
		require.NoError(t, err)
		assert.Equal(t, owner, got, "slot shared with %s", p)
	}
	date, err := h.actors.Get(context.Background(), actor.Member, actor.SlotDate)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", date, "today is full, tomorrow is the first open day")

	assert.Equal(t, 3.0, promtest.ToFloat64(h.metrics.OrdersCreated))
	assert.Equal(t, 3.0, promtest.ToFloat64(h.metrics.PaymentsVerified))
	assert.Equal(t, 2, h.backend.Calls(http.MethodPost, "/slot/getSlotCountByTime"), "one slot search for the whole run")
}

func TestRunParallel(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, srv := newHarness(t, settings(), WithParallel(true))
	defer srv.Close()

	rep, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Passed(), "personas: %+v", rep.Personas)
	for _, pr := range rep.Personas {
		last := pr.Steps[len(pr.Steps)-1]
		assert.Equal(t, validate.StepPayment, last.Step, "%s", pr.Persona)
		assert.Equal(t, report.StatusPassed, last.Status, "%s", pr.Persona)
	}
}

func TestRunNothingEligibleSkipsCheckout(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, srv := newHarness(t, settings())
	defer srv.Close()
	require.True(t, h.backend.SetHomeCollection("Blood Coagulation", "NOT_AVAILABLE"))

	rep, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Passed(), "an empty cart is not a failure")

	want := append([]string{"login:PASSED", "registry:PASSED", "search:PASSED"}, checkout(report.StatusSkipped)...)
	if diff := cmp.Diff(want, steps(rep.For(actor.Member))); diff != "" {
		t.Errorf("MEMBER steps (-want +got):\n%s", diff)
	}
	assert.Zero(t, h.backend.Calls(http.MethodPost, "/carts/v2/addCart"))
	assert.Zero(t, h.backend.Calls(http.MethodPost, "/gateway/v2/CreateOrder"))
}

func TestRunNoSlotFailsEveryRunningPersona(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, srv := newHarness(t, settings())
	defer srv.Close()
	h.backend.SetFirstOpenDay(30)

	rep, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	passed, failed := rep.Counts()
	assert.Equal(t, 0, passed)
	assert.Equal(t, 3, failed)

	for _, pr := range rep.Personas {
		last := pr.Steps[len(pr.Steps)-1]
		assert.Equal(t, StepSlot, last.Step)
		assert.Equal(t, report.StatusFailed, last.Status)
		assert.Contains(t, last.Detail, string(dErrors.CodeNoAvailableSlot))
	}
	assert.Equal(t, 7, h.backend.Calls(http.MethodPost, "/slot/getSlotCountByTime"))
	assert.Zero(t, h.backend.Calls(http.MethodPost, "/gateway/v2/CreateOrder"))
}

func TestRunPersonaFailureIsIsolated(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := settings()
	delete(s, config.KeyMemberMobile)
	h, srv := newHarness(t, s)
	defer srv.Close()

	rep, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	member := rep.For(actor.Member)
	assert.Equal(t, report.StatusFailed, member.Status)
	require.Len(t, member.Steps, 1)
	assert.Equal(t, validate.StepLogin, member.Steps[0].Step)

	assert.Equal(t, report.StatusPassed, rep.For(actor.NonMember).Status)
	assert.Equal(t, report.StatusPassed, rep.For(actor.NewUser).Status)
	assert.Equal(t, 2.0, promtest.ToFloat64(h.metrics.OrdersCreated))
}

func TestRunSlotOwnerFallsBack(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := settings()
	delete(s, config.KeyNonMemberMobile)
	h, srv := newHarness(t, s)
	defer srv.Close()

	rep, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.StatusFailed, rep.For(actor.NonMember).Status)
	assert.Equal(t, report.StatusPassed, rep.For(actor.Member).Status)
	assert.Equal(t, report.StatusPassed, rep.For(actor.NewUser).Status)
}

func TestRunCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, srv := newHarness(t, settings())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
