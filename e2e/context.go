// Package e2e runs the Gherkin features in e2e/features against an
// in-process fake backend.
package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"diagflow/internal/actor"
	"diagflow/internal/fakebackend"
	"diagflow/internal/flow"
	"diagflow/internal/platform/config"
	"diagflow/internal/report"
	"diagflow/internal/scenario"
	"diagflow/internal/transport"
)

const (
	memberMobile    = "9003730394"
	nonMemberMobile = "8220220227"
	razorpaySecret  = "e2e_secret"
)

// TestContext is the per-scenario state shared by every step package.
type TestContext struct {
	Backend  *fakebackend.Backend
	server   *httptest.Server
	Actors   *actor.InMemoryStore
	Settings config.Static
	Plan     *scenario.Plan
	Parallel bool
	Now      time.Time

	Report *report.Report
	RunErr error
}

// NewTestContext starts a fresh backend for one scenario.
func NewTestContext() (*TestContext, error) {
	plan, err := scenario.Default()
	if err != nil {
		return nil, err
	}
	tc := &TestContext{
		Actors: actor.NewInMemoryStore(),
		Settings: config.Static{
			config.KeyCountryCode:     "+91",
			config.KeyStaticOTP:       fakebackend.DefaultOTP,
			config.KeyMemberMobile:    memberMobile,
			config.KeyNonMemberMobile: nonMemberMobile,
			config.KeyRazorpaySecret:  razorpaySecret,
		},
		Plan: plan,
		Now:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	tc.Backend = fakebackend.New(fakebackend.Options{
		RazorpaySecret: razorpaySecret,
		Seed:           fakebackend.DefaultSeed(memberMobile, nonMemberMobile),
		Logger:         slog.New(slog.DiscardHandler),
		Now:            tc.clock,
	})
	tc.server = httptest.NewServer(tc.Backend.Router())
	return tc, nil
}

func (tc *TestContext) clock() time.Time {
	return tc.Now
}

// Close stops the backend.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// RunSuite executes the current plan and keeps the report.
func (tc *TestContext) RunSuite(ctx context.Context) error {
	client := transport.New(tc.server.URL,
		transport.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
	)
	runner := flow.New(client, tc.Actors, tc.Settings, tc.Plan, "",
		flow.WithLogger(slog.New(slog.DiscardHandler)),
		flow.WithParallel(tc.Parallel),
		flow.WithClock(tc.clock),
	)
	tc.Report, tc.RunErr = runner.Run(ctx)
	return tc.RunErr
}

// PersonaReport returns the report of persona from the last run.
func (tc *TestContext) PersonaReport(name string) (*report.PersonaReport, error) {
	if tc.Report == nil {
		return nil, fmt.Errorf("the suite has not run")
	}
	p, err := actor.ParsePersona(name)
	if err != nil {
		return nil, err
	}
	pr := tc.Report.For(p)
	if pr == nil {
		return nil, fmt.Errorf("persona %s was not part of the run", p)
	}
	return pr, nil
}

func (tc *TestContext) Field(persona string, field actor.Field) (string, error) {
	p, err := actor.ParsePersona(persona)
	if err != nil {
		return "", err
	}
	return tc.Actors.Get(context.Background(), p, field)
}

func (tc *TestContext) GetBackend() *fakebackend.Backend { return tc.Backend }
func (tc *TestContext) GetPlan() *scenario.Plan          { return tc.Plan }
func (tc *TestContext) GetSettings() config.Static       { return tc.Settings }
func (tc *TestContext) SetParallel(p bool)               { tc.Parallel = p }
