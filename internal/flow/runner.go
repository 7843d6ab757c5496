// Package flow drives every planned persona through the ordering journey and
// records what happened in a report.
//
// A run has three phases. Each persona first logs in, loads the registry,
// searches, fills its cart and adds an address. One slot is then resolved
// for the slot owner and shared with every persona still running. Finally
// each persona attaches the slot, creates its order and verifies payment.
// Within a persona every step is sequential; personas run one after another
// or, in parallel mode, concurrently within each phase.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"diagflow/internal/actor"
	"diagflow/internal/address"
	"diagflow/internal/auth"
	"diagflow/internal/cart"
	"diagflow/internal/catalog"
	"diagflow/internal/order"
	"diagflow/internal/payment"
	"diagflow/internal/platform/config"
	"diagflow/internal/platform/metrics"
	"diagflow/internal/registry"
	"diagflow/internal/report"
	"diagflow/internal/scenario"
	"diagflow/internal/slot"
	"diagflow/internal/transport"
	"diagflow/internal/validate"
	dErrors "diagflow/pkg/domain-errors"
)

// Steps that carry no field checks of their own.
const (
	StepRegister = "register"
	StepRegistry = "registry"
	StepSearch   = "search"
	StepAddress  = "address"
	StepCenters  = "centers"
	StepSlot     = "slot"
)

const (
	outcomePassed  = "passed"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Runner executes a plan against one backend.
type Runner struct {
	doer     transport.Doer
	actors   actor.Store
	settings config.Settings
	plan     *scenario.Plan
	logger   *slog.Logger
	metrics  *metrics.Metrics
	parallel bool
	runID    string
	now      func() time.Time

	auth      *auth.Service
	loader    *registry.Loader
	carts     *cart.Service
	addresses *address.Service
	slots     *slot.Resolver
	orders    *order.Service
	payments  *payment.Service
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithParallel runs personas concurrently within each phase.
func WithParallel(parallel bool) Option {
	return func(r *Runner) {
		r.parallel = parallel
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// WithClock replaces time.Now for step timing and slot dates.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New wires the step services around doer. brandBaseURL may be empty when
// brands live on the main host.
func New(doer transport.Doer, actors actor.Store, settings config.Settings, plan *scenario.Plan, brandBaseURL string, opts ...Option) *Runner {
	r := &Runner{
		doer:     doer,
		actors:   actors,
		settings: settings,
		plan:     plan,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}

	r.auth = auth.New(doer, actors, settings, auth.WithLogger(r.logger))
	r.loader = registry.NewLoader(doer, actors,
		registry.WithLogger(r.logger),
		registry.WithBrandBaseURL(brandBaseURL),
	)
	r.carts = cart.NewService(doer, actors, cart.WithLogger(r.logger))
	r.addresses = address.NewService(doer, actors, address.WithLogger(r.logger))
	r.slots = slot.NewResolver(doer, actors,
		slot.WithLogger(r.logger),
		slot.WithClock(r.now),
		slot.WithWindow(plan.SlotWindow),
	)
	orderOpts := []order.Option{order.WithLogger(r.logger)}
	paymentOpts := []payment.Option{payment.WithLogger(r.logger), payment.WithClock(r.now)}
	if r.metrics != nil {
		orderOpts = append(orderOpts, order.WithMetrics(r.metrics))
		paymentOpts = append(paymentOpts, payment.WithMetrics(r.metrics))
	}
	r.orders = order.NewService(doer, actors, orderOpts...)
	r.payments = payment.NewService(doer, actors, settings, paymentOpts...)
	return r
}

func (r *Runner) RunID() string {
	return r.runID
}

// lane is one persona's progress through a run.
type lane struct {
	plan     scenario.PersonaPlan
	persona  actor.Persona
	report   *report.PersonaReport
	registry *registry.Registry
	searcher *catalog.Searcher
	payload  cart.Payload
	// stopped is set once the persona failed or has nothing left to order.
	stopped bool
}

// Run executes the plan. Persona failures are recorded in the report and do
// not produce an error; only cancellation or a broken actor store does.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	personas := r.plan.PersonaList()
	rep := report.New(r.plan.Name, r.runID, r.now(), personas)

	if err := r.actors.Clear(ctx, personas...); err != nil {
		return rep, dErrors.Wrap(err, dErrors.CodeInternal, "reset actor state")
	}

	shared := registry.New()
	lanes := make([]*lane, 0, len(r.plan.Personas))
	for _, pp := range r.plan.Personas {
		reg := shared
		if r.parallel {
			reg = shared.Snapshot()
		}
		lanes = append(lanes, &lane{
			plan:     pp,
			persona:  pp.Persona,
			report:   rep.For(pp.Persona),
			registry: reg,
			searcher: catalog.NewSearcher(r.doer, r.actors, reg, catalog.WithLogger(r.logger)),
		})
	}

	if err := r.each(ctx, lanes, r.prepare); err != nil {
		return rep, err
	}
	r.shareSlot(ctx, lanes)
	if err := r.each(ctx, lanes, r.checkout); err != nil {
		return rep, err
	}

	rep.Finish(r.now())
	passed, failed := rep.Counts()
	r.logger.InfoContext(ctx, "run finished",
		"run_id", r.runID,
		"passed", passed,
		"failed", failed,
		"duration", rep.Duration(),
	)
	return rep, nil
}

// each runs phase for every lane still going, concurrently in parallel mode.
func (r *Runner) each(ctx context.Context, lanes []*lane, phase func(context.Context, *lane)) error {
	if !r.parallel {
		for _, l := range lanes {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !l.stopped {
				phase(ctx, l)
			}
		}
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range lanes {
		if l.stopped {
			continue
		}
		g.Go(func() error {
			phase(gctx, l)
			return gctx.Err()
		})
	}
	return g.Wait()
}

// step times fn, records its outcome and reports whether the lane may go on.
// A batch with failed checks fails the step even when fn returned no error.
func (r *Runner) step(ctx context.Context, l *lane, name string, fn func() (*validate.Batch, error)) bool {
	start := r.now()
	batch, err := fn()
	if err == nil && batch != nil {
		err = batch.Err()
	}
	return r.record(ctx, l, name, r.now().Sub(start), batch, err)
}

func (r *Runner) record(ctx context.Context, l *lane, name string, elapsed time.Duration, batch *validate.Batch, err error) bool {
	l.report.Record(name, elapsed, batch, err)

	outcome := outcomePassed
	if err != nil {
		outcome = outcomeFailed
	}
	if r.metrics != nil {
		r.metrics.RecordStep(string(l.persona), name, outcome)
		if batch != nil {
			for _, res := range batch.Results {
				r.metrics.RecordCheck(name, res.Passed)
			}
		}
	}

	if err != nil {
		r.logger.ErrorContext(ctx, "step failed",
			"persona", l.persona,
			"step", name,
			"code", dErrors.CodeOf(err),
			"error", err,
		)
		l.stopped = true
		return false
	}
	r.logger.DebugContext(ctx, "step passed", "persona", l.persona, "step", name)
	return true
}

// fail records an error raised before the step's own call.
func (r *Runner) fail(ctx context.Context, l *lane, name string, err error) {
	r.record(ctx, l, name, 0, nil, err)
}

func (r *Runner) skip(l *lane, reason string, steps ...string) {
	for _, name := range steps {
		l.report.Skip(name, reason)
		if r.metrics != nil {
			r.metrics.RecordStep(string(l.persona), name, outcomeSkipped)
		}
	}
	l.stopped = true
}

// prepare takes one persona from login to a filled cart with an address.
func (r *Runner) prepare(ctx context.Context, l *lane) {
	p := l.persona
	mobile := l.plan.Mobile

	if l.plan.Register {
		ok := r.step(ctx, l, StepRegister, func() (*validate.Batch, error) {
			reg := auth.RandomRegistration()
			if _, err := r.auth.Register(ctx, p, reg); err != nil {
				return nil, err
			}
			mobile = reg.Mobile
			return nil, nil
		})
		if !ok {
			return
		}
	} else if mobile == "" {
		var err error
		mobile, err = r.settings.Lookup(l.plan.MobileSetting)
		if err != nil {
			r.fail(ctx, l, validate.StepLogin, err)
			return
		}
	}

	ok := r.step(ctx, l, validate.StepLogin, func() (*validate.Batch, error) {
		if _, err := r.auth.Login(ctx, p, mobile); err != nil {
			return nil, err
		}
		st, err := actor.Snapshot(ctx, r.actors, p)
		if err != nil {
			return nil, err
		}
		return validate.Login(st, mobile), nil
	})
	if !ok {
		return
	}

	ok = r.step(ctx, l, StepRegistry, func() (*validate.Batch, error) {
		if _, err := r.loader.FetchLocations(ctx, l.registry, p); err != nil {
			return nil, err
		}
		if _, err := r.loader.FetchBrands(ctx, l.registry, p); err != nil {
			return nil, err
		}
		if err := l.registry.Select(registry.Location, r.plan.Location); err != nil {
			return nil, err
		}
		return nil, l.registry.Select(registry.Brand, r.plan.Brand)
	})
	if !ok {
		return
	}

	var found *catalog.Result
	ok = r.step(ctx, l, StepSearch, func() (*validate.Batch, error) {
		res, err := l.searcher.Search(ctx, p, r.plan.Tests, r.plan.Location)
		found = res
		return nil, err
	})
	if !ok {
		return
	}

	userID, err := r.actors.Get(ctx, p, actor.UserID)
	if err != nil {
		r.fail(ctx, l, validate.StepCart, err)
		return
	}
	assembled, err := cart.Assemble(l.registry, cart.AssembleInput{
		UserID:        userID,
		BrandTitle:    r.plan.Brand,
		LocationTitle: r.plan.Location,
		Eligible:      found.Eligible,
		Cap:           r.plan.CartCap,
	})
	if err != nil {
		r.fail(ctx, l, validate.StepCart, err)
		return
	}
	payload, ok := assembled.Payload()
	if !ok {
		r.logger.InfoContext(ctx, "nothing eligible for home collection", "persona", p)
		r.skip(l, "no eligible items",
			validate.StepCart, StepAddress, StepCenters, StepSlot,
			validate.StepSlotAttach, validate.StepOrder, validate.StepPayment)
		return
	}
	l.payload = payload

	ok = r.step(ctx, l, validate.StepCart, func() (*validate.Batch, error) {
		got, err := r.carts.Submit(ctx, p, payload)
		if err != nil {
			return nil, err
		}
		return validate.Cart(payload, got, found.Items), nil
	})
	if !ok {
		return
	}

	ok = r.step(ctx, l, StepAddress, func() (*validate.Batch, error) {
		_, err := r.addresses.Add(ctx, p, r.plan.Address)
		return nil, err
	})
	if !ok {
		return
	}

	r.step(ctx, l, StepCenters, func() (*validate.Batch, error) {
		_, err := r.slots.Centers(ctx, p, payload.LocationID)
		return nil, err
	})
}

// shareSlot resolves one slot with the owner's address and hands it to every
// persona still running. When the planned owner dropped out, the first
// running persona resolves instead.
func (r *Runner) shareSlot(ctx context.Context, lanes []*lane) {
	var running []*lane
	var owner *lane
	for _, l := range lanes {
		if l.stopped {
			continue
		}
		running = append(running, l)
		if l.persona == r.plan.SlotOwner {
			owner = l
		}
	}
	if len(running) == 0 {
		return
	}
	if owner == nil {
		owner = running[0]
		r.logger.WarnContext(ctx, "slot owner not running, resolving with another persona",
			"planned", r.plan.SlotOwner,
			"persona", owner.persona,
		)
	}

	others := make([]actor.Persona, 0, len(running)-1)
	for _, l := range running {
		if l != owner {
			others = append(others, l.persona)
		}
	}

	start := r.now()
	_, err := r.slots.Resolve(ctx, owner.persona, others...)
	elapsed := r.now().Sub(start)
	for _, l := range running {
		if l == owner {
			r.record(ctx, l, StepSlot, elapsed, nil, err)
		} else {
			r.record(ctx, l, StepSlot, 0, nil, err)
		}
	}
}

// checkout attaches the shared slot, creates the order and verifies payment.
func (r *Runner) checkout(ctx context.Context, l *lane) {
	p := l.persona

	ok := r.step(ctx, l, validate.StepSlotAttach, func() (*validate.Batch, error) {
		slotGUID, err := r.actors.Get(ctx, p, actor.SlotGUID)
		if err != nil {
			return nil, err
		}
		got, err := r.carts.AttachSlot(ctx, p, l.payload, slotGUID)
		if err != nil {
			return nil, err
		}
		return validate.SlotAttach(slotGUID, got), nil
	})
	if !ok {
		return
	}

	ok = r.step(ctx, l, validate.StepOrder, func() (*validate.Batch, error) {
		o, err := r.orders.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		st, err := actor.Snapshot(ctx, r.actors, p)
		if err != nil {
			return nil, err
		}
		return validate.Order(o, st), nil
	})
	if !ok {
		return
	}

	r.step(ctx, l, validate.StepPayment, func() (*validate.Batch, error) {
		v, err := r.payments.Verify(ctx, p)
		if err != nil {
			return nil, err
		}
		return validate.Payment(v), nil
	})
}
