package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"diagflow/internal/fakebackend"
	"diagflow/internal/platform/config"
	"diagflow/internal/platform/httpserver"
)

const (
	defaultMemberMobile    = "9003730394"
	defaultNonMemberMobile = "8220220227"
)

// FakeBackendOptions holds flags for the fake-backend command.
type FakeBackendOptions struct {
	*RootOptions
	Addr string
}

// NewFakeBackendCommand creates the fake-backend command.
func NewFakeBackendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FakeBackendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fake-backend",
		Short: "Serve an in-memory diagnostics backend for local runs",
		Long: `Serve every endpoint the suite calls from memory. Member and non-member
users are seeded from DIAGFLOW_MEMBER_MOBILE and DIAGFLOW_NON_MEMBER_MOBILE.

Example:
  diagflow fake-backend --addr :8089`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveFakeBackend(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8089", "listen address")
	return cmd
}

func serveFakeBackend(cmd *cobra.Command, opts *FakeBackendOptions) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := newLogger(cfg, opts.Verbose)

	member := cfg.MemberMobile
	if member == "" {
		member = defaultMemberMobile
	}
	nonMember := cfg.NonMemberMobile
	if nonMember == "" {
		nonMember = defaultNonMemberMobile
	}
	backend := fakebackend.New(fakebackend.Options{
		StaticOTP:      cfg.StaticOTP,
		RazorpayKey:    cfg.RazorpayKey,
		RazorpaySecret: cfg.RazorpaySecret,
		Seed:           fakebackend.DefaultSeed(member, nonMember),
		Logger:         log,
	})
	srv := httpserver.New(opts.Addr, backend.Router())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting fake backend", "addr", opts.Addr, "member", member, "non_member", nonMember)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("fake backend stopped")
	return nil
}
