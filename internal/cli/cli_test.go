package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"diagflow/internal/fakebackend"
	"diagflow/internal/platform/logger"
)

const secret = "cli_secret"

func startBackend(t *testing.T) string {
	t.Helper()
	backend := fakebackend.New(fakebackend.Options{
		RazorpaySecret: secret,
		Seed:           fakebackend.DefaultSeed(defaultMemberMobile, defaultNonMemberMobile),
		Logger:         logger.Discard(),
	})
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func setEnv(t *testing.T, baseURL string) {
	t.Setenv("DIAGFLOW_BASE_URL", baseURL)
	t.Setenv("DIAGFLOW_MEMBER_MOBILE", defaultMemberMobile)
	t.Setenv("DIAGFLOW_NON_MEMBER_MOBILE", defaultNonMemberMobile)
	t.Setenv("DIAGFLOW_RAZORPAY_SECRET", secret)
	t.Setenv("DIAGFLOW_ENABLE_LOGGING", "false")
	t.Setenv("DIAGFLOW_REDIS_URL", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	setEnv(t, startBackend(t))
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "diagflow.prom")
	t.Setenv("DIAGFLOW_METRICS_FILE", metricsFile)

	out, err := execute(t, "run", "--format", "json", "--report-dir", dir)
	require.NoError(t, err, out)

	assert.Equal(t, "default", gjson.Get(out, "plan").String())
	assert.Equal(t, int64(3), gjson.Get(out, "personas.#").Int())
	assert.Equal(t, "PASSED", gjson.Get(out, "personas.0.status").String())

	runID := gjson.Get(out, "run_id").String()
	_, err = os.Stat(filepath.Join(dir, "report-"+runID+".json"))
	assert.NoError(t, err)

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "diagflow_orders_created_total 3")
}

func TestRunCommandReportsFailures(t *testing.T) {
	setEnv(t, startBackend(t))
	t.Setenv("DIAGFLOW_MEMBER_MOBILE", "")

	out, err := execute(t, "run", "--no-report")
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, out, "MEMBER FAILED")
	assert.Contains(t, out, "NON_MEMBER PASSED")
}

func TestRunCommandWithPlanFile(t *testing.T) {
	setEnv(t, startBackend(t))
	plan := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(plan, []byte(`name: member-only
location: Madhapur
brand: Diagnostics
tests: [Blood Coagulation]
personas:
  - persona: MEMBER
    mobile_setting: mobile.number
`), 0o600))

	out, err := execute(t, "run", "--plan", plan, "--no-report", "--format", "json")
	require.NoError(t, err, out)
	assert.Equal(t, "member-only", gjson.Get(out, "plan").String())
	assert.Equal(t, int64(1), gjson.Get(out, "personas.#").Int())
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "run", "--format", "xml")
	assert.Error(t, err)
}
