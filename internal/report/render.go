package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	dErrors "diagflow/pkg/domain-errors"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown report format %q", s)
}

func (f Format) ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".txt"
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatJSON:
		return renderJSON(w, r)
	case FormatText:
		return renderText(w, r)
	}
	return dErrors.Newf(dErrors.CodeInvalidInput, "unknown report format %q", f)
}

func renderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func renderText(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "diagflow report: %s (run %s)\n", r.Plan, r.RunID)
	fmt.Fprintf(&b, "started %s, took %s\n", r.StartedAt.Format(time.RFC3339), r.Duration())
	for _, pr := range r.Personas {
		fmt.Fprintf(&b, "\n%s %s\n", pr.Persona, pr.Status)
		for _, st := range pr.Steps {
			fmt.Fprintf(&b, "  %-12s %-8s %6dms", st.Step, st.Status, st.DurationMS)
			if st.Checks != nil {
				fmt.Fprintf(&b, "  checks %d/%d", st.Checks.Passed, st.Checks.Total)
			}
			if st.Detail != "" {
				fmt.Fprintf(&b, "  %s", st.Detail)
			}
			b.WriteByte('\n')
			for _, f := range st.Failures {
				fmt.Fprintf(&b, "    %s\n", f)
			}
		}
	}
	passed, failed := r.Counts()
	fmt.Fprintf(&b, "\n%d passed, %d failed\n", passed, failed)
	_, err := io.WriteString(w, b.String())
	return err
}

// Write renders r into dir as report-<run id> with the format's extension
// and returns the file path.
func Write(dir string, r *Report, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, "report-"+r.RunID+f.ext())
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := Render(file, r, f); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
