package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/config"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/harness"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/store"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/tracing"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter string // scenario name glob
	Golden string // directory of <name>.golden traces
	Update bool   // rewrite golden traces
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Run member API scenarios",
		Long: `Run scenario files against a fresh member client each.

Directories are searched recursively for .yaml and .yml files. Scenarios
that do not declare a kv backend or audit ring use the configured ones.
With --golden each trace is compared against <dir>/<name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  dtsmember run ./scenarios
  dtsmember run ./scenarios --filter "car_*"
  dtsmember run ./scenarios --golden ./golden --update
  dtsmember run lifecycle.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden traces")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden traces (requires --golden)")

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *RunOptions, args []string) error {
	out := opts.formatter(cmd)
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	var files []string
	for _, arg := range args {
		found, err := findScenarioFiles(arg, opts.Filter)
		if err != nil {
			return out.fail(ExitCommandError, CodeLoad, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}

	hopts, cleanup, err := harnessOptions(opts.RootOptions)
	if err != nil {
		return out.fail(ExitCommandError, CodeStore, "failed to prepare run", err)
	}
	defer cleanup()

	result := RunResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, f := range files {
		out.VerboseLog("running %s", f)
		sr := runScenario(f, opts, hopts)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if err := out.Emit(result, func(w io.Writer) { writeRunText(w, result) }); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

// harnessOptions turns the loaded config into harness options. cleanup
// closes whatever was opened.
func harnessOptions(opts *RootOptions) ([]harness.Option, func(), error) {
	cfg := opts.Config
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	hopts := []harness.Option{
		harness.WithLogger(opts.Logger),
		harness.WithAudit(cfg.Audit.Capacity, cfg.Audit.Policy),
	}
	if cfg.Actor != "" {
		hopts = append(hopts, harness.WithActor(cfg.Actor))
	}
	if cfg.KV.Backend != config.BackendNone {
		hopts = append(hopts, harness.WithKVBackend(cfg.KV.Backend, cfg.KV.TTL))
	}

	stores := make(map[string]*store.Store)
	open := func(path string) (*store.Store, error) {
		if st, ok := stores[path]; ok {
			return st, nil
		}
		st, err := store.Open(path, store.WithLogger(opts.Logger))
		if err != nil {
			return nil, err
		}
		stores[path] = st
		closers = append(closers, func() { _ = st.Close() })
		return st, nil
	}
	if cfg.KV.Backend == config.BackendSQLite {
		st, err := open(cfg.KV.Path)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		hopts = append(hopts, harness.WithKVStore(st))
	}
	if cfg.Shard.Path != "" {
		st, err := open(cfg.Shard.Path)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		hopts = append(hopts, harness.WithShardStore(st))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.NewProvider(cfg.Tracing)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				opts.Logger.Warn("tracing shutdown failed", "error", err)
			}
		})
		hopts = append(hopts, harness.WithTracer(tp.Tracer()))
	}
	return hopts, cleanup, nil
}

// findScenarioFiles returns path itself when it is a file, or every YAML
// file below it when it is a directory.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

func runScenario(file string, opts *RunOptions, hopts []harness.Option) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	s, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = s.Name
	sr.Steps = len(s.Steps)

	res, err := harness.Run(s, hopts...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Errors = res.Errors

	if opts.Golden != "" {
		if err := compareGolden(opts, s.Name, res); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
		}
	}
	sr.Pass = len(sr.Errors) == 0
	return sr
}

func compareGolden(opts *RunOptions, name string, res *harness.Result) error {
	got, err := harness.Snapshot(name, res.Trace)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	path := filepath.Join(opts.Golden, name+".golden")
	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			return fmt.Errorf("write golden: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden: %w", err)
	}
	if bytes.Equal(got, want) {
		return nil
	}
	gotLines := strings.Split(string(got), "\n")
	wantLines := strings.Split(string(want), "\n")
	for i := 0; i < max(len(gotLines), len(wantLines)); i++ {
		var g, w string
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if i < len(wantLines) {
			w = wantLines[i]
		}
		if g != w {
			return fmt.Errorf("golden mismatch at line %d:\n  want: %s\n  got:  %s", i+1, w, g)
		}
	}
	return fmt.Errorf("golden mismatch")
}

func writeRunText(w io.Writer, result RunResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s (%d steps)\n", sr.Name, sr.Steps)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
