// Package harness orchestrates one comparison run: connect, flush, load
// both revisions, execute the catalog through the dual executor, compare,
// and tear down. Setup failures abort before any operation executes;
// per-operation failures are data, not errors.
package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sajjad-MoBe/kvdiff/internal/catalog"
	"github.com/sajjad-MoBe/kvdiff/internal/compare"
	"github.com/sajjad-MoBe/kvdiff/internal/connector"
	"github.com/sajjad-MoBe/kvdiff/internal/executor"
	"github.com/sajjad-MoBe/kvdiff/internal/loader"
	"github.com/sajjad-MoBe/kvdiff/internal/telemetry"
)

// Exit codes: the machine-checkable half of the report.
const (
	ExitPass       = 0
	ExitDivergence = 1
	ExitSetup      = 2
	ExitCrash      = 3
	ExitAborted    = 4
)

// Revision locates one side of the comparison.
type Revision struct {
	Path      string
	Namespace string
}

// Config is everything one run needs.
type Config struct {
	// Store is the backing-store connection; an empty endpoint skips the
	// harness's own connection, which only in-memory builtins tolerate.
	Store connector.Config

	Base Revision
	New  Revision

	OperationTimeout time.Duration
	CaptureState     bool

	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
	Logger  zerolog.Logger
}

// SetupError wraps a failure that occurred before any operation executed.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed at %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// AbortedError marks a run cut short from outside, typically a signal.
// No verdict exists: the catalog never finished on either side.
type AbortedError struct {
	Err error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("run aborted: %v", e.Err)
}

func (e *AbortedError) Unwrap() error {
	return e.Err
}

// Run performs one comparison and returns the report plus the process
// exit code. A non-nil error always means setup failed and no report
// exists.
func Run(ctx context.Context, cfg Config) (*compare.Report, int, error) {
	if cfg.Base.Namespace == cfg.New.Namespace {
		return nil, ExitSetup, &SetupError{Stage: "config",
			Err: fmt.Errorf("base and new must not share key-space %q", cfg.Base.Namespace)}
	}
	if nested(cfg.Base.Namespace, cfg.New.Namespace) {
		// One side's flush pattern would sweep the other's keys.
		return nil, ExitSetup, &SetupError{Stage: "config",
			Err: fmt.Errorf("key-spaces %q and %q must not nest", cfg.Base.Namespace, cfg.New.Namespace)}
	}

	specs, err := catalog.Build()
	if err != nil {
		return nil, ExitSetup, &SetupError{Stage: "catalog", Err: err}
	}

	baseLoaded, err := loader.Load(cfg.Base.Path, "base")
	if err != nil {
		return nil, ExitSetup, &SetupError{Stage: "load base", Err: err}
	}
	newLoaded, err := loader.Load(cfg.New.Path, "new")
	if err != nil {
		return nil, ExitSetup, &SetupError{Stage: "load new", Err: err}
	}

	var baseScoped, newScoped *connector.Scoped
	if cfg.Store.Endpoint != "" {
		conn, err := connector.Connect(ctx, cfg.Store)
		if err != nil {
			return nil, ExitSetup, &SetupError{Stage: "connect", Err: err}
		}
		defer conn.Close()

		baseScoped = conn.Namespace(cfg.Base.Namespace)
		newScoped = conn.Namespace(cfg.New.Namespace)
		for _, scoped := range []*connector.Scoped{baseScoped, newScoped} {
			if err := scoped.Flush(ctx); err != nil {
				return nil, ExitSetup, &SetupError{Stage: "flush " + scoped.Prefix(), Err: err}
			}
			// Leave no residue behind, whatever the verdict.
			defer func(s *connector.Scoped) {
				_ = s.Flush(context.Background())
			}(scoped)
		}
	}

	baseSide, err := newHandle(baseLoaded, cfg.Store.Endpoint, cfg.Base.Namespace, baseScoped)
	if err != nil {
		return nil, ExitSetup, &SetupError{Stage: "construct base", Err: err}
	}
	defer teardown(baseSide)
	newSide, err := newHandle(newLoaded, cfg.Store.Endpoint, cfg.New.Namespace, newScoped)
	if err != nil {
		return nil, ExitSetup, &SetupError{Stage: "construct new", Err: err}
	}
	defer teardown(newSide)

	cfg.Logger.Info().
		Str("base", cfg.Base.Path).
		Str("new", cfg.New.Path).
		Int("operations", len(specs)).
		Msg("starting comparison run")

	exec := &executor.Executor{
		Timeout:      cfg.OperationTimeout,
		CaptureState: cfg.CaptureState,
		Metrics:      cfg.Metrics,
		Tracer:       cfg.Tracer,
		Logger:       cfg.Logger,
	}
	pairs, err := exec.Run(ctx, specs, baseSide, newSide)
	if err != nil {
		return nil, ExitSetup, &SetupError{Stage: "execute", Err: err}
	}
	if ctx.Err() != nil {
		// A truncated run carries no verdict either way; reporting it as
		// a divergence would make Ctrl-C look like an incompatibility.
		return nil, ExitAborted, &AbortedError{Err: ctx.Err()}
	}

	report := compare.Compare(pairs)
	report.BasePath = cfg.Base.Path
	report.NewPath = cfg.New.Path

	for class, n := range report.Counts {
		for i := 0; i < n; i++ {
			cfg.Metrics.AddDivergence(string(class))
		}
	}

	code := ExitPass
	switch {
	case report.Counts[compare.Crash] > 0:
		code = ExitCrash
	case !report.Pass:
		code = ExitDivergence
	}
	cfg.Metrics.AddRun(status(code))
	cfg.Logger.Info().
		Str("run_id", report.RunID).
		Bool("pass", report.Pass).
		Int("records", len(report.Records)).
		Msg("comparison run finished")

	return report, code, nil
}

// newHandle constructs one side's store instance, bound to its own
// key-space, and wires the raw-key sanity source when the harness has its
// own connection.
func newHandle(loaded *loader.Loaded, endpoint, namespace string, scoped *connector.Scoped) (executor.Handle, error) {
	store, err := loaded.New(endpoint, namespace)
	if err != nil {
		return executor.Handle{}, err
	}
	h := executor.Handle{Side: loaded.LogicalName, Store: store}
	if scoped != nil {
		h.RawKeys = scoped.Keys
	}
	return h, nil
}

// teardown flushes and closes one side's store on every exit path.
func teardown(h executor.Handle) {
	if h.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), executor.DefaultTimeout)
	defer cancel()
	_ = h.Store.Clear(ctx)
	_ = h.Store.Close()
}

// nested reports whether one key-space prefix contains the other.
func nested(a, b string) bool {
	return strings.HasPrefix(a, b+":") || strings.HasPrefix(b, a+":")
}

func status(code int) string {
	switch code {
	case ExitPass:
		return "pass"
	case ExitDivergence:
		return "divergence"
	case ExitCrash:
		return "crash"
	default:
		return "setup_failure"
	}
}
