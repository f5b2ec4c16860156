package cmd

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sajjad-MoBe/kvdiff/internal/compare"
	"github.com/sajjad-MoBe/kvdiff/internal/connector"
	"github.com/sajjad-MoBe/kvdiff/internal/harness"
	"github.com/sajjad-MoBe/kvdiff/internal/telemetry"
)

var (
	selftestImpl     string
	selftestEndpoint string
)

// selftestCmd compares a revision against itself. Any record other than
// MATCH indicates a defect in the harness, not in the revision.
var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Compare a revision against itself; must always pass",
	Run:   runSelftest,
}

func init() {
	selftestCmd.Flags().StringVar(&selftestImpl, "impl", "builtin:memdict",
		"Revision to compare against itself")
	selftestCmd.Flags().StringVar(&selftestEndpoint, "endpoint", "",
		"Backing store address (required for store-backed revisions)")
}

func runSelftest(cmd *cobra.Command, args []string) {
	report, code, err := harness.Run(cmd.Context(), harness.Config{
		Store:            connector.Config{Endpoint: selftestEndpoint},
		Base:             harness.Revision{Path: selftestImpl, Namespace: "kvdiff_selftest_base"},
		New:              harness.Revision{Path: selftestImpl, Namespace: "kvdiff_selftest_new"},
		OperationTimeout: 5 * time.Second,
		CaptureState:     true,
		Metrics:          telemetry.NewMetrics(prometheus.NewRegistry()),
		Logger:           logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("selftest aborted")
		os.Exit(code)
	}

	compare.Render(os.Stdout, report, true)
	if !report.Pass {
		logger.Error().Msg("selftest found divergences in an identical pair; the harness itself is broken")
	}
	os.Exit(code)
}
