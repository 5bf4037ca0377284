package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gehuybre/embuild-analyses/internal/analysis"
	"github.com/gehuybre/embuild-analyses/internal/runner"
	"github.com/gehuybre/embuild-analyses/internal/store"
)

var (
	dataDir    string
	resultsDir string
	publicDir  string
	sharedDir  string
	dbPath     string
	runAllFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Batch transformations of Belgian construction statistics into JSON series",
	Long: `analyses reads the source exports of the Embuild data analyses
(employment, permits, EPC labels, business parks, municipal projects,
household energy) and writes normalized JSON time series for the site.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run [analysis...]",
	Short: "Run one or more analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !runAllFlag && len(args) == 0 {
			return fmt.Errorf("name at least one analysis or pass --all")
		}

		if err := store.InitDB(dbPath); err != nil {
			return fmt.Errorf("failed to open run database: %w", err)
		}
		defer store.Close()

		env := analysis.Env{
			DataDir:    dataDir,
			ResultsDir: resultsDir,
			PublicDir:  publicDir,
			SharedDir:  sharedDir,
		}

		if runAllFlag {
			return runner.RunAll(cmd.Context(), analysis.All(), env)
		}

		selected := make([]analysis.Analysis, 0, len(args))
		for _, name := range args {
			a, err := analysis.ByName(name)
			if err != nil {
				return err
			}
			selected = append(selected, a)
		}
		return runner.RunAll(cmd.Context(), selected, env)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available analyses",
	Run: func(cmd *cobra.Command, args []string) {
		for _, a := range analysis.All() {
			fmt.Printf("%-28s %s\n", a.Name(), a.Description())
		}
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.InitDB(dbPath); err != nil {
			return fmt.Errorf("failed to open run database: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		fmt.Printf("%-36s  %-28s  %-9s  %8s  %7s  %7s  %7s  %s\n",
			"RUN", "ANALYSIS", "STATUS", "ROWS", "SKIPPED", "DROPPED", "OUTPUTS", "STARTED")
		for _, run := range runs {
			fmt.Printf("%-36s  %-28s  %-9s  %8d  %7d  %7d  %7d  %s\n",
				run.ID, run.Analysis, run.Status,
				run.RowsRead, run.RowsSkipped, run.CellsDropped, run.OutputsWritten,
				run.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "directory holding the source files, one subdirectory per analysis")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "results", "directory for the JSON outputs")
	rootCmd.PersistentFlags().StringVar(&publicDir, "public-dir", "", "optional public data directory mirrored for the frontend")
	rootCmd.PersistentFlags().StringVar(&sharedDir, "shared-dir", "shared-data", "directory holding shared lookup data such as NIS codes")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "analyses.db", "path of the run-tracking database")

	runCmd.Flags().BoolVar(&runAllFlag, "all", false, "run every registered analysis")

	rootCmd.AddCommand(runCmd, listCmd, runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
