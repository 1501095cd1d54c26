package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/school-management/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start long running workers such as the scheduled translation export.`,
}

var exportWorkerCmd = &cobra.Command{
	Use:   "export",
	Short: "Export translations on a schedule",
	Long:  `Run the translation export (and optional deploy hook) on a cron schedule until interrupted`,
	Run: func(cmd *cobra.Command, args []string) {
		startExportWorker()
	},
}

var (
	exportSchedule  string
	exportOnStart   bool
	exportWithHook  bool
	exportRunWindow time.Duration
)

func startExportWorker() {
	stack, closeFn, err := openTranslationStack(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize export worker: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()
	lg := logger.LoggerWrapper()

	schedule := getStringFlag(exportSchedule, stack.Settings.ExportSchedule)

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), exportRunWindow)
		defer cancel()
		resp, err := stack.CMS.Publish(ctx, exportWithHook)
		if err != nil {
			lg.Error("scheduled export failed", "error", err)
			return
		}
		lg.Info("scheduled export finished",
			"files", resp.Summary.FileCount,
			"translations", resp.Summary.TranslationCount,
			"deployment_triggered", resp.DeploymentTriggered)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, run); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid export schedule %q: %v\n", schedule, err)
		os.Exit(1)
	}

	if exportOnStart {
		run()
	}

	c.Start()
	lg.Info("export worker is running. Press Ctrl+C to stop.", "schedule", schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down export worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	select {
	case <-c.Stop().Done():
		lg.Info("export worker shutdown complete")
	case <-ctx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
	}
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	exportWorkerCmd.Flags().StringVar(&exportSchedule, "schedule", "", "cron expression (overrides config)")
	exportWorkerCmd.Flags().BoolVar(&exportOnStart, "run-now", false, "export once before waiting for the schedule")
	exportWorkerCmd.Flags().BoolVar(&exportWithHook, "deploy", false, "trigger the deploy hook after each export")
	exportWorkerCmd.Flags().DurationVar(&exportRunWindow, "timeout", 5*time.Minute, "time limit for a single export")

	workerCmd.AddCommand(exportWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
