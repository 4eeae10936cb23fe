// Command trafficsim runs the traffic-light firmware on the host: stdin is
// the serial port, stdout carries status lines, buttons and the pot are
// driven from a script. Logs go to stderr.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trafficlight-go/internal/command"
	"trafficlight-go/internal/config"
	"trafficlight-go/internal/logging"
	"trafficlight-go/types"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	logger = logging.New("trafficsim")
	opts   = simOptions{StepMs: 1, Speed: 1}
)

var rootCmd = &cobra.Command{
	Use:               "trafficsim",
	Short:             "Run the traffic-light firmware against simulated hardware",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return applyLogLevel(cmd) },
	RunE:              runSim,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := config.Encode(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <line>...",
	Short: "Show how command lines are parsed without running anything",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, line := range args {
			describePlan(cmd.OutOrStdout(), line)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "TOML config file")
	pf.Uint32Var(&opts.StatusIntervalMs, "status-interval", 500, "ms between status lines (0 = every pass)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	f := rootCmd.Flags()
	f.BoolVar(&opts.Virtual, "virtual", false, "use a virtual clock advanced by --step per pass")
	f.IntVar(&opts.StepMs, "step", 1, "virtual ms per pass")
	f.Float64Var(&opts.Speed, "speed", 1, "virtual time speed-up (0 = as fast as possible)")
	f.StringVarP(&opts.ScriptPath, "script", "s", "", "input script (wait/press/pot/quit or command lines)")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&opts.Watch, "watch", false, "reapply durations when the config file changes")
	f.BoolVar(&opts.NoStdin, "no-stdin", false, "do not read commands from stdin")
	f.Int64Var(&opts.ForMs, "for", 0, "stop after this many ms of (virtual) time")

	rootCmd.AddCommand(configCmd, parseCmd)
}

// loadConfig reads the file and environment, then applies flags the user
// set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		logger.Debugw("flag", "name", f.Name, "value", f.Value.String())
	})
	// Every-pass status would flood a terminal at 1 ms passes, so the flag's
	// default also replaces a zero from the profile.
	if cmd.Flags().Changed("status-interval") || cfg.Timing.StatusIntervalMs == 0 {
		cfg.Timing.StatusIntervalMs = opts.StatusIntervalMs
	}
	return cfg, nil
}

func applyLogLevel(cmd *cobra.Command) error {
	s, _ := cmd.Flags().GetString("log-level")
	lvl, err := logging.ParseLevel(s)
	if err != nil {
		return err
	}
	logging.GetLeveler().SetDefault(lvl)
	return nil
}

func runSim(cmd *cobra.Command, _ []string) error {
	if opts.Virtual && opts.StepMs < 1 {
		return fmt.Errorf("--step must be at least 1")
	}
	if opts.Watch && opts.ConfigPath == "" {
		return fmt.Errorf("--watch needs --config")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Infow("config", "board", cfg.Board.Name, "durations", cfg.Timing.Durations,
		"status_interval_ms", cfg.Timing.StatusIntervalMs)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var in io.Reader = cmd.InOrStdin()
	if opts.NoStdin {
		in = nil
	}
	s, err := newSim(ctx, opts, cfg, in, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	if opts.MetricsAddr != "" {
		s.serveMetrics(ctx, opts.MetricsAddr)
	}
	if opts.Watch {
		if err := s.watchConfig(ctx); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
	}
	return s.run(ctx)
}

func describePlan(w io.Writer, line string) {
	p := command.Parse(line)
	fmt.Fprintf(w, "%q: form=%s\n", line, p.Form)
	for _, a := range p.Actions {
		switch a.Op {
		case types.OpSetDuration:
			fmt.Fprintf(w, "  %s %s=%d\n", a.Op, a.Color, a.Value)
		case types.OpSetBrightness:
			fmt.Fprintf(w, "  %s %d\n", a.Op, a.Value)
		case types.OpSimulateButton:
			fmt.Fprintf(w, "  %s %d\n", a.Op, a.Button)
		case types.OpReapply:
			fmt.Fprintf(w, "  %s %s\n", a.Op, a.Color)
		}
	}
	for _, is := range p.Issues {
		fmt.Fprintf(w, "  skipped %s: %s\n", strings.TrimSpace(is.Token), is.Code)
	}
}

func main() {
	defer logger.Sync()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Errorw("trafficsim failed", "error", err)
		os.Exit(1)
	}
}
