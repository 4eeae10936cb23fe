package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"trafficlight-go/bus"
	"trafficlight-go/internal/buttons"
	"trafficlight-go/internal/config"
	"trafficlight-go/internal/firmware"
	"trafficlight-go/internal/logging"
	"trafficlight-go/internal/platform"
	"trafficlight-go/internal/serialio"
	"trafficlight-go/internal/telemetry"
	"trafficlight-go/types"
	"trafficlight-go/x/timex"

	"go.uber.org/zap"
)

type simOptions struct {
	ConfigPath       string
	Virtual          bool
	StepMs           int
	Speed            float64
	ScriptPath       string
	MetricsAddr      string
	StatusIntervalMs uint32
	Watch            bool
	NoStdin          bool
	ForMs            int64
}

type sim struct {
	opts simOptions
	cfg  config.Config
	log  *zap.SugaredLogger

	board  *platform.Board
	lines  *serialio.Injector
	runner *firmware.Runner

	clk    timex.Clock
	manual *timex.Manual
	start  int64

	bus     *bus.Bus
	pub     *telemetry.Publisher
	metrics *telemetry.Metrics
	script  *script
}

// newSim opens the host board on in/out and wires the runner, telemetry
// and optional script. Background consumers stop with ctx.
func newSim(ctx context.Context, opts simOptions, cfg config.Config, in io.Reader, out io.Writer, log *zap.SugaredLogger) (*sim, error) {
	s := &sim{opts: opts, cfg: cfg, log: log}

	board, err := platform.OpenWith(ctx, cfg, in, out)
	if err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}
	s.board = board
	s.lines = serialio.NewInjector(board.Lines)

	if opts.Virtual {
		s.manual = timex.NewManual(0)
		s.clk = s.manual
	} else {
		s.clk = timex.System{}
	}
	s.start = s.clk.NowMs()

	s.bus = bus.NewBus(64)
	s.pub = telemetry.NewPublisher(s.bus.NewConnection("controller"))
	s.pub.Config(cfg)
	s.metrics = telemetry.NewMetrics()
	go s.metrics.Run(ctx, s.bus.NewConnection("metrics").Subscribe(telemetry.TopicAll))
	go telemetry.RunLog(ctx, logging.New("traffic"), s.bus.NewConnection("log").Subscribe(telemetry.TopicAll))

	q := &buttons.Queue{}
	if err := board.AttachButtons(q); err != nil {
		return nil, fmt.Errorf("attach buttons: %w", err)
	}
	rc := board.RunnerConfig(cfg, s.clk, q)
	rc.Lines = s.lines
	rc.Observer = s.pub
	rc.OnLine = s.onLine
	if s.runner, err = firmware.New(rc); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	if opts.ScriptPath != "" {
		f, err := os.Open(opts.ScriptPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if s.script, err = parseScript(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *sim) onLine(line string, p types.Plan) {
	if p.Form == types.FormNone && line != "" {
		s.log.Debugw("ignored line", "line", line)
	}
}

// serveMetrics exposes /metrics on addr until ctx is done.
func (s *sim) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		s.log.Infow("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorw("metrics server", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// watchConfig turns edits of the config file into duration commands.
func (s *sim) watchConfig(ctx context.Context) error {
	w := config.NewWatcher(s.opts.ConfigPath, logging.New("config"), func(c config.Config) {
		s.lines.Inject(config.DurationsLine(c.Timing.Durations))
	})
	return w.Start(ctx)
}

// run drives passes until ctx is done, the script quits or the time limit
// is reached.
func (s *sim) run(ctx context.Context) error {
	s.runner.Start()
	s.log.Infow("simulation started", "board", s.board.Name, "virtual", s.opts.Virtual)
	for ctx.Err() == nil {
		elapsed := s.clk.NowMs() - s.start
		quit := false
		if s.script != nil {
			s.script.due(elapsed, func(st step) { quit = s.apply(st) || quit })
		}
		s.runner.Pass()
		s.pub.Status(s.runner.Controller().Status())
		if quit || (s.opts.ForMs > 0 && elapsed >= s.opts.ForMs) {
			break
		}
		s.tick()
	}
	s.board.DetachButtons()
	s.log.Infow("simulation stopped", "passes", s.runner.Passes(), "elapsed_ms", s.clk.NowMs()-s.start)
	return nil
}

func (s *sim) tick() {
	if s.manual == nil {
		time.Sleep(firmware.DefaultPassInterval)
		return
	}
	step := time.Duration(s.opts.StepMs) * time.Millisecond
	s.manual.Advance(step)
	if s.opts.Speed > 0 {
		time.Sleep(time.Duration(float64(step) / s.opts.Speed))
	}
}

// apply performs one script step and reports whether it asks to quit.
func (s *sim) apply(st step) bool {
	switch st.kind {
	case stepLine:
		s.lines.Inject(st.line)
	case stepPress:
		if p := s.board.HostPin(types.Button(st.n)); p != nil {
			p.Press()
		}
	case stepPot:
		if adc := s.board.HostADC(); adc != nil {
			adc.SetLevel(uint8(st.n))
		}
	case stepQuit:
		return true
	}
	return false
}
