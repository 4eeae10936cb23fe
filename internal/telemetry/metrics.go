//go:build !tinygo

package telemetry

import (
	"context"
	"net/http"
	"strconv"

	"trafficlight-go/bus"
	"trafficlight-go/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trafficlight"

var allModes = []types.Mode{types.ModeOff, types.ModeNormal, types.ModeEmergency, types.ModeBlink}

// Metrics holds the simulator's Prometheus collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	modeChanges   *prometheus.CounterVec
	mode          *prometheus.GaugeVec
	phaseEntries  *prometheus.CounterVec
	phaseHold     prometheus.Gauge
	commands      *prometheus.CounterVec
	commandIssues *prometheus.CounterVec
	brightness    prometheus.Gauge
	lamp          *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		modeChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_changes_total",
			Help:      "Mode transitions by target mode",
		}, []string{"mode"}),
		mode: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mode",
			Help:      "1 for the active mode, 0 otherwise",
		}, []string{"mode"}),
		phaseEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normal",
			Name:      "phase_entries_total",
			Help:      "Normal-cycle phase entries by phase index",
		}, []string{"phase"}),
		phaseHold: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "normal",
			Name:      "phase_hold_milliseconds",
			Help:      "Hold time of the phase entered last",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "commands_total",
			Help:      "Applied command lines by form",
		}, []string{"form"}),
		commandIssues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "command_issues_total",
			Help:      "Skipped command fragments by error code",
		}, []string{"code"}),
		brightness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "brightness",
			Help:      "Current lamp brightness (0-255)",
		}),
		lamp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lamp_lit",
			Help:      "1 when the lamp is lit in the current frame",
		}, []string{"color"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe updates collectors from one bus message.
func (m *Metrics) Observe(msg *bus.Message) {
	switch v := msg.Payload.(type) {
	case ModeEvent:
		m.modeChanges.WithLabelValues(v.To.String()).Inc()
		for _, md := range allModes {
			g := 0.0
			if md == v.To {
				g = 1
			}
			m.mode.WithLabelValues(md.String()).Set(g)
		}
	case PhaseEvent:
		m.phaseEntries.WithLabelValues(strconv.Itoa(v.Phase)).Inc()
		m.phaseHold.Set(float64(v.HoldMs))
	case types.Plan:
		m.commands.WithLabelValues(v.Form.String()).Inc()
		for _, is := range v.Issues {
			m.commandIssues.WithLabelValues(string(is.Code)).Inc()
		}
	case types.Status:
		m.brightness.Set(float64(v.Brightness))
		m.lamp.WithLabelValues(types.Red.String()).Set(bit(v.Red))
		m.lamp.WithLabelValues(types.Yellow.String()).Set(bit(v.Yellow))
		m.lamp.WithLabelValues(types.Green.String()).Set(bit(v.Green))
	}
}

// Run feeds messages from sub into Observe until ctx is done or the
// subscription closes.
func (m *Metrics) Run(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			m.Observe(msg)
		}
	}
}

func bit(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
