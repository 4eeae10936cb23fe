//go:build !tinygo

package telemetry

import (
	"context"

	"trafficlight-go/bus"
	"trafficlight-go/types"

	"go.uber.org/zap"
)

// LogEvent writes one bus message to log: mode changes at info, phase
// entries at debug, commands at debug or warn when fragments were skipped.
func LogEvent(log *zap.SugaredLogger, msg *bus.Message) {
	switch v := msg.Payload.(type) {
	case ModeEvent:
		log.Infow("mode", "from", v.From.String(), "to", v.To.String())
	case PhaseEvent:
		log.Debugw("phase", "phase", v.Phase, "hold_ms", v.HoldMs,
			"red", v.Frame[types.Red], "yellow", v.Frame[types.Yellow], "green", v.Frame[types.Green])
	case types.Plan:
		if len(v.Issues) == 0 {
			log.Debugw("command", "form", v.Form.String(), "actions", len(v.Actions))
			return
		}
		for _, is := range v.Issues {
			log.Warnw("command fragment skipped", "form", v.Form.String(), "code", string(is.Code), "token", is.Token)
		}
	case types.Status:
		log.Debugw("status", "mode", v.Mode.String(), "brightness", v.Brightness)
	}
}

// RunLog logs messages from sub until ctx is done or sub closes.
func RunLog(ctx context.Context, log *zap.SugaredLogger, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			LogEvent(log, msg)
		}
	}
}
