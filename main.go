package main

import (
	"context"
	"time"

	"trafficlight-go/internal/buttons"
	"trafficlight-go/internal/config"
	"trafficlight-go/internal/firmware"
	"trafficlight-go/internal/platform"
	"trafficlight-go/x/timex"
)

// boardName selects the built-in profile; override with
// -ldflags "-X main.boardName=pico2".
var boardName = "pico"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot", boardName)

	cfg, ok := config.ProfileLookup(boardName)
	if !ok {
		halt("[main] unknown board " + boardName)
	}

	ctx := context.Background()
	b, err := platform.Open(ctx, cfg)
	if err != nil {
		halt("[main] board: " + err.Error())
	}

	q := &buttons.Queue{}
	if err := b.AttachButtons(q); err != nil {
		halt("[main] buttons: " + err.Error())
	}

	r, err := firmware.New(b.RunnerConfig(cfg, timex.System{}, q))
	if err != nil {
		halt("[main] runner: " + err.Error())
	}
	r.Start()
	println("[main] running")
	r.Run(ctx)
}

// halt reports a bring-up failure and parks.
func halt(msg string) {
	println(msg)
	for {
		time.Sleep(time.Hour)
	}
}
