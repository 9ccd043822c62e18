// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audiovis/cmd"
	"audiovis/internal/analysis"
	"audiovis/internal/audio"
	"audiovis/internal/config"
	"audiovis/internal/log"
	"audiovis/internal/source"
	"audiovis/internal/transport"
	"audiovis/internal/tui"
	"audiovis/pkg/build"
)

func main() {
	build.Initialize()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	if cfg == nil {
		// Help or version output already printed.
		return
	}

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
	}

	session, err := audio.Init()
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer session.Close()

	if cfg.Command == "list" {
		if err := runList(cfg); err != nil {
			log.Fatalf("list: %v", err)
		}
		if !cfg.Audio.Interactive {
			return
		}
		if cfg.Audio.InputDevice == config.MinDeviceID {
			return // Picker dismissed without a selection.
		}
	}

	if err := run(session, cfg); err != nil {
		log.Fatalf("run: %v", err)
	}
}

// runList prints the device table, or opens the interactive picker. A picked
// device is written back into cfg so the pipeline can start on it.
func runList(cfg *config.Config) error {
	if !cfg.Audio.Interactive {
		return audio.ListDevices()
	}

	id, err := tui.PickDevice()
	if err != nil {
		return err
	}
	cfg.Audio.InputDevice = id
	if id == config.MinDeviceID {
		return nil
	}
	log.Infof("selected capture device %d", id)
	return nil
}

// run wires the manager, analysis pipeline and transports together and
// drives the frame loop until a termination signal arrives.
func run(session *audio.Session, cfg *config.Config) error {
	manager := audio.NewManager(session, cfg)
	pipeline := analysis.NewPipeline(manager, config.WindowSize)
	manager.OnSwitch(pipeline.Reset)

	sinks := transport.Multi{
		transport.NewLoggingTransport(5 * time.Second),
	}
	if cfg.Transport.WSEnabled {
		sinks = append(sinks, transport.NewWebSocketTransport(cfg.Transport.WSPort))
	}
	defer sinks.Close()

	// Start on a file when one was given, otherwise on the microphone. A
	// missing microphone is not fatal: the pipeline idles until a source
	// becomes available.
	if cfg.Audio.File != "" {
		if err := manager.LoadFile(cfg.Audio.File); err != nil {
			return err
		}
	} else if err := manager.StartMicrophone(cfg.Audio.InputDevice); err != nil {
		if !errors.Is(err, source.ErrSourceUnavailable) {
			return err
		}
		log.Warnf("no capture device available, pipeline idle: %v", err)
	}
	defer manager.Stop()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	stop := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		frameLoop(pipeline, sinks, stop)
	}()

	log.Infof("running, source: %s", manager.SourceName())
	<-done
	close(stop)
	// Join the frame loop before the deferred transport Close runs, so no
	// Send can race the shutdown.
	<-loopDone

	log.Infof("shutting down: %d underruns, %d dropped samples",
		manager.Underruns(), manager.Dropped())
	return nil
}

// frameLoop steps the analysis at the target frame rate and publishes each
// snapshot.
func frameLoop(pipeline *analysis.Pipeline, sink transport.Transport, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / config.TargetFPS)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			feat := pipeline.Step(now)
			if err := sink.Send(feat); err != nil {
				log.Debugf("transport send: %v", err)
			}
		}
	}
}
