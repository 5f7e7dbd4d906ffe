// ABOUTME: Entry point for the play-silence command
// ABOUTME: Parses flags, opens the output and plays silence until signalled
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gwwtests/play-silence/internal/config"
	"github.com/gwwtests/play-silence/internal/logging"
	"github.com/gwwtests/play-silence/internal/ui"
	"github.com/gwwtests/play-silence/internal/version"
	"github.com/gwwtests/play-silence/pkg/silence"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run(programName(), os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

func programName() string {
	if len(os.Args) == 0 {
		return version.Product
	}
	return filepath.Base(os.Args[0])
}

// run executes the program and returns its exit code
func run(program string, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	cfg := config.DefaultConfig()
	for _, problem := range cfg.LoadEnv(getenv) {
		fmt.Fprintf(stderr, "Warning: ignoring %v\n", problem)
	}

	if err := cfg.Parse(program, args, stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	runFlag := silence.NewRunFlag()

	if cfg.TUI {
		return runTUI(cfg, runFlag, stderr)
	}

	printBanner(stdout)

	logs, err := logging.New(stdout, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := logs.Logger(logging.Main)
	log.Debugf("Device %q, backend %s, %d frames per write", cfg.Device, cfg.Backend, cfg.ChunkSize)

	stopSignals := handleSignals(runFlag, func(sig os.Signal) {
		fmt.Fprintf(stdout, "\nReceived signal %v, shutting down gracefully...\n", sig)
	})
	defer stopSignals()

	err = silence.Play(cfg.Device, runFlag, playConfig(cfg, logs))
	return finish(err, stdout, stderr)
}

// runTUI plays with the status view in front. The view and the player run
// side by side; whichever ends first stops the other.
func runTUI(cfg *config.Config, runFlag *silence.RunFlag, stderr io.Writer) int {
	prog := ui.New(func() { runFlag.Stop() })

	logs, err := logging.New(logging.NewLineWriter(func(line string) {
		prog.Send(ui.LogMsg(line))
	}), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := logs.Logger(logging.Main)

	stopSignals := handleSignals(runFlag, func(sig os.Signal) {
		log.Infof("Received signal %v, shutting down gracefully...", sig)
	})
	defer stopSignals()

	pc := playConfig(cfg, logs)
	pc.Loop.OnState = func(s silence.State) {
		prog.Send(ui.StatusMsg{State: s.String()})
	}

	done := make(chan struct{})
	var g errgroup.Group
	pc.OnStart = func(s *silence.Session, l *silence.Loop) {
		hw := s.Config()
		prog.Send(ui.StatusMsg{
			Device:     s.DeviceName(),
			Backend:    s.Backend(),
			SampleRate: hw.SampleRate,
			Channels:   hw.Channels,
			BitDepth:   hw.Format.Bits(),
		})
		g.Go(func() error {
			statsUpdateLoop(l, done, prog.Send)
			return nil
		})
	}

	var playErr error
	g.Go(func() error {
		playErr = silence.Play(cfg.Device, runFlag, pc)
		close(done)
		prog.Send(ui.DoneMsg{Err: playErr})
		return nil
	})

	g.Go(func() error {
		_, err := prog.Run()
		runFlag.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintf(stderr, "Error: status view failed: %v\n", err)
		if playErr == nil {
			return 1
		}
	}
	return finish(playErr, io.Discard, stderr)
}

// statsUpdateLoop periodically pushes loop counters to the status view
func statsUpdateLoop(l *silence.Loop, done <-chan struct{}, send func(tea.Msg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := l.Stats()
			send(ui.StatusMsg{
				Frames:           stats.Frames,
				Writes:           stats.Writes,
				PartialWrites:    stats.PartialWrites,
				Underruns:        stats.Underruns,
				Recoveries:       stats.Recoveries,
				FailedRecoveries: stats.FailedRecoveries,
			})
		}
	}
}

func playConfig(cfg *config.Config, logs *logging.Logging) silence.PlayConfig {
	return silence.PlayConfig{
		Session: silence.Options{
			Backend:      cfg.Backend,
			BufferFrames: cfg.ChunkSize,
			Log:          logs.Logger(logging.Session),
			DriverLog:    logs.Logger(logging.Output),
		},
		Loop: silence.LoopConfig{
			BufferFrames: cfg.ChunkSize,
			Log:          logs.Logger(logging.Loop),
		},
	}
}

// handleSignals lowers the run flag on SIGINT or SIGTERM. The returned
// function unregisters the handler.
func handleSignals(runFlag *silence.RunFlag, notify func(os.Signal)) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	quit := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigChan:
				notify(sig)
				runFlag.Stop()
			case <-quit:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(quit)
	}
}

// finish reports the outcome and picks the exit code
func finish(err error, stdout, stderr io.Writer) int {
	if err == nil {
		fmt.Fprintln(stdout, "Program terminated successfully.")
		return 0
	}

	var stageErr *silence.StageError
	if errors.As(err, &stageErr) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stderr, "Silence playback aborted: %v\n", err)
	return 1
}

func printBanner(w io.Writer) {
	title := version.Banner()
	purpose := "Purpose: " + version.Purpose
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, purpose)
	fmt.Fprintln(w, strings.Repeat("=", max(len(title), len(purpose))))
	fmt.Fprintln(w)
}
