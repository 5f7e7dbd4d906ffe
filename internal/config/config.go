// ABOUTME: Command-line and environment configuration for play-silence
// ABOUTME: Defaults, PLAY_SILENCE_* overrides, flag parsing and validation
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gwwtests/play-silence/internal/logging"
	"github.com/gwwtests/play-silence/pkg/audio"
	"github.com/gwwtests/play-silence/pkg/audio/output"
)

// Environment variables read by LoadEnv
const (
	EnvDevice    = "PLAY_SILENCE_DEVICE"
	EnvBackend   = "PLAY_SILENCE_BACKEND"
	EnvChunkSize = "PLAY_SILENCE_CHUNK_SIZE"
	EnvLogLevel  = "PLAY_SILENCE_LOG_LEVEL"
)

// MaxChunkSize bounds the frames written per call
const MaxChunkSize = 65536

// Backends lists the accepted -backend values
var Backends = []string{output.BackendAuto, "pulse", "alsa", "miniaudio", "oto", "portaudio"}

// ErrUsage marks invalid command-line arguments
var ErrUsage = errors.New("invalid arguments")

// Config holds everything the player needs to start
type Config struct {
	Device    string
	Backend   string
	ChunkSize int
	LogLevel  string
	TUI       bool
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Device:    output.DefaultDevice,
		Backend:   output.BackendAuto,
		ChunkSize: audio.DefaultBufferFrames,
		LogLevel:  logging.DefaultLevel,
	}
}

// LoadEnv applies PLAY_SILENCE_* overrides using getenv. Values that do
// not parse are ignored and reported.
func (c *Config) LoadEnv(getenv func(string) string) []error {
	if getenv == nil {
		getenv = os.Getenv
	}

	var problems []error

	if v := getenv(EnvDevice); v != "" {
		c.Device = v
	}
	if v := getenv(EnvBackend); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := getenv(EnvChunkSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkSize = n
		} else {
			problems = append(problems, fmt.Errorf("%s: %w", EnvChunkSize, err))
		}
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}

	return problems
}

// Parse reads flags and the optional device argument on top of c. It
// returns flag.ErrHelp for -h/--help and ErrUsage for bad arguments.
func (c *Config) Parse(program string, args []string, usageOut io.Writer) error {
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(usageOut)
	fs.Usage = func() { Usage(usageOut, program) }

	fs.StringVar(&c.Backend, "backend", c.Backend, "Driver serving the default device: "+strings.Join(Backends, ", "))
	fs.IntVar(&c.ChunkSize, "chunk-size", c.ChunkSize, "Frames written per call")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: trace, debug, info, warn, error")
	fs.BoolVar(&c.TUI, "tui", c.TUI, "Show a live status view instead of streaming logs")

	// flag stops at the first positional argument, so parse again after
	// each one to accept flags on either side of the device name.
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if fs.NArg() == 0 {
			break
		}
		if consumed := len(args) - fs.NArg(); consumed > 0 && args[consumed-1] == "--" {
			positional = append(positional, fs.Args()...)
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch len(positional) {
	case 0:
	case 1:
		c.Device = positional[0]
	default:
		Usage(usageOut, program)
		return fmt.Errorf("%w: expected at most one device name, got %d", ErrUsage, len(positional))
	}

	return nil
}

// Validate checks that the configuration can be used
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Device) == "" {
		return fmt.Errorf("device name must not be empty")
	}
	c.Backend = strings.ToLower(c.Backend)
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (use %s)", c.Backend, strings.Join(Backends, ", "))
	}
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunk size must be between 1 and %d frames, got %d", MaxChunkSize, c.ChunkSize)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Usage prints the help text
func Usage(w io.Writer, program string) {
	fmt.Fprintf(w, "Usage: %s [flags] [device_name]\n", program)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Play silence indefinitely to keep an audio output active.\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Arguments:\n")
	fmt.Fprintf(w, "  device_name    Output device (default: 'default')\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Flags:\n")
	fmt.Fprintf(w, "  -backend NAME      Driver for the default device: %s (default: auto)\n", strings.Join(Backends, ", "))
	fmt.Fprintf(w, "  -chunk-size N      Frames written per call (default: %d)\n", audio.DefaultBufferFrames)
	fmt.Fprintf(w, "  -log-level LEVEL   trace, debug, info, warn or error (default: %s)\n", logging.DefaultLevel)
	fmt.Fprintf(w, "  -tui               Show a live status view\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Environment:\n")
	fmt.Fprintf(w, "  %s, %s, %s, %s\n", EnvDevice, EnvBackend, EnvChunkSize, EnvLogLevel)
	fmt.Fprintf(w, "  Flags take precedence over the environment.\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  %s                    # Use the default output\n", program)
	fmt.Fprintf(w, "  %s hw:0,0             # Use ALSA card 0, device 0\n", program)
	fmt.Fprintf(w, "  %s plughw:1,0         # Use ALSA card 1, device 0\n", program)
	fmt.Fprintf(w, "  %s pulse:SINK         # Use a PulseAudio sink by name\n", program)
	fmt.Fprintf(w, "  %s -backend oto       # Serve 'default' with oto\n", program)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Press Ctrl+C to stop the program.\n")
}
