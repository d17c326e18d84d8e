// Package osinterop hands URIs to the operating system's default handler.
package osinterop

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// Opener opens a URI with whatever the user has registered for its scheme
type Opener interface {
	OpenURI(ctx context.Context, uri string) error
}

// Runner starts a command and does not wait for it
type Runner func(ctx context.Context, name string, args ...string) error

// System opens URIs via xdg-open, open or rundll32 depending on the OS
type System struct {
	goos   string
	run    Runner
	logger zerolog.Logger
}

// Option is a functional option for configuring System.
type Option func(*System)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithRunner replaces how commands are started
func WithRunner(run Runner) Option {
	return func(s *System) {
		s.run = run
	}
}

// New creates an opener for the current OS
func New(opts ...Option) *System {
	s := &System{
		goos:   runtime.GOOS,
		run:    startCommand,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func startCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}

// OpenURI hands uri to the OS. Only absolute URIs are accepted.
func (s *System) OpenURI(ctx context.Context, uri string) error {
	u, err := url.Parse(uri)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("refusing to open %q: not an absolute URI", uri)
	}

	name, args := command(s.goos, uri)
	s.logger.Debug().Str("uri", uri).Str("cmd", name).Msg("opening uri")
	if err := s.run(ctx, name, args...); err != nil {
		return fmt.Errorf("opening %s: %w", uri, err)
	}
	return nil
}

func command(goos, uri string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", uri}
	case "darwin":
		return "open", []string{uri}
	default:
		return "xdg-open", []string{uri}
	}
}
