// ABOUTME: Scoped acquisition of a session around a playback loop
// ABOUTME: Opens the device, runs the loop and always closes the session
package silence

// PlayConfig combines session and loop settings for Play
type PlayConfig struct {
	Session Options
	Loop    LoopConfig

	// OnStart is called once the loop is built, before it runs
	OnStart func(s *Session, l *Loop)
}

// WithSession opens a session, passes it to fn and closes it on every
// exit path, including a panic in fn. Cleanup failures are logged by
// Close and do not replace fn's result.
func WithSession(identifier string, opts Options, fn func(s *Session) error) error {
	s, err := Open(identifier, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// Play keeps the identified device busy with silence until flag drops.
// It returns nil on a requested stop and the configuration or loop error
// otherwise.
func Play(identifier string, flag *RunFlag, cfg PlayConfig) error {
	return WithSession(identifier, cfg.Session, func(s *Session) error {
		lc := cfg.Loop
		if lc.BufferFrames <= 0 {
			lc.BufferFrames = cfg.Session.BufferFrames
		}
		lc.Channels = s.Config().Channels

		loop := NewLoop(s.Stream(), flag, lc)
		if cfg.OnStart != nil {
			cfg.OnStart(s, loop)
		}
		return loop.Run()
	})
}
