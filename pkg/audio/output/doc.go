// ABOUTME: Audio output package for playing PCM to sound devices
// ABOUTME: Provides the Driver/Device/HwParams/Stream interfaces and backends
// Package output opens sound devices and negotiates a blocking PCM stream.
//
// Drivers cover ALSA kernel devices, PulseAudio, miniaudio (malgo), oto and
// PortAudio (build with -tags portaudio). A Registry maps device identifiers
// such as "default", "hw:0,0" or "pulse:alsa_output.pci" to drivers.
//
// Example:
//
//	targets, err := output.DefaultRegistry().Resolve("hw:0,0", output.BackendAuto)
//	dev, err := targets[0].Driver.Open(targets[0].Name, output.OpenOptions{})
//	hw, err := dev.HwParams()
//	err = hw.SetAccess(audio.AccessRWInterleaved)
//	err = hw.SetFormat(audio.FormatS16LE)
//	err = hw.SetChannels(2)
//	rate, err := hw.SetRateNear(44100)
//	stream, err := hw.Commit()
//	frames, err := stream.Write(samples)
package output
