// ABOUTME: High-level yako playback API
// ABOUTME: Provides the Player facade over device, pipeline and queue
// Package yako provides the high-level playback API.
//
// This is the main entry point for most library users, providing:
//   - Player: open a file, control transport, volume and mute
//   - State snapshots and change callbacks for user interfaces
//
// For lower-level control, see the audio, queue, decode, output and
// pipeline packages.
//
// Example:
//
//	player, err := yako.NewPlayer(yako.PlayerConfig{
//	    Backend: "malgo",
//	    Volume:  yako.Level(0.8),
//	})
//	err = player.Open("/path/to/song.flac")
//	err = player.Play()
//	defer player.Close()
package yako
