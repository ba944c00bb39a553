// ABOUTME: Remote-control protocol message type definitions
// ABOUTME: Defines the JSON envelope, hello, command, status and info payloads
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Path is the websocket endpoint served by players
const Path = "/yako"

// Version is the protocol version exchanged in the handshake
const Version = 1

// Message types
const (
	TypeClientHello   = "client/hello"
	TypeClientCommand = "client/command"
	TypeClientGoodbye = "client/goodbye"
	TypeServerHello   = "server/hello"
	TypeServerStatus  = "server/status"
	TypeServerInfo    = "server/info"
	TypeServerResult  = "server/result"
)

// Commands understood by a player
const (
	CommandOpen   = "open"
	CommandPlay   = "play"
	CommandPause  = "pause"
	CommandStop   = "stop"
	CommandSeek   = "seek"
	CommandVolume = "volume"
	CommandMute   = "mute"
	CommandStatus = "status"
	CommandInfo   = "info"
)

// Commands lists every supported command in a stable order
var Commands = []string{
	CommandOpen, CommandPlay, CommandPause, CommandStop, CommandSeek,
	CommandVolume, CommandMute, CommandStatus, CommandInfo,
}

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecodePayload converts a received payload into v
func DecodePayload(msg Message, v interface{}) error {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return nil
}

// ClientHello is sent by controllers to open a session
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// DeviceInfo identifies the player software
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the player's response to client/hello
type ServerHello struct {
	ServerID          string     `json:"server_id"`
	SessionID         string     `json:"session_id"`
	Name              string     `json:"name"`
	Version           int        `json:"version"`
	DeviceInfo        DeviceInfo `json:"device_info"`
	SupportedCommands []string   `json:"supported_commands"`
}

// Command asks the player to do something. Only the fields the command
// needs are set.
type Command struct {
	ID       string   `json:"id,omitempty"`
	Command  string   `json:"command"`
	URI      string   `json:"uri,omitempty"`
	Position *float64 `json:"position,omitempty"` // seconds
	Volume   *float64 `json:"volume,omitempty"`   // 0..1
	Muted    *bool    `json:"muted,omitempty"`
}

// Validate checks that the command carries its argument
func (c Command) Validate() error {
	switch c.Command {
	case CommandOpen:
		if c.URI == "" {
			return fmt.Errorf("%s: missing uri", c.Command)
		}
	case CommandSeek:
		if c.Position == nil {
			return fmt.Errorf("%s: missing position", c.Command)
		}
	case CommandVolume:
		if c.Volume == nil {
			return fmt.Errorf("%s: missing volume", c.Command)
		}
	case CommandMute:
		if c.Muted == nil {
			return fmt.Errorf("%s: missing muted", c.Command)
		}
	case CommandPlay, CommandPause, CommandStop, CommandStatus, CommandInfo:
	default:
		return fmt.Errorf("unknown command %q", c.Command)
	}
	return nil
}

// Result acknowledges a command
type Result struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Status reports playback state. Pushed periodically and after changes.
type Status struct {
	State       string  `json:"state"` // "idle", "playing", "paused" or "ended"
	URI         string  `json:"uri,omitempty"`
	Title       string  `json:"title,omitempty"`
	Artist      string  `json:"artist,omitempty"`
	PositionMs  int64   `json:"position_ms"`
	DurationMs  int64   `json:"duration_ms"`
	Bitrate     int     `json:"bitrate"`
	Volume      float64 `json:"volume"`
	Muted       bool    `json:"muted"`
	EndOfStream bool    `json:"end_of_stream"`
	Available   bool    `json:"available"`
	SampleRate  int     `json:"sample_rate,omitempty"`
	Channels    int     `json:"channels,omitempty"`
}

// Position returns the playback position as a duration
func (s Status) Position() time.Duration {
	return time.Duration(s.PositionMs) * time.Millisecond
}

// Duration returns the track length as a duration
func (s Status) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// Info describes the open file
type Info struct {
	URI        string `json:"uri"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	Codec      string `json:"codec"`
	DurationMs int64  `json:"duration_ms"`
	Bitrate    int    `json:"bitrate"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth,omitempty"`
	CoverMIME  string `json:"cover_mime,omitempty"`
}

// ClientGoodbye is sent before a controller disconnects
type ClientGoodbye struct {
	Reason string `json:"reason"`
}
