// ABOUTME: Subcommands for media info, device listing, remote control and version
// ABOUTME: ctl drives a running player over the remote-control protocol
package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yako-player/yako-go/internal/discovery"
	"github.com/yako-player/yako-go/internal/version"
	"github.com/yako-player/yako-go/pkg/audio"
	"github.com/yako-player/yako-go/pkg/audio/decode"
	"github.com/yako-player/yako-go/pkg/audio/output"
	"github.com/yako-player/yako-go/pkg/protocol"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print media information for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, info, err := decode.Open(args[0])
			if err != nil {
				return err
			}
			defer stream.Close()

			printInfo(cmd.OutOrStdout(), args[0], info)
			return nil
		},
	}
}

func printInfo(w io.Writer, uri string, info decode.MediaInfo) {
	fmt.Fprintf(w, "File:     %s\n", uri)
	if info.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", info.Title)
	}
	if info.Artist != "" {
		fmt.Fprintf(w, "Artist:   %s\n", info.Artist)
	}
	if info.Album != "" {
		fmt.Fprintf(w, "Album:    %s\n", info.Album)
	}
	fmt.Fprintf(w, "Codec:    %s\n", info.Format.Codec)
	fmt.Fprintf(w, "Format:   %d Hz, %d ch", info.Format.SampleRate, info.Format.Channels)
	if info.Format.BitDepth > 0 {
		fmt.Fprintf(w, ", %d-bit", info.Format.BitDepth)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Duration: %v\n", info.Duration.Round(time.Millisecond))
	if info.Bitrate > 0 {
		fmt.Fprintf(w, "Bitrate:  %d kbps\n", info.Bitrate/1000)
	}
	if len(info.Cover) > 0 {
		fmt.Fprintf(w, "Cover:    %s, %d bytes\n", info.CoverMIME, len(info.Cover))
	}
}

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List output devices for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			devices, err := output.ListDevices(cfg.Backend)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s\n", marker, d.Name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (protocol v%d)\n", version.Product, version.Version, protocol.Version)
		},
	}
}

func newCtlCmd() *cobra.Command {
	var addr string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ctl <command> [arg]",
		Short: "Control a running player",
		Long: `Send a command to a running player. Without --addr the first player
found via mDNS is used.

Commands:
  open <file>       open a file
  play | pause | stop
  seek <position>   seconds (90, 12.5) or duration (1m30s)
  volume <level>    0..1 or percent (40%)
  mute [on|off]
  status | info`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := parseCommand(args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if addr == "" {
				player, err := discovery.Find(ctx, nil)
				if err != nil {
					return err
				}
				addr = player.Addr()
			}

			client := protocol.NewClient(protocol.Config{ServerAddr: addr, Name: "yako ctl"})
			if err := client.Connect(ctx); err != nil {
				return err
			}
			defer client.Close()
			defer client.SendGoodbye("done")

			if _, err := client.Send(ctx, command); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch command.Command {
			case protocol.CommandStatus:
				printStatus(w, <-client.Statuses)
			case protocol.CommandInfo:
				info := <-client.Infos
				printInfo(w, info.URI, decode.MediaInfo{
					Title:  info.Title,
					Artist: info.Artist,
					Album:  info.Album,
					Format: audio.Format{
						Codec:      info.Codec,
						SampleRate: info.SampleRate,
						Channels:   info.Channels,
						BitDepth:   info.BitDepth,
					},
					Duration:  time.Duration(info.DurationMs) * time.Millisecond,
					Bitrate:   info.Bitrate,
					CoverMIME: info.CoverMIME,
				})
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "player address host:port (default: discover via mDNS)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "discovery and command timeout")
	return cmd
}

// parseCommand turns ctl arguments into a protocol command
func parseCommand(args []string) (protocol.Command, error) {
	cmd := protocol.Command{Command: strings.ToLower(args[0])}
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	switch cmd.Command {
	case protocol.CommandOpen:
		cmd.URI = arg
	case protocol.CommandSeek:
		if arg == "" {
			return cmd, fmt.Errorf("seek needs a position")
		}
		pos, err := parsePosition(arg)
		if err != nil {
			return cmd, err
		}
		cmd.Position = &pos
	case protocol.CommandVolume:
		if arg == "" {
			return cmd, fmt.Errorf("volume needs a level")
		}
		level, err := parseLevel(arg)
		if err != nil {
			return cmd, err
		}
		cmd.Volume = &level
	case protocol.CommandMute:
		muted := true
		switch strings.ToLower(arg) {
		case "", "on", "true", "1":
		case "off", "false", "0":
			muted = false
		default:
			return cmd, fmt.Errorf("mute expects on or off, got %q", arg)
		}
		cmd.Muted = &muted
	}

	return cmd, cmd.Validate()
}

// parsePosition accepts seconds or a Go duration, returning seconds
func parsePosition(s string) (float64, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative position %q", s)
		}
		return secs, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative position %q", s)
	}
	return d.Seconds(), nil
}

// parseLevel accepts 0..1 or a percentage
func parseLevel(s string) (float64, error) {
	percent := strings.HasSuffix(s, "%")
	level, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q", s)
	}
	if percent {
		level /= 100
	}
	if level < 0 || level > 1 {
		return 0, fmt.Errorf("volume %q out of range", s)
	}
	return level, nil
}

func printStatus(w io.Writer, st protocol.Status) {
	fmt.Fprintf(w, "State:    %s\n", st.State)
	if st.URI != "" {
		fmt.Fprintf(w, "File:     %s\n", st.URI)
		if st.Title != "" {
			fmt.Fprintf(w, "Title:    %s\n", st.Title)
		}
		fmt.Fprintf(w, "Position: %v / %v\n", st.Position().Round(time.Second), st.Duration().Round(time.Second))
	}
	muted := ""
	if st.Muted {
		muted = " (muted)"
	}
	fmt.Fprintf(w, "Volume:   %d%%%s\n", int(st.Volume*100+0.5), muted)
	if st.SampleRate > 0 {
		fmt.Fprintf(w, "Output:   %d Hz, %d ch (available: %v)\n", st.SampleRate, st.Channels, st.Available)
	}
}
