// ABOUTME: Entry point for the yako audio player
// ABOUTME: Builds the cobra command tree and runs the player with TUI or streaming logs
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yako-player/yako-go/internal/config"
	"github.com/yako-player/yako-go/internal/discovery"
	"github.com/yako-player/yako-go/internal/logging"
	"github.com/yako-player/yako-go/internal/remote"
	"github.com/yako-player/yako-go/internal/ui"
	"github.com/yako-player/yako-go/internal/version"
	"github.com/yako-player/yako-go/pkg/yako"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand shares
type app struct {
	v       *viper.Viper
	cfgFile string
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "yako [file]",
		Short: "Play audio files on the local output device",
		Long: `yako decodes MP3, FLAC, Ogg Vorbis, Opus, WAV and AIFF files and plays
them on the local output device. While it runs it can be driven from the
terminal UI or remotely with "yako ctl".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPlayer(cmd, args)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/yako/config.yaml)")
	root.PersistentFlags().String("backend", "malgo", "output backend (malgo, oto, portaudio, null)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	flags := root.Flags()
	flags.StringP("device", "d", "", "output device name (default: system default)")
	flags.Float64("volume", 1, "initial volume level in [0,1]")
	flags.Bool("mute", false, "start muted")
	flags.Int("buffer-capacity", 64000, "frame queue capacity")
	flags.Int("target-latency-ms", 80, "decode-ahead target in milliseconds")
	flags.String("log-file", "yako.log", "log file path")
	flags.Bool("tui", true, "show the terminal UI (--tui=false streams logs to stdout)")
	flags.String("name", "", "player name announced to remote controllers")
	flags.String("listen", config.DefaultListen, "remote-control listen address; use :8928 to accept LAN controllers (empty disables)")
	flags.Bool("mdns", true, "advertise the remote-control endpoint via mDNS (ignored for loopback listeners)")

	bind := map[string]string{
		"backend":           "backend",
		"log_level":         "log-level",
		"device":            "device",
		"volume":            "volume",
		"muted":             "mute",
		"buffer_capacity":   "buffer-capacity",
		"target_latency_ms": "target-latency-ms",
		"log_file":          "log-file",
		"tui":               "tui",
		"name":              "name",
		"remote.listen":     "listen",
		"remote.mdns":       "mdns",
	}
	for key, flag := range bind {
		f := root.Flags().Lookup(flag)
		if f == nil {
			f = root.PersistentFlags().Lookup(flag)
		}
		_ = a.v.BindPFlag(key, f)
	}

	root.AddCommand(
		newInfoCmd(),
		newDevicesCmd(a),
		newCtlCmd(),
		newVersionCmd(),
	)
	return root
}

// stateFanout forwards player state to listeners registered after the
// player was built
type stateFanout struct {
	mu        sync.RWMutex
	listeners []func(yako.PlayerState)
}

func (f *stateFanout) add(fn func(yako.PlayerState)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

func (f *stateFanout) publish(st yako.PlayerState) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fn := range f.listeners {
		fn(st)
	}
}

// runPlayer runs the player until the TUI quits or a signal arrives
func (a *app) runPlayer(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: !cfg.TUI,
	})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	log.Infof("Starting %s %s: %s", version.Product, version.Version, cfg.Name)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fanout := &stateFanout{}
	player, err := yako.NewPlayer(yako.PlayerConfig{
		Backend:        cfg.Backend,
		Device:         cfg.Device,
		BufferCapacity: cfg.BufferCapacity,
		TargetLatency:  cfg.TargetLatency(),
		Volume:         yako.Level(cfg.Volume),
		Muted:          cfg.Muted,
		Logger:         log,
		OnStateChange:  fanout.publish,
		OnError: func(err error) {
			log.Warnf("Player error: %v", err)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	defer func() {
		if err := player.Close(); err != nil {
			log.Errorf("Error closing player: %v", err)
		}
		log.Infof("Player stopped")
	}()

	var srv *remote.Server
	if cfg.Remote.Listen != "" {
		srv = remote.New(remote.Config{
			Addr:   cfg.Remote.Listen,
			Name:   cfg.Name,
			Player: player,
			Logger: log,
		})
		if err := srv.Start(); err != nil {
			return err
		}
		fanout.add(srv.Notify)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Warnf("Remote shutdown error: %v", err)
			}
		}()

		switch {
		case !cfg.Remote.MDNS:
		case cfg.Remote.LoopbackOnly():
			log.Infof("mDNS: not advertising loopback listener %s", cfg.Remote.Listen)
		default:
			mdnsMgr := discovery.NewManager(discovery.Config{
				ServiceName: cfg.Name,
				Port:        srv.Port(),
				Logger:      log,
			})
			if err := mdnsMgr.Advertise(); err != nil {
				log.Warnf("Failed to start mDNS advertisement: %v", err)
			}
			defer mdnsMgr.Stop()
		}
	}

	if len(args) == 1 {
		if err := player.Open(args[0]); err != nil {
			return err
		}
		if err := player.Play(); err != nil {
			return err
		}
	}

	if cfg.TUI {
		return runTUI(ctx, player, srv, cfg.Name, fanout)
	}

	// Streaming logs: a lone file ends the run when it finishes
	if len(args) == 1 && srv == nil {
		var once sync.Once
		ended := make(chan struct{})
		fanout.add(func(st yako.PlayerState) {
			if st.EndOfStream {
				once.Do(func() { close(ended) })
			}
		})
		select {
		case <-ended:
			log.Infof("Playback finished")
		case <-ctx.Done():
			log.Infof("Shutdown signal received")
		}
		return nil
	}

	logStatus(ctx, player, log)
	log.Infof("Shutdown signal received")
	return nil
}

// logStatus logs the status every few seconds when it changed, until ctx ends
func logStatus(ctx context.Context, player *yako.Player, log *zap.SugaredLogger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := player.Status()
			line := fmt.Sprintf("%s %s %v/%v", st.State, st.URI, st.Position.Round(time.Second), st.Duration.Round(time.Second))
			if line != last {
				log.Infof("Status: %s", line)
				last = line
			}
		}
	}
}

// runTUI owns the terminal until the user quits or ctx ends
func runTUI(ctx context.Context, player *yako.Player, srv *remote.Server, name string, fanout *stateFanout) error {
	prog := ui.New(player, name)
	fanout.add(func(st yako.PlayerState) {
		prog.Send(ui.StatusMsg{State: st})
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			if srv != nil {
				prog.Send(ui.RemoteMsg{Addr: srv.Addr().String(), Sessions: srv.Sessions()})
			}
			select {
			case <-ctx.Done():
				prog.Quit()
				return
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
