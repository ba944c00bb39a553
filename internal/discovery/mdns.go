// ABOUTME: mDNS advertisement and browsing for yako players
// ABOUTME: Announces the remote-control endpoint as _yako._tcp and finds others
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/yako-player/yako-go/internal/version"
	"github.com/yako-player/yako-go/pkg/protocol"
	"go.uber.org/zap"
)

const (
	// ServiceType is the DNS-SD service advertised by players
	ServiceType = "_yako._tcp"

	// DefaultBrowseTimeout bounds one browse round
	DefaultBrowseTimeout = 3 * time.Second
)

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Logger      *zap.SugaredLogger
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	log     *zap.SugaredLogger
	ctx     context.Context
	cancel  context.CancelFunc
	players chan *PlayerInfo
}

// PlayerInfo describes a discovered player
type PlayerInfo struct {
	Name    string
	Host    string
	Port    int
	Path    string
	Version string
}

// Addr returns host:port for dialing
func (p *PlayerInfo) Addr() string {
	return net.JoinHostPort(p.Host, fmt.Sprint(p.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		log:     config.Logger,
		ctx:     ctx,
		cancel:  cancel,
		players: make(chan *PlayerInfo, 10),
	}
}

// txtRecords describes the endpoint behind the advertised port
func txtRecords() []string {
	return []string{
		"path=" + protocol.Path,
		"version=" + version.Version,
		fmt.Sprintf("protocol=%d", protocol.Version),
	}
}

// Advertise advertises this player via mDNS until Stop
func (m *Manager) Advertise() error {
	if m.config.Port <= 0 {
		return fmt.Errorf("invalid port %d", m.config.Port)
	}
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.log.Infof("Discovery: advertising %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for players until Stop
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for players
func (m *Manager) browseLoop() {
	for m.ctx.Err() == nil {
		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				player := playerFromEntry(entry)
				if player == nil {
					continue
				}
				m.log.Debugf("Discovery: found %s at %s", player.Name, player.Addr())

				select {
				case m.players <- player:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Timeout = DefaultBrowseTimeout
		params.Entries = entries
		params.DisableIPv6 = true
		if err := mdns.Query(params); err != nil {
			m.log.Debugf("Discovery: query failed: %v", err)
		}
		close(entries)
		<-done

		select {
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

// playerFromEntry converts a service entry, or returns nil for foreign services
func playerFromEntry(entry *mdns.ServiceEntry) *PlayerInfo {
	if entry == nil || !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	host := ""
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	default:
		return nil
	}

	player := &PlayerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: host,
		Port: entry.Port,
		Path: protocol.Path,
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			player.Path = value
		case "version":
			player.Version = value
		}
	}
	return player
}

// Players returns the channel of discovered players
func (m *Manager) Players() <-chan *PlayerInfo {
	return m.players
}

// Find browses until the first player shows up or ctx ends
func Find(ctx context.Context, logger *zap.SugaredLogger) (*PlayerInfo, error) {
	m := NewManager(Config{Logger: logger})
	defer m.Stop()
	if err := m.Browse(); err != nil {
		return nil, err
	}

	select {
	case p := <-m.Players():
		return p, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no player found: %w", ctx.Err())
	}
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	ips := []net.IP{}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
