// ABOUTME: Tests for mDNS discovery
// ABOUTME: Covers manager lifecycle, TXT records and service entry parsing
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yako-player/yako-go/internal/version"
)

func TestNewManager(t *testing.T) {
	manager := NewManager(Config{ServiceName: "kitchen", Port: 8928})
	defer manager.Stop()

	require.NotNil(t, manager)
	assert.Equal(t, "kitchen", manager.config.ServiceName)
	assert.Equal(t, 8928, manager.config.Port)
	assert.NotNil(t, manager.log)
	assert.Equal(t, (<-chan *PlayerInfo)(manager.players), manager.Players())
}

func TestManagerStop(t *testing.T) {
	manager := NewManager(Config{ServiceName: "test", Port: 8080})
	manager.Stop()

	select {
	case <-manager.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("context should be cancelled after Stop()")
	}
}

func TestAdvertiseRejectsMissingPort(t *testing.T) {
	manager := NewManager(Config{ServiceName: "test"})
	defer manager.Stop()
	assert.Error(t, manager.Advertise())
}

func TestTXTRecords(t *testing.T) {
	assert.Equal(t, []string{"path=/yako", "version=" + version.Version, "protocol=1"}, txtRecords())
}

func TestPlayerFromEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *PlayerInfo
	}{
		{
			name: "ipv4 with txt",
			entry: &mdns.ServiceEntry{
				Name:       "kitchen._yako._tcp.local.",
				AddrV4:     net.IPv4(192, 168, 1, 20),
				Port:       8928,
				InfoFields: []string{"path=/yako", "version=0.3.0", "junk"},
			},
			want: &PlayerInfo{Name: "kitchen", Host: "192.168.1.20", Port: 8928, Path: "/yako", Version: "0.3.0"},
		},
		{
			name: "ipv6 without txt",
			entry: &mdns.ServiceEntry{
				Name:   "den._yako._tcp.local.",
				AddrV6: net.ParseIP("fe80::1"),
				Port:   9000,
			},
			want: &PlayerInfo{Name: "den", Host: "fe80::1", Port: 9000, Path: "/yako"},
		},
		{
			name:  "foreign service",
			entry: &mdns.ServiceEntry{Name: "printer._ipp._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1)},
		},
		{
			name:  "no address",
			entry: &mdns.ServiceEntry{Name: "x._yako._tcp.local."},
		},
		{name: "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, playerFromEntry(tt.entry))
		})
	}
}

func TestPlayerInfoAddr(t *testing.T) {
	assert.Equal(t, "192.168.1.20:8928", (&PlayerInfo{Host: "192.168.1.20", Port: 8928}).Addr())
	assert.Equal(t, "[fe80::1]:9000", (&PlayerInfo{Host: "fe80::1", Port: 9000}).Addr())
}

func TestFindHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Find(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetLocalIPs(t *testing.T) {
	ips, err := getLocalIPs()
	require.NoError(t, err)
	assert.NotNil(t, ips)

	for _, ip := range ips {
		assert.NotNil(t, ip.To4(), "non-IPv4 address %v", ip)
		assert.False(t, ip.IsLoopback(), "loopback address %v", ip)
	}
}
