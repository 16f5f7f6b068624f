package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/speedwagon-io/multisensor/internal/config"
	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
)

var _ Associator = (*HostLink)(nil)

func ipNet(s string) net.Addr {
	ip, n, _ := net.ParseCIDR(s)
	n.IP = ip
	return n
}

func newTestLink(cfg config.NetworkConfig, ifaces ...Iface) *HostLink {
	l := NewHostLink(sl.Discard(), cfg)
	l.interfaces = func() ([]Iface, error) { return ifaces, nil }
	return l
}

func TestHostLink_ConnectFirstUsable(t *testing.T) {
	l := newTestLink(config.NetworkConfig{},
		Iface{Name: "lo", Up: true, Loop: true, Addrs: []net.Addr{ipNet("127.0.0.1/8")}},
		Iface{Name: "eth0", Up: false, Addrs: []net.Addr{ipNet("10.0.0.5/24")}},
		Iface{Name: "wlan0", Up: true, Addrs: []net.Addr{ipNet("fe80::1/64"), ipNet("192.168.1.42/24")}},
	)

	addr, err := l.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if addr != "192.168.1.42" {
		t.Errorf("Connect() = %q, want 192.168.1.42", addr)
	}
	if l.Address() != addr {
		t.Errorf("Address() = %q, want %q", l.Address(), addr)
	}

	if err := l.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if l.Address() != "" {
		t.Errorf("Address() after Disconnect = %q, want empty", l.Address())
	}
}

func TestHostLink_NamedInterface(t *testing.T) {
	l := newTestLink(config.NetworkConfig{Interface: "wlan0"},
		Iface{Name: "eth0", Up: true, Addrs: []net.Addr{ipNet("10.0.0.5/24")}},
		Iface{Name: "wlan0", Up: true, Addrs: []net.Addr{ipNet("192.168.1.42/24")}},
	)

	addr, err := l.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if addr != "192.168.1.42" {
		t.Errorf("Connect() = %q, want 192.168.1.42", addr)
	}
}

func TestHostLink_TimeoutIsAssociationError(t *testing.T) {
	l := newTestLink(config.NetworkConfig{
		SSID:           "home",
		Interface:      "wlan0",
		ConnectTimeout: 30 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	},
		Iface{Name: "wlan0", Up: false},
	)

	_, err := l.Connect(context.Background())

	var ae *AssociationError
	if !errors.As(err, &ae) {
		t.Fatalf("Connect() error = %v, want *AssociationError", err)
	}
	if ae.SSID != "home" || !errors.Is(err, ErrNoAddress) {
		t.Errorf("AssociationError = %+v", ae)
	}
}

func TestHostLink_CancelIsNotAssociationError(t *testing.T) {
	l := newTestLink(config.NetworkConfig{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Connect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, want context.Canceled", err)
	}
}

func TestHostLink_PollDelay(t *testing.T) {
	l := newTestLink(config.NetworkConfig{PollInterval: 100 * time.Millisecond})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		800 * time.Millisecond,
	}
	for attempt, w := range want {
		if got := l.pollDelay(attempt); got != w {
			t.Errorf("pollDelay(%d) = %s, want %s", attempt, got, w)
		}
	}
	if got := l.pollDelay(40); got != 800*time.Millisecond {
		t.Errorf("pollDelay(40) = %s, want 800ms", got)
	}
}

func TestHostLink_FinalPollAtDeadline(t *testing.T) {
	// Delays grow past the timeout, so without the cap the second poll
	// would land long after the deadline.
	l := newTestLink(config.NetworkConfig{
		ConnectTimeout: 40 * time.Millisecond,
		PollInterval:   30 * time.Millisecond,
	})

	var polls []time.Time
	l.interfaces = func() ([]Iface, error) {
		polls = append(polls, time.Now())
		return nil, nil
	}

	start := time.Now()
	_, err := l.Connect(context.Background())
	elapsed := time.Since(start)

	var ae *AssociationError
	if !errors.As(err, &ae) {
		t.Fatalf("Connect() error = %v, want *AssociationError", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Connect() took %s, want about the 40ms timeout", elapsed)
	}
	if len(polls) < 2 {
		t.Fatalf("polls = %d, want at least 2", len(polls))
	}
	if last := polls[len(polls)-1].Sub(start); last < 40*time.Millisecond {
		t.Errorf("last poll at %s, want at or after the 40ms deadline", last)
	}
}

func TestHostLink_AddressAppearsBeforeDeadline(t *testing.T) {
	l := newTestLink(config.NetworkConfig{
		ConnectTimeout: time.Second,
		PollInterval:   5 * time.Millisecond,
	})

	calls := 0
	l.interfaces = func() ([]Iface, error) {
		calls++
		if calls < 3 {
			return []Iface{{Name: "wlan0", Up: true}}, nil
		}
		return []Iface{{Name: "wlan0", Up: true, Addrs: []net.Addr{ipNet("192.168.1.7/24")}}}, nil
	}

	addr, err := l.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if addr != "192.168.1.7" || calls != 3 {
		t.Errorf("Connect() = %q after %d polls, want 192.168.1.7 after 3", addr, calls)
	}
}
