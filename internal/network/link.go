package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/speedwagon-io/multisensor/internal/config"
)

// Associator joins the local network and reports the address obtained.
type Associator interface {
	Connect(ctx context.Context) (string, error)
	Disconnect() error
}

type AssociationError struct {
	SSID      string
	Interface string
	Err       error
}

func (e *AssociationError) Error() string {
	target := e.Interface
	if target == "" {
		target = "any interface"
	}
	if e.SSID != "" {
		return fmt.Sprintf("association with %q on %s failed: %v", e.SSID, target, e.Err)
	}
	return fmt.Sprintf("association on %s failed: %v", target, e.Err)
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

var ErrNoAddress = errors.New("no usable IPv4 address")

// Iface is the subset of net.Interface the link inspects.
type Iface struct {
	Name  string
	Up    bool
	Loop  bool
	Addrs []net.Addr
}

// HostLink treats the host's network stack as the association collaborator:
// Connect waits until the configured interface (or, when none is named, the
// first non-loopback interface that is up) carries an IPv4 address. Joining
// the wireless network itself is left to the operating system.
type HostLink struct {
	log        *slog.Logger
	cfg        config.NetworkConfig
	poll       time.Duration
	interfaces func() ([]Iface, error)
	address    string
}

func NewHostLink(log *slog.Logger, cfg config.NetworkConfig) *HostLink {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &HostLink{
		log:        log,
		cfg:        cfg,
		poll:       poll,
		interfaces: systemInterfaces,
	}
}

// Connect polls until an address shows up or cfg.ConnectTimeout elapses.
// The last sleep is cut short at the deadline so one final poll always
// happens there.
func (l *HostLink) Connect(ctx context.Context) (string, error) {
	var deadline time.Time
	if l.cfg.ConnectTimeout > 0 {
		deadline = time.Now().Add(l.cfg.ConnectTimeout)
	}

	l.log.Info("waiting for network",
		slog.String("ssid", l.cfg.SSID),
		slog.String("interface", l.cfg.Interface),
	)

	for attempt := 0; ; attempt++ {
		addr, err := l.lookup()
		if err == nil {
			l.address = addr
			l.log.Info("network connected", slog.String("address", addr))
			return addr, nil
		}

		delay := l.pollDelay(attempt)
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return "", l.associationError(err)
			}
			delay = min(delay, left)
		}

		l.log.Debug("network not ready",
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_in", delay),
			slog.String("reason", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.Canceled) {
				return "", ctx.Err()
			}
			return "", l.associationError(err)
		case <-timer.C:
		}
	}
}

// pollDelay doubles from the poll interval up to eight times it.
func (l *HostLink) pollDelay(attempt int) time.Duration {
	limit := 8 * l.poll
	delay := l.poll
	for i := 0; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

func (l *HostLink) associationError(err error) error {
	return &AssociationError{SSID: l.cfg.SSID, Interface: l.cfg.Interface, Err: err}
}

func (l *HostLink) Disconnect() error {
	if l.address != "" {
		l.log.Info("network released", slog.String("address", l.address))
	}
	l.address = ""
	return nil
}

func (l *HostLink) Address() string {
	return l.address
}

func (l *HostLink) lookup() (string, error) {
	ifaces, err := l.interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if l.cfg.Interface != "" && iface.Name != l.cfg.Interface {
			continue
		}
		if l.cfg.Interface == "" && iface.Loop {
			continue
		}
		if !iface.Up {
			continue
		}
		for _, a := range iface.Addrs {
			if ip := ipv4(a); ip != nil {
				return ip.String(), nil
			}
		}
	}

	if l.cfg.Interface != "" {
		return "", fmt.Errorf("%w on %s", ErrNoAddress, l.cfg.Interface)
	}
	return "", ErrNoAddress
}

func ipv4(a net.Addr) net.IP {
	var ip net.IP
	switch v := a.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	if ip == nil || ip.IsLinkLocalUnicast() {
		return nil
	}
	return ip.To4()
}

func systemInterfaces() ([]Iface, error) {
	nis, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Iface, 0, len(nis))
	for _, ni := range nis {
		addrs, err := ni.Addrs()
		if err != nil {
			continue
		}
		out = append(out, Iface{
			Name:  ni.Name,
			Up:    ni.Flags&net.FlagUp != 0,
			Loop:  ni.Flags&net.FlagLoopback != 0,
			Addrs: addrs,
		})
	}
	return out, nil
}
