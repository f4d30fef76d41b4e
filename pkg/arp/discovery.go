package arp

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/mdlayher/arp"
	"github.com/mdlayher/ethernet"
)

// Logger interface passes to Discovery
type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (*nullLogger) Printf(format string, v ...interface{}) {}

// Option recognized by Discovery
type Option func(*Discovery)

// WithLogger creates an option that sets the given logger to a Discovery object
func WithLogger(l Logger) Option {
	return func(d *Discovery) {
		d.logger = l
	}
}

// WithResolver attaches vendor information to every discovered entry.
func WithResolver(r Resolver) Option {
	return func(d *Discovery) {
		d.resolver = r
	}
}

// WithSendInterval sets the pause between two requests.
func WithSendInterval(t time.Duration) Option {
	return func(d *Discovery) {
		d.sendTimeout = t
	}
}

// NewDiscovery creates a new arp Discovery service for the given interface
func NewDiscovery(iface *net.Interface, opts ...Option) (*Discovery, error) {
	addresses, err := iface.Addrs()
	if err != nil {
		return nil, err
	}

	targets := make([]net.IP, 0)
	ips := make([]net.IP, 0)
	for _, a := range addresses {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		t, err := hosts(ipnet.String())
		if err != nil {
			return nil, err
		}
		targets = append(targets, t...)
		ips = append(ips, ipnet.IP)
	}
	if len(targets) == 0 {
		return nil, errors.New("no IPv4 network found on " + iface.Name)
	}

	c, err := arp.Dial(iface)
	if err != nil {
		return nil, err
	}
	return newDiscovery(c, iface, ips, targets, opts...), nil
}

func newDiscovery(c arpClient, iface *net.Interface, ips, targets []net.IP, opts ...Option) *Discovery {
	d := &Discovery{
		client:      c,
		sendTimeout: 10 * time.Millisecond,
		wTimeout:    2 * time.Second,
		rTimeout:    time.Second,
		myAddresses: ips,
		targets:     targets,
		iface:       iface,
		logger:      &nullLogger{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type arpClient interface {
	Request(net.IP) error
	Read() (*arp.Packet, *ethernet.Frame, error)
	SetWriteDeadline(time.Time) error
	SetReadDeadline(time.Time) error
	Close() error
}

// Discovery is used to locate devices on the network using the Address
// Resolution Protocol (ARP). Every device is reported once per Find, with
// its vendor when a Resolver is configured. A scan can be started using
// the "Find" method. This method blocks and ends only when the context
// has done.
// NOTE: to receive arp replies over the network interface cap_net_raw is
// required because a raw socket is used.
type Discovery struct {
	client      arpClient
	myAddresses []net.IP
	targets     []net.IP
	wTimeout    time.Duration
	rTimeout    time.Duration
	sendTimeout time.Duration
	discovered  discoveryTable
	iface       *net.Interface
	logger      Logger
	resolver    Resolver
}

// Targets returns the number of addresses a scan sends requests to.
func (a *Discovery) Targets() int {
	return len(a.targets)
}

// Close the unix raw socket used for sending and receiving
func (a *Discovery) Close() error {
	return a.client.Close()
}

// Find device entries in the network where the initialized interface is
// located. This method blocks and returns the results via the passed entry
// channel. The process can be terminated by canceling the passed context.
func (a *Discovery) Find(ctx context.Context, response chan<- Entry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.scan(ctx)
	return a.receive(ctx, response)
}

func (a *Discovery) scan(ctx context.Context) {
	for _, ip := range a.targets {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := a.client.SetWriteDeadline(time.Now().Add(a.wTimeout)); err != nil {
			a.logger.Printf("error: %v\n", err)
			continue
		}
		if err := a.client.Request(ip); err != nil {
			a.logger.Printf("error: request %s: %v\n", ip, err)
		}
		time.Sleep(a.sendTimeout)
	}
	a.logger.Printf("sent %d requests on %s\n", len(a.targets), a.iface.Name)
}

func (a *Discovery) receive(ctx context.Context, response chan<- Entry) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		// wake up regularly to observe the context
		if err := a.client.SetReadDeadline(time.Now().Add(a.rTimeout)); err != nil {
			return err
		}
		resp, _, err := a.client.Read()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			return err
		}

		if resp.Operation != arp.OperationReply {
			continue
		}
		if a.isOwn(resp.SenderIP) || a.discovered.seen(resp.SenderHardwareAddr) {
			continue
		}
		e := Entry{
			Address: resp.SenderIP,
			Type:    byte(resp.HardwareType),
			Flags:   byte(resp.ProtocolType),
			Mac:     resp.SenderHardwareAddr,
			Device:  a.iface,
		}
		resolve(&e, a.resolver)
		select {
		case response <- e:
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Discovery) isOwn(ip net.IP) bool {
	for _, own := range a.myAddresses {
		if own.Equal(ip) {
			return true
		}
	}
	return false
}
