package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/frzifus/ouilookup/pkg/arp"
)

func discoverCmd(opts *options) *cobra.Command {
	var (
		ifaceName string
		timeout   time.Duration
		interval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the local network with ARP and print vendors",
		Long: `Send an ARP request to every host of the interface's IPv4 networks and
print each answering device with its vendor.

Receiving replies requires CAP_NET_RAW.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			iface, err := net.InterfaceByName(ifaceName)
			if err != nil {
				return fmt.Errorf("interface %s: %w", ifaceName, err)
			}
			d, err := arp.NewDiscovery(iface,
				arp.WithResolver(svc),
				arp.WithLogger(opts.logger()),
				arp.WithSendInterval(interval),
			)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
			defer cancelTimeout()

			found := make(chan arp.Entry)
			errc := make(chan error, 1)
			go func() {
				errc <- d.Find(ctx, found)
				close(found)
			}()

			out := cmd.OutOrStdout()
			writeHeader(out)
			i := 0
			for e := range found {
				e := e
				writeEntry(out, i, &e, 30)
				i++
			}
			if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			opts.logger().Printf("discovered %d devices\n", i)
			return nil
		},
	}

	cmd.Flags().StringVarP(&ifaceName, "interface", "i", "eth0", "network interface to scan")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "scan duration")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Millisecond, "pause between two requests")
	return cmd
}
