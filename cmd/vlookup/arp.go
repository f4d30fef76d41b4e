package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/frzifus/ouilookup/pkg/arp"
)

const (
	format = "%-5s %-10s %-16s %-18s %-30s %-20s %-4s\n"
)

func arpCmd(opts *options) *cobra.Command {
	var (
		iface      string
		store      string
		trimVendor int
	)

	cmd := &cobra.Command{
		Use:   "arp",
		Short: "List the local arp cache with vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			entries := arp.ParseEntries(arp.FromCache())
			arp.Resolve(entries, svc)
			opts.logger().Printf("check %d entries\n", len(entries))

			var buf bytes.Buffer
			writeEntries(&buf, entries, iface, trimVendor)
			var b io.Reader = &buf
			if store != "" {
				f, err := os.Create(store)
				if err != nil {
					return err
				}
				defer f.Close()
				b = io.TeeReader(b, f)
			}
			_, err = io.Copy(cmd.OutOrStdout(), b)
			return err
		},
	}

	cmd.Flags().StringVarP(&iface, "interface", "i", "", "filter interface")
	cmd.Flags().StringVarP(&store, "out", "o", "", "output file")
	cmd.Flags().IntVar(&trimVendor, "trim.vendor", 30, "limits the length of the vendor field")
	return cmd
}

func writeHeader(w io.Writer) {
	fmt.Fprintf(w, format, "idx", "interface", "IP", "MAC", "Vendor", "Location", "CC")
	fmt.Fprintf(w, format, "---", "---------", "--", "---", "------", "--------", "--")
}

func writeEntries(w io.Writer, entries []*arp.Entry, iface string, trim int) {
	writeHeader(w)
	for i, e := range entries {
		if iface != "" && e.Device != nil && e.Device.Name != iface {
			continue
		}
		writeEntry(w, i, e, trim)
	}
}

func writeEntry(w io.Writer, idx int, e *arp.Entry, trim int) {
	devIface := "unknown"
	if e.Device != nil {
		devIface = e.Device.Name
	}
	name, location, country := "not found", "", ""
	if e.Vendor != nil {
		name, location, country = e.Vendor.Company, e.Vendor.Location, e.Vendor.Country
		if trim > 0 && len(name) > trim {
			name = name[:trim]
		}
	}
	fmt.Fprintf(w, format, strconv.Itoa(idx), devIface, e.Address.String(), e.Mac.String(), name, location, country)
}
