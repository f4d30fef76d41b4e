package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func lookupCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup MAC...",
		Short: "Print the vendor of one or more hardware addresses",
		Example: `  vlookup lookup 6C:63:9C:B6:92:09
  vlookup lookup -t /var/lib/vlookup/oui.table 6c-63-9c-b6-92-09 00:00:00:11:22:33`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			var (
				out      = cmd.OutOrStdout()
				found    = color.New(color.FgGreen)
				notFound = color.New(color.FgYellow)
				invalid  = color.New(color.FgRed)
				failed   int
			)
			for _, id := range args {
				v, ok, err := svc.Lookup(id)
				switch {
				case err != nil:
					failed++
					invalid.Fprintf(out, "%s: %v\n", id, err)
				case !ok:
					notFound.Fprintf(out, "%s: vendor not found\n", id)
				default:
					found.Fprintf(out, "%s: Vendor: %s, Address: %s, Country: %s\n", id, v.Company, v.Location, v.Country)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d identifiers are invalid", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}
