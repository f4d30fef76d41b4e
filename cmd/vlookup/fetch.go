package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func fetchCmd(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Retrieve the registry into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.source()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			doc, err := src.Document(ctx, force)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "registry ready: %d bytes from %s\n", len(doc), src.URL())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore the cached copy")
	return cmd
}
