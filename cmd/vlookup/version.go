package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frzifus/ouilookup/pkg/version"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	return cmd
}
