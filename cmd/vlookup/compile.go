package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frzifus/ouilookup/pkg/registry"
	"github.com/frzifus/ouilookup/pkg/table"
)

func compileCmd(opts *options) *cobra.Command {
	var (
		src       string
		out       string
		force     bool
		skipLines int
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Parse the registry and write the lookup table",
		Long: `Parse the IEEE MA-L registry and compile it into a lookup table.

The registry is read from --src when given, otherwise from the cache or the
network. A failed retrieval never produces a table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = opts.tablePath
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			doc, err := readDocument(ctx, opts, src, force)
			if err != nil {
				return err
			}

			records, err := registry.Parse(bytes.NewReader(doc),
				registry.WithSkipLines(skipLines),
				registry.WithLogger(opts.logger()),
			)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "warning: registry contains no records")
			}

			t := table.Compile(records)
			if err := table.Save(out, t); err != nil {
				return fmt.Errorf("save table: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "compiled %d entries into %s\n", t.Len(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&src, "src", "s", "", "use a local registry file instead of fetching")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: --table)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore the cached registry")
	cmd.Flags().IntVar(&skipLines, "skip-lines", registry.DefaultSkipLines, "number of preamble lines")
	return cmd
}

func readDocument(ctx context.Context, opts *options, path string, force bool) ([]byte, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	src, err := opts.source()
	if err != nil {
		return nil, err
	}
	return src.Document(ctx, force)
}
