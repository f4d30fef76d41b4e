package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frzifus/ouilookup/pkg/cache"
	"github.com/frzifus/ouilookup/pkg/lookup"
	"github.com/frzifus/ouilookup/pkg/source"
	"github.com/frzifus/ouilookup/pkg/table"
)

const defaultTable = "oui.table"

// globals shared by all subcommands
type options struct {
	tablePath string
	cacheDir  string
	url       string
	verbose   bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "vlookup",
		Short: "Resolve hardware addresses to the vendor that registered them",
		Long: `vlookup compiles the IEEE MA-L registry (oui.txt) into a lookup table
and resolves MAC addresses against it.

  vlookup compile -o oui.table
  vlookup lookup 6C:63:9C:B6:92:09`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.tablePath, "table", "t", defaultTable, "compiled lookup table")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "registry cache directory (default: user cache dir)")
	flags.StringVar(&opts.url, "url", "", "registry location (default: $"+source.EnvDataURL+" or "+source.RemoteIeeeOUI+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print progress to stderr")

	rootCmd.AddCommand(
		fetchCmd(opts),
		compileCmd(opts),
		lookupCmd(opts),
		arpCmd(opts),
		discoverCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

type quietLogger struct{}

func (quietLogger) Printf(format string, v ...interface{}) {}

type printfLogger interface {
	Printf(format string, v ...interface{})
}

func (o *options) logger() printfLogger {
	if !o.verbose {
		return quietLogger{}
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

func (o *options) source() (*source.Source, error) {
	cacheOpt := cache.WithUserDir()
	if o.cacheDir != "" {
		if err := os.MkdirAll(o.cacheDir, 0o755); err != nil {
			return nil, err
		}
		cacheOpt = cache.WithPath(o.cacheDir)
	}
	c, err := cache.New(cacheOpt)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	srcOpts := []source.Option{source.WithStore(c), source.WithLogger(o.logger())}
	if o.url != "" {
		srcOpts = append(srcOpts, source.WithURL(o.url))
	}
	return source.New(srcOpts...), nil
}

func (o *options) service() (*lookup.Service, error) {
	t, err := table.Load(o.tablePath)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'vlookup compile' first)", err)
	}
	o.logger().Printf("loaded %d entries from %s\n", t.Len(), o.tablePath)
	return lookup.New(t), nil
}

// signalContext is canceled on SIGINT and SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
