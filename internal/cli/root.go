package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/fragwatch/internal/config"
	"github.com/roach88/fragwatch/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// KeyFields comes from the environment only.
	KeyFields config.KeyFields

	// defaults for per-command flags
	defaultDB          string
	defaultMetricsAddr string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fragwatch CLI.
// Flag defaults come from cfg, so FRAGWATCH_* variables apply unless a
// flag overrides them.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{
		KeyFields:          cfg.KeyFields,
		defaultDB:          cfg.DB,
		defaultMetricsAddr: cfg.MetricsAddr,
	}

	cmd := &cobra.Command{
		Use:     "fragwatch",
		Version: ir.Version,
		Short:   "fragwatch - live fragment projections over a normalized store",
		Long: `fragwatch reads fragments of records from a normalized SQLite store and
keeps them up to date as records change.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", cfg.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewReadCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger builds the command logger: text on w, debug under --verbose,
// warnings only otherwise so that command output stays readable.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
