package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	*RootOptions
	Database string
}

// WriteResult reports a completed write.
type WriteResult struct {
	Written int   `json:"written"`
	Seq     int64 `json:"seq"`
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "write <records.yaml>",
		Short: "Write records into the store",
		Long: `Write a YAML or JSON list of records into the store.

Each record has a typename, fields, and an optional id. Records without an
id are identified from their key fields (FRAGWATCH_KEY_FIELDS, default
"id"). Fields of an existing record are merged key by key.

Example:
  fragwatch write --db ./fragwatch.db records.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.defaultDB, "path to SQLite database")

	return cmd
}

func runWrite(opts *WriteOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.newLogger(cmd.ErrOrStderr())

	records, err := LoadRecordsFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "failed to load records", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, c, err := openCache(ctx, opts.RootOptions, opts.Database, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		c.Close()
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := c.Write(ctx, records...); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to write records", err)
	}

	result := WriteResult{Written: len(records), Seq: c.Clock().Current()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "wrote %d record(s) at seq %d\n", result.Written, result.Seq)
	return nil
}
