package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fragwatch/internal/fragment"
	"github.com/roach88/fragwatch/internal/ir"
)

// RequestFlags are the flags read and watch share to describe a request.
type RequestFlags struct {
	Database     string
	Document     string
	Fragment     string
	From         string
	Vars         string
	Partial      bool
	NoOptimistic bool
	Canonize     bool
}

func (f *RequestFlags) register(cmd *cobra.Command, defaultDB string) {
	cmd.Flags().StringVar(&f.Database, "db", defaultDB, "path to SQLite database")
	cmd.Flags().StringVar(&f.Document, "doc", "", "CUE fragment document (required)")
	cmd.Flags().StringVar(&f.Fragment, "name", "", "fragment name (required when the document has several)")
	cmd.Flags().StringVar(&f.From, "from", "", `record id, or a JSON object to identify (required)`)
	cmd.Flags().StringVar(&f.Vars, "vars", "", "request variables as a JSON object")
	cmd.Flags().BoolVar(&f.Partial, "partial", false, "return partial data for incomplete reads")
	cmd.Flags().BoolVar(&f.NoOptimistic, "no-optimistic", false, "ignore optimistic layers")
	cmd.Flags().BoolVar(&f.Canonize, "canonize", false, "return results in canonical form")
	_ = cmd.MarkFlagRequired("doc")
	_ = cmd.MarkFlagRequired("from")
}

// options turns the flags into subscription options.
func (f *RequestFlags) options(doc *ir.Document) (fragment.Options, error) {
	from, err := parseFrom(f.From)
	if err != nil {
		return fragment.Options{}, err
	}
	vars, err := ParseVariables(f.Vars)
	if err != nil {
		return fragment.Options{}, err
	}
	return fragment.Options{
		From:         from,
		Document:     doc,
		FragmentName: f.Fragment,
		Variables:    vars,
		Optimistic:   fragment.Bool(!f.NoOptimistic),
		ReadOptions: ir.ReadOptions{
			ReturnPartialData: f.Partial,
			CanonizeResults:   f.Canonize,
		},
	}, nil
}

// parseFrom accepts an id, or a JSON object such as
// {"__typename":"Item","id":1} that the store identifies.
func parseFrom(s string) (any, error) {
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return s, nil
	}
	obj, err := ir.UnmarshalIRObject([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("parse --from: %w", err)
	}
	return obj, nil
}

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	RequestFlags
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Project a fragment of one record",
		Long: `Read one fragment of one record and print the projected result.

Example:
  fragwatch read --db ./fragwatch.db --doc items.cue --name ItemFields --from Item:1
  fragwatch read --doc items.cue --from '{"__typename":"Item","id":1}' --partial`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, cmd)
		},
	}

	opts.RequestFlags.register(cmd, rootOpts.defaultDB)

	return cmd
}

func runRead(opts *ReadOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.newLogger(cmd.ErrOrStderr())

	doc, err := LoadDocument(opts.Document)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompile, "failed to load document", err)
	}
	fopts, err := opts.options(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid request", err)
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

	request, err := fragment.BuildRequest(c, fopts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSubscription, "failed to build request", err)
	}
	formatter.VerboseLog("Reading %s with fragment %s", request.ID, request.Fragment.Name)

	diff, err := c.Diff(ctx, request)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read", err)
	}

	return formatter.Result(newResultView("", 0, fragment.Project(diff, nil)))
}
