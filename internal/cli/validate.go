package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fragwatch/internal/compiler"
	"github.com/roach88/fragwatch/internal/ir"
)

// FragmentSummary describes one compiled fragment.
type FragmentSummary struct {
	Name   string `json:"name"`
	On     string `json:"on"`
	Fields int    `json:"fields"`
	Hash   string `json:"hash"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Fragments []FragmentSummary `json:"fragments,omitempty"`
	Line      int               `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.cue>",
		Short: "Compile a fragment document and list its fragments",
		Long: `Compile a CUE fragment document and report its fragments.

Exit codes:
  0 - Document is valid
  1 - Document does not compile
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("document not found: %s", path), nil)
	}

	formatter.VerboseLog("Compiling %s", path)
	doc, err := compiler.CompileFile(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	summaries, err := summarize(doc)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCompile, "failed to hash fragment", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Fragments: summaries})
	}

	fmt.Fprintf(formatter.Writer, "\u2713 %d fragment(s) valid\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "  %s on %s (%d field(s))\n", s.Name, s.On, s.Fields)
		formatter.VerboseLog("  %s hash %s", s.Name, s.Hash)
	}
	return nil
}

func summarize(doc *ir.Document) ([]FragmentSummary, error) {
	out := make([]FragmentSummary, 0, len(doc.Fragments))
	for i := range doc.Fragments {
		f := &doc.Fragments[i]
		hash, err := ir.FragmentHash(f)
		if err != nil {
			return nil, err
		}
		out = append(out, FragmentSummary{
			Name:   f.Name,
			On:     f.TypeCondition,
			Fields: len(f.Selections),
			Hash:   hash,
		})
	}
	return out, nil
}

// outputCompileError reports a compile failure. Compile failures are
// validation failures (exit code 1).
func outputCompileError(formatter *OutputFormatter, err error) error {
	line := 0
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) && compileErr.Pos.IsValid() {
		line = compileErr.Pos.Line()
	}

	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeCompile, err.Error(), ValidationResult{Valid: false, Line: line})
	} else {
		fmt.Fprintln(formatter.Writer, "\u2717 Validation failed")
		if line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %v\n", ErrCodeCompile, err)
	}
	return WrapExitError(ExitFailure, "validation failed", err)
}
