// Package lookup implements the lookup command.
package lookup

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/upcmap"
	"github.com/agentstation/upcmap/internal/cmd/output"
	"github.com/agentstation/upcmap/internal/cmd/table"
	"github.com/agentstation/upcmap/pkg/collector"
	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/products"
)

// AppContext defines what the lookup command needs from the app.
type AppContext interface {
	UpcmapWithOptions(...upcmap.Option) (upcmap.Upcmap, error)
	Logger() *zerolog.Logger
	OutputFormat() string
}

// Flags holds the lookup command flags.
type Flags struct {
	Sources         []string
	Limit           int
	Count           int
	Raw             bool
	AbortOnOverflow bool
	Concurrency     int
	Provenance      bool
	OutputFile      string
}

// NewCommand creates the lookup command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "lookup [codes...]",
		GroupID: "core",
		Short:   "Look up products by UPC code",
		Long: `Lookup queries every configured source for each code and prints one
reconciled record per code. For each field the first source in precedence
order that reports it wins; fields no source reports are shown as not
available.

Pass "-" to read codes from standard input, one per line. Blank lines and
lines starting with # are ignored.`,
		Example: `  upcmap lookup 0041196910759
  upcmap lookup 0041196910759 0028400090896 --raw
  cat codes.txt | upcmap lookup - -o json
  upcmap lookup 0041196910759 --sources open_food_facts --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, flags, args)
		},
	}

	cmd.Flags().StringSliceVar(&flags.Sources, "sources", nil, "sources to query in precedence order (default: all)")
	cmd.Flags().IntVar(&flags.Limit, "limit", -1, "live calls allowed per host (default from config)")
	cmd.Flags().IntVarP(&flags.Count, "count", "n", constants.DefaultItemsCount, fmt.Sprintf("maximum number of codes to process (1-%d)", constants.MaxItems))
	cmd.Flags().BoolVar(&flags.Raw, "raw", false, "also print each source's contribution")
	cmd.Flags().BoolVar(&flags.AbortOnOverflow, "abort-on-overflow", false, "stop the run when a host budget is exhausted")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0, fmt.Sprintf("codes to collect in parallel (1-%d, default from config)", constants.MaxConcurrency))
	cmd.Flags().BoolVar(&flags.Provenance, "provenance", false, "print which source supplied each field")
	cmd.Flags().StringVar(&flags.OutputFile, "output-file", "", "write output to a file instead of stdout")

	return cmd
}

func run(cmd *cobra.Command, app AppContext, flags *Flags, args []string) error {
	logger := app.Logger()

	format, err := output.ParseFormat(string(output.DetectFormat(app.OutputFormat())))
	if err != nil {
		return err
	}

	if flags.Count < 1 || flags.Count > constants.MaxItems {
		return errors.NewValidationError("count", flags.Count,
			fmt.Sprintf("must be between 1 and %d", constants.MaxItems))
	}

	codes, err := ReadCodes(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(codes) > flags.Count {
		logger.Warn().
			Int("given", len(codes)).
			Int("count", flags.Count).
			Msg("More codes than --count, processing the first ones")
		codes = codes[:flags.Count]
	}

	u, err := app.UpcmapWithOptions(flags.Options()...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
	defer cancel()

	result, lookupErr := u.Lookup(ctx, codes)
	if result == nil {
		return lookupErr
	}
	if !flags.Raw {
		result.Raw = nil
	}

	var buf bytes.Buffer
	if err := Render(&buf, format, result, flags); err != nil {
		return err
	}
	if err := write(cmd.OutOrStdout(), flags.OutputFile, buf.Bytes()); err != nil {
		return err
	}

	for _, id := range result.Exhausted {
		logger.Warn().Str("source", id.String()).Msg("Source ran out of request budget, its fields may be incomplete")
	}

	return lookupErr
}

// Options translates flags into upcmap options. Unset flags leave the
// configured values alone.
func (f *Flags) Options() []upcmap.Option {
	opts := []upcmap.Option{
		upcmap.WithMaxCodes(f.Count),
		upcmap.WithProvenance(f.Provenance),
	}
	if len(f.Sources) > 0 {
		ids := make([]products.SourceID, len(f.Sources))
		for i, s := range f.Sources {
			ids[i] = products.SourceID(strings.TrimSpace(s))
		}
		opts = append(opts, upcmap.WithSources(ids...))
	}
	if f.Limit >= 0 {
		opts = append(opts, upcmap.WithDefaultHostLimit(f.Limit))
	}
	if f.AbortOnOverflow {
		opts = append(opts, upcmap.WithOverflowPolicy(collector.OverflowAbortRun))
	}
	if f.Concurrency > 0 {
		opts = append(opts, upcmap.WithConcurrency(f.Concurrency))
	}
	return opts
}

// ReadCodes collects codes from args. The argument "-" reads codes from r,
// one per line.
func ReadCodes(args []string, r io.Reader) ([]products.Code, error) {
	var codes []products.Code
	for _, arg := range args {
		if arg != "-" {
			if code := strings.TrimSpace(arg); code != "" {
				codes = append(codes, products.Code(code))
			}
			continue
		}

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			codes = append(codes, products.Code(line))
		}
		if err := scanner.Err(); err != nil {
			return nil, errors.WrapIO("read", "stdin", err)
		}
	}

	if len(codes) == 0 {
		return nil, errors.NewValidationError("codes", nil, "at least one code is required")
	}
	return codes, nil
}

// Render writes result in the given format. Table formats print the
// reconciled records followed by the optional raw and provenance tables.
func Render(w io.Writer, format output.Format, result *upcmap.Result, flags *Flags) error {
	if !format.IsTable() {
		return output.NewFormatter(format).Format(w, result)
	}

	wide := format == output.FormatWide
	formatter := output.NewFormatter(format)

	if err := formatter.Format(w, table.RecordsToTableData(result.Records, wide)); err != nil {
		return err
	}

	if flags.Raw && result.Raw != nil {
		fmt.Fprintln(w, "\nRaw contributions:")
		if err := formatter.Format(w, table.RawToTableData(result.Raw)); err != nil {
			return err
		}
	}

	if flags.Provenance && len(result.Provenance) > 0 {
		fmt.Fprintln(w, "\nProvenance:")
		if err := formatter.Format(w, table.ProvenanceToTableData(result.Provenance)); err != nil {
			return err
		}
	}

	if wide {
		fmt.Fprintln(w, "\nRequest budgets:")
		if err := formatter.Format(w, table.BudgetsToTableData(result.Budgets)); err != nil {
			return err
		}
	}

	return nil
}

func write(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
