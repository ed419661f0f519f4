// Package resolve implements the resolve and lookup commands.
package resolve

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lepinkainen/folio/internal/config"
	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/fileutil"
	"github.com/lepinkainen/folio/internal/resolver"
	"github.com/schollz/progressbar/v3"
)

// Options configures one resolve run.
type Options struct {
	ISBNs []string
	// InputFile is a text file with one ISBN per line, a CSV export, or "-"
	// for stdin.
	InputFile string
	// Columns are the CSV columns to read, in priority order.
	Columns []string
	Format  string
	// OutputFile receives the results instead of Out when set.
	OutputFile string
	Overwrite  bool

	Progress bool
	// Strict makes any failed lookup an error.
	Strict bool

	Save      bool
	LibraryDB string

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

func (o *Options) writers() (io.Writer, io.Writer) {
	out, errOut := o.Out, o.ErrOut
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return out, errOut
}

// Run resolves every identifier in opts and prints the results.
func Run(ctx context.Context, opts Options) error {
	out, errOut := opts.writers()

	ids, err := collectInputs(opts)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no ISBNs given (pass them as arguments or with --input)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	engine, closeCache, err := Build(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			slog.Warn("Failed to close cache", "error", err)
		}
	}()

	slog.Info("Resolving ISBNs", "count", len(ids), "provider", engine.Provider().Name())

	var onProgress resolver.ProgressFunc
	if opts.Progress {
		onProgress = progressReporter(errOut)
	}

	start := time.Now()
	outcomes, err := engine.Resolve(ctx, ids, onProgress)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	summary := resolver.Summarize(outcomes)
	slog.Debug("Resolve finished", "duration", time.Since(start), "found", summary.Found, "failed", summary.Failed)

	if err := writeResults(out, opts, outcomes); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(errOut, summaryLine(summary))

	if opts.Save {
		added, skipped, err := SaveFound(ctx, opts.LibraryDB, outcomes)
		if err != nil {
			return err
		}
		slog.Info("Library updated", "database", opts.LibraryDB, "added", added, "duplicates", skipped)
	}

	if opts.Strict && summary.Failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", summary.Failed, summary.Total)
	}
	return nil
}

func writeResults(out io.Writer, opts Options, outcomes []book.Outcome) error {
	if opts.OutputFile == "" {
		if err := render(out, opts.Format, outcomes); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := render(&buf, opts.Format, outcomes); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}
	if err := fileutil.WriteFile(opts.OutputFile, buf.Bytes(), opts.Overwrite); err != nil {
		return err
	}
	slog.Info("Wrote results", "file", opts.OutputFile, "format", opts.Format)
	return nil
}

// LookupOptions configures a single-identifier lookup.
type LookupOptions struct {
	ISBN   string
	Format string
	Out    io.Writer
}

// Lookup resolves one identifier and prints its details. A missing book is
// reported but is not an error; a failed lookup is.
func Lookup(ctx context.Context, opts LookupOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	engine, closeCache, err := Build(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	outcome := engine.ResolveOne(ctx, opts.ISBN)

	if opts.Format != "" && opts.Format != FormatTable {
		if err := render(out, opts.Format, []book.Outcome{outcome}); err != nil {
			return err
		}
		return outcome.Err()
	}

	switch outcome.Status() {
	case book.StatusFound:
		m, _ := outcome.Metadata()
		_, err := fmt.Fprintln(out, renderDetails(m))
		return err
	case book.StatusNotFound:
		_, err := fmt.Fprintf(out, "No book found for ISBN %s\n", outcome.ISBN)
		return err
	default:
		return fmt.Errorf("lookup failed: %w", outcome.Err())
	}
}

// progressReporter renders engine progress as a bar on w.
func progressReporter(w io.Writer) resolver.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(completed, total, found int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Resolving"),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Describe(fmt.Sprintf("Resolving (%d found)", found))
		_ = bar.Set(completed)
		if completed == total {
			_ = bar.Finish()
		}
	}
}
