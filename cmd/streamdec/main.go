// streamdec decodes a raw PDF stream payload from a file (or stdin)
// through a named filter chain and writes the decoded bytes to stdout.
//
//	streamdec -filters FlateDecode,ASCIIHexDecode encoded.bin > decoded.bin
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/wudi/pdfstream/filters"
	"github.com/wudi/pdfstream/ir/raw"
	"github.com/wudi/pdfstream/observability"
	"github.com/wudi/pdfstream/scratch"
)

type options struct {
	filterNames []string
	strict      bool
	useScratch  bool
	maxDecoded  int64
	inPath      string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamdec: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "streamdec: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: streamdec -filters <name,...> [flags] [file]\n")
		flag.PrintDefaults()
	}
	names := flag.String("filters", "", "Comma-separated filter chain in application order (e.g. FlateDecode,AHx)")
	flag.BoolVar(&opts.strict, "strict", false, "Reject malformed stage input instead of keeping partial output")
	flag.BoolVar(&opts.useScratch, "scratch", false, "Buffer intermediate stages in a temp file instead of memory")
	flag.Int64Var(&opts.maxDecoded, "max-decoded", 0, "Per-stage decoded byte cap (0 = unlimited)")
	flag.Parse()

	if *names != "" {
		for _, n := range strings.Split(*names, ",") {
			if n = strings.TrimSpace(n); n != "" {
				opts.filterNames = append(opts.filterNames, n)
			}
		}
	}
	if flag.NArg() > 1 {
		return opts, fmt.Errorf("at most one input file, got %d", flag.NArg())
	}
	if flag.NArg() == 1 {
		opts.inPath = flag.Arg(0)
	}
	return opts, nil
}

func run(opts options) error {
	var in io.ReadCloser = os.Stdin
	if opts.inPath != "" {
		f, err := os.Open(opts.inPath)
		if err != nil {
			return err
		}
		in = f
	}
	defer in.Close()

	dict := raw.Dict()
	if len(opts.filterNames) == 1 {
		dict.Set(raw.NameObj{Val: "Filter"}, raw.NameLiteral(opts.filterNames[0]))
	} else if len(opts.filterNames) > 1 {
		arr := raw.NewArray()
		for _, n := range opts.filterNames {
			arr.Append(raw.NameLiteral(n))
		}
		dict.Set(raw.NameObj{Val: "Filter"}, arr)
	}

	var space *scratch.ScratchSpace
	if opts.useScratch {
		sp, err := scratch.NewScratchSpace("")
		if err != nil {
			return err
		}
		defer sp.Close()
		space = sp
	}

	p := filters.NewPipeline(
		filters.WithLogger(slogLogger{slog.New(slog.NewTextHandler(os.Stderr, nil))}),
		filters.WithLimits(filters.Limits{MaxDecodedBytes: opts.maxDecoded}),
	)
	ds, err := p.DecodeStream(context.Background(), in, dict, space, filters.Options{Strict: opts.strict})
	if err != nil {
		return err
	}
	_, err = io.Copy(os.Stdout, ds)
	if cerr := ds.Close(); err == nil {
		err = cerr
	}
	return err
}

// slogLogger adapts log/slog to the pipeline's logger seam.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) attrs(fields []observability.Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key(), f.Value())
	}
	return out
}

func (s slogLogger) Debug(msg string, fields ...observability.Field) { s.l.Debug(msg, s.attrs(fields)...) }
func (s slogLogger) Info(msg string, fields ...observability.Field)  { s.l.Info(msg, s.attrs(fields)...) }
func (s slogLogger) Warn(msg string, fields ...observability.Field)  { s.l.Warn(msg, s.attrs(fields)...) }
func (s slogLogger) Error(msg string, fields ...observability.Field) { s.l.Error(msg, s.attrs(fields)...) }
func (s slogLogger) With(fields ...observability.Field) observability.Logger {
	return slogLogger{s.l.With(s.attrs(fields)...)}
}
