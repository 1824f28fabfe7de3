package filters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wudi/pdfstream/ir/raw"
	"github.com/wudi/pdfstream/observability"
	"github.com/wudi/pdfstream/scratch"
)

// Pipeline drives filter chains: it deduplicates the declared filter
// list, runs each surviving decoder into a stage buffer, and hands back
// the final decoded stream plus the per-stage results.
//
// A Pipeline holds no per-call state and may be shared across goroutines.
type Pipeline struct {
	registry *Registry
	limits   Limits
	logger   observability.Logger
	tracer   observability.Tracer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRegistry replaces the built-in decoder registry.
func WithRegistry(r *Registry) PipelineOption { return func(p *Pipeline) { p.registry = r } }

// WithLimits bounds per-stage decoded output.
func WithLimits(l Limits) PipelineOption { return func(p *Pipeline) { p.limits = l } }

// WithLogger sets the logger used for decode warnings.
func WithLogger(l observability.Logger) PipelineOption { return func(p *Pipeline) { p.logger = l } }

// WithTracer sets the tracer wrapped around decode calls.
func WithTracer(t observability.Tracer) PipelineOption { return func(p *Pipeline) { p.tracer = t } }

// NewPipeline constructs a pipeline with the built-in decoders and no-op
// observability.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry: NewRegistry(),
		logger:   observability.NopLogger{},
		tracer:   observability.NopTracer(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// DecodedStream is the fully decoded byte stream plus the stage results.
// Closing it releases the final stage buffer.
type DecodedStream struct {
	rc      io.ReadCloser
	results []Result
}

func (s *DecodedStream) Read(p []byte) (int, error) { return s.rc.Read(p) }

// Close releases the resources behind the decoded stream.
func (s *DecodedStream) Close() error { return s.rc.Close() }

// Results returns the per-stage decode results in chain order.
func (s *DecodedStream) Results() []Result { return s.results }

// LastResult returns the metadata of the last applied filter, or
// DefaultResult when the chain was empty.
func (s *DecodedStream) LastResult() Result {
	if len(s.results) == 0 {
		return DefaultResult
	}
	return s.results[len(s.results)-1]
}

// Decode decodes a raw stream object according to its own dictionary.
// The in-memory stream data needs no disk buffering by itself, but a
// non-nil space still moves each decoded stage to disk.
func (p *Pipeline) Decode(ctx context.Context, s raw.Stream, space *scratch.ScratchSpace, opts Options) (*DecodedStream, error) {
	return p.DecodeStream(ctx, io.NopCloser(bytes.NewReader(s.RawData())), s.Dictionary(), space, opts)
}

// DecodeStream decodes in according to the Filter and DecodeParms
// entries of dict. Stage output goes to disk-backed buffers from space,
// or to memory buffers when space is nil.
//
// On success the original input is closed here and the caller owns the
// returned stream. On failure every buffer acquired by this call is
// released and the input stays with the caller.
func (p *Pipeline) DecodeStream(ctx context.Context, in io.ReadCloser, dict raw.Dictionary, space *scratch.ScratchSpace, opts Options) (_ *DecodedStream, err error) {
	spec := ExtractFilters(dict)

	ctx, span := p.tracer.StartSpan(ctx, "pdfstream.decode")
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()
	span.SetTag("filters", strings.Join(spec.Names, ","))

	if len(spec.Names) == 0 {
		// Zero-copy pass-through.
		return &DecodedStream{rc: in}, nil
	}

	stages, err := p.plan(spec)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(stages))
	current := in
	sizeHint := streamLengthHint(dict)
	for i, st := range stages {
		buf, err := p.newStageBuffer(space, sizeHint)
		if err != nil {
			if current != in {
				closeQuiet(p.logger, current)
			}
			return nil, err
		}

		var sink io.Writer = buf
		if p.limits.MaxDecodedBytes > 0 {
			sink = &limitWriter{w: buf, remaining: p.limits.MaxDecodedBytes}
		}
		res, err := st.dec.Decode(ctx, current, sink, st.params, st.paramIndex, opts)
		if err != nil {
			// Unwind: drop the buffers this call still owns, keep the
			// original cause, leave the caller's input alone.
			closeQuiet(p.logger, buf)
			if current != in {
				closeQuiet(p.logger, current)
			}
			return nil, fmt.Errorf("stage %d (%s): %w", i, st.dec.Name(), err)
		}
		results = append(results, res)

		sizeHint = buf.Len()
		if _, err := buf.Seek(0, io.SeekStart); err != nil {
			closeQuiet(p.logger, buf)
			if current != in {
				closeQuiet(p.logger, current)
			}
			return nil, fmt.Errorf("stage %d (%s): rewind: %w", i, st.dec.Name(), err)
		}

		// Rebind before releasing: the running stream takes ownership of
		// the new buffer, then the superseded stage goes away so long
		// chains never accumulate live buffers.
		prev := current
		current = buf
		if prev != in {
			if cerr := prev.Close(); cerr != nil {
				closeQuiet(p.logger, current)
				return nil, fmt.Errorf("stage %d (%s): release previous stage: %w", i, st.dec.Name(), cerr)
			}
		}
	}

	// The whole chain succeeded; releasing the caller's input here keeps
	// resource accounting symmetric (it is a no-op-close wrapper at most
	// call sites).
	if cerr := in.Close(); cerr != nil {
		closeQuiet(p.logger, current)
		return nil, fmt.Errorf("release input stream: %w", cerr)
	}

	span.SetTag(observability.MetricStageCount, len(stages))
	return &DecodedStream{rc: current, results: results}, nil
}

// stage is one surviving filter application.
type stage struct {
	dec        Decoder
	params     raw.Dictionary
	paramIndex int
}

// plan resolves decoders and collapses duplicate filter entries.
//
// Filter lists may legally contain accidental repeats; applying the same
// algorithm twice is almost always wrong, but renumbering the remaining
// parameter indexes would break documents whose DecodeParms array was
// authored against the original filter count. A skipped duplicate
// therefore still consumes its parameter index when the parameter
// sequence has one entry per declared filter (paramsSize >= n), and
// leaves the index alone when the sequence was already sized to the
// deduplicated chain.
func (p *Pipeline) plan(spec FilterSpec) ([]stage, error) {
	n := len(spec.Names)
	if n == 1 {
		dec, err := p.resolve(spec.Names[0])
		if err != nil {
			return nil, err
		}
		return []stage{{dec: dec, params: spec.ParamsAt(0), paramIndex: 0}}, nil
	}

	paramsSize := spec.ParamsSize()
	seen := make(map[string]bool, n)
	warned := false
	dpIdx := 0
	stages := make([]stage, 0, n)
	for i, name := range spec.Names {
		dec, err := p.resolve(name)
		if err != nil {
			return nil, err
		}
		if seen[dec.Name()] {
			if !warned {
				p.logger.Warn("duplicate filter in chain, applying once",
					observability.String("filter", dec.Name()),
					observability.Int("position", i))
				warned = true
			}
			if paramsSize >= n {
				dpIdx++
			}
			continue
		}
		seen[dec.Name()] = true
		stages = append(stages, stage{dec: dec, params: spec.ParamsAt(dpIdx), paramIndex: dpIdx})
		dpIdx++
	}
	return stages, nil
}

func (p *Pipeline) resolve(name string) (Decoder, error) {
	dec, ok := p.registry.Get(name)
	if !ok {
		return nil, UnsupportedError{Filter: name}
	}
	return dec, nil
}

func (p *Pipeline) newStageBuffer(space *scratch.ScratchSpace, sizeHint int64) (scratch.Buffer, error) {
	if space != nil {
		return space.NewBuffer()
	}
	return scratch.NewMemoryBuffer(sizeHint), nil
}

// closeQuiet releases a resource during unwinding. The secondary error
// is logged and dropped so it never masks the root cause.
func closeQuiet(logger observability.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Debug("cleanup failed", observability.Err(err))
	}
}

// streamLengthHint estimates the encoded size from the Length entry,
// used to presize memory buffers for the first stage.
func streamLengthHint(dict raw.Dictionary) int64 {
	obj, ok := dict.Get(raw.NameObj{Val: "Length"})
	if !ok {
		return 0
	}
	n, ok := obj.(raw.Number)
	if !ok {
		return 0
	}
	return n.Int()
}

// ErrDecodeLimit is returned when a stage's output exceeds
// Limits.MaxDecodedBytes.
var ErrDecodeLimit = fmt.Errorf("decoded size exceeds limit")

type limitWriter struct {
	w         io.Writer
	remaining int64
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > lw.remaining {
		return 0, ErrDecodeLimit
	}
	n, err := lw.w.Write(p)
	lw.remaining -= int64(n)
	return n, err
}
