// Package filters implements the PDF stream decode pipeline: the stream
// filter algorithms, the filter chain orchestrator, and the per-stage
// decode results consumed by repair logic.
package filters

import (
	"context"
	"fmt"
	"io"

	"github.com/wudi/pdfstream/ir/raw"
)

// Decoder decodes one encoded stream into one decoded stream. Decoders
// consume r entirely, write the decoded bytes to w, and return stage
// metadata. params is the decoder's own entry from DecodeParms (nil when
// absent) and paramIndex its position in the parameter sequence.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error)
}

// Options is passed unchanged to every decoder in a chain.
type Options struct {
	// Strict rejects malformed stage input outright. When false, decoders
	// keep partial output where the format allows it.
	Strict bool
}

// Limits bounds the work a single stage may produce.
type Limits struct {
	// MaxDecodedBytes caps one stage's decoded output. Zero means no cap.
	MaxDecodedBytes int64
}

// UnsupportedError indicates a filter name with no registered decoder, or
// a parameter combination the decoder cannot handle.
type UnsupportedError struct {
	Filter string
	Reason string
}

func (e UnsupportedError) Error() string {
	if e.Reason != "" {
		return "unsupported filter " + e.Filter + ": " + e.Reason
	}
	return "unsupported filter: " + e.Filter
}

// FormatError indicates stage input that does not conform to the
// filter's encoding. It is not retried; corrupted stream decoding is not
// self-correcting at this layer.
type FormatError struct {
	Filter string
	Err    error
}

func (e FormatError) Error() string { return e.Filter + ": " + e.Err.Error() }
func (e FormatError) Unwrap() error { return e.Err }

func formatErr(filter string, format string, args ...interface{}) FormatError {
	return FormatError{Filter: filter, Err: fmt.Errorf(format, args...)}
}

// Registry maps filter names, including the short forms used by inline
// images, to decoders.
type Registry struct {
	decoders map[string]Decoder
	aliases  map[string]string
}

// NewRegistry returns a registry with every built-in decoder and the
// standard abbreviations registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(NewFlateDecoder())
	r.Register(NewLZWDecoder())
	r.Register(NewASCII85Decoder())
	r.Register(NewASCIIHexDecoder())
	r.Register(NewRunLengthDecoder())
	r.Register(NewDCTDecoder())
	r.Register(NewCCITTFaxDecoder())
	r.Register(NewCryptDecoder())
	r.Alias("Fl", "FlateDecode")
	r.Alias("LZW", "LZWDecode")
	r.Alias("A85", "ASCII85Decode")
	r.Alias("AHx", "ASCIIHexDecode")
	r.Alias("RL", "RunLengthDecode")
	r.Alias("DCT", "DCTDecode")
	r.Alias("CCF", "CCITTFaxDecode")
	return r
}

func (r *Registry) Register(d Decoder) {
	if r.decoders == nil {
		r.decoders = make(map[string]Decoder)
	}
	r.decoders[d.Name()] = d
}

func (r *Registry) Alias(alias, canonical string) {
	if r.aliases == nil {
		r.aliases = make(map[string]string)
	}
	r.aliases[alias] = canonical
}

func (r *Registry) Get(name string) (Decoder, bool) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	d, ok := r.decoders[name]
	return d, ok
}
