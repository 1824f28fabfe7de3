package filters

import (
	"bytes"
	"context"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"io"

	"github.com/wudi/pdfstream/ir/raw"
)

type ascii85Decoder struct{}

// NewASCII85Decoder returns the ASCII85Decode decoder.
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (d ascii85Decoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	trimmed := bytes.TrimSpace(src)
	if bytes.HasPrefix(trimmed, []byte("<~")) {
		trimmed = trimmed[2:]
	}
	// Data ends at the ~> marker; anything after it is ignored.
	if i := bytes.IndexByte(trimmed, '~'); i >= 0 {
		trimmed = trimmed[:i]
	}
	// The stdlib decoder tolerates interior whitespace and the z shortcut.
	if _, err := io.Copy(w, stdascii85.NewDecoder(bytes.NewReader(trimmed))); err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}
	return Result{Parameters: params}, nil
}

type asciiHexDecoder struct{}

// NewASCIIHexDecoder returns the ASCIIHexDecode decoder.
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (d asciiHexDecoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	if i := bytes.IndexByte(src, '>'); i >= 0 {
		src = src[:i]
	}
	compact := make([]byte, 0, len(src))
	for _, c := range src {
		switch c {
		case ' ', '\t', '\r', '\n', '\f', 0:
			continue
		}
		compact = append(compact, c)
	}
	// An odd final digit is treated as if followed by 0.
	if len(compact)%2 == 1 {
		compact = append(compact, '0')
	}
	out := make([]byte, hex.DecodedLen(len(compact)))
	n, err := hex.Decode(out, compact)
	if err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}
	if _, err := w.Write(out[:n]); err != nil {
		return Result{}, err
	}
	return Result{Parameters: params}, nil
}
