package filters

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/wudi/pdfstream/ir/raw"
)

type runLengthDecoder struct{}

// NewRunLengthDecoder returns the RunLengthDecode decoder.
func NewRunLengthDecoder() Decoder { return runLengthDecoder{} }

func (runLengthDecoder) Name() string { return "RunLengthDecode" }

// Decode expands runs: a length byte 0..127 is followed by that many + 1
// literal bytes; 129..255 repeats the next byte 257 - length times; 128
// marks end of data.
func (d runLengthDecoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for {
		length, err := br.ReadByte()
		if err == io.EOF {
			// Missing EOD marker; accepted unless strict.
			if opts.Strict {
				return Result{}, FormatError{Filter: d.Name(), Err: io.ErrUnexpectedEOF}
			}
			break
		}
		if err != nil {
			return Result{}, err
		}
		if length == 128 {
			break
		}
		if length < 128 {
			if _, err := io.CopyN(bw, br, int64(length)+1); err != nil {
				return Result{}, formatErr(d.Name(), "truncated literal run: %w", err)
			}
			continue
		}
		b, err := br.ReadByte()
		if err != nil {
			return Result{}, formatErr(d.Name(), "truncated repeat run: %w", err)
		}
		if _, err := bw.Write(bytes.Repeat([]byte{b}, 257-int(length))); err != nil {
			return Result{}, err
		}
	}
	if err := bw.Flush(); err != nil {
		return Result{}, err
	}
	return Result{Parameters: params}, nil
}
