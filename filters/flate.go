package filters

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/wudi/pdfstream/ir/raw"
)

type flateDecoder struct{}

// NewFlateDecoder returns the FlateDecode decoder.
func NewFlateDecoder() Decoder { return flateDecoder{} }

func (flateDecoder) Name() string { return "FlateDecode" }

func (d flateDecoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	br := bufio.NewReader(r)

	// FlateDecode data is zlib-wrapped, but broken producers emit raw
	// deflate. Sniff the two header bytes instead of failing outright.
	var zr io.ReadCloser
	hdr, err := br.Peek(2)
	if err == nil && hdr[0]&0x0f == 8 && (uint16(hdr[0])<<8|uint16(hdr[1]))%31 == 0 {
		zr, err = zlib.NewReader(br)
		if err != nil {
			return Result{}, FormatError{Filter: d.Name(), Err: err}
		}
	} else if err == nil || err == io.EOF {
		zr = flate.NewReader(br)
	} else {
		return Result{}, err
	}
	defer zr.Close()

	pp := predictorFromDict(params)
	res := Result{Parameters: params}
	if pp.predictor <= 1 {
		err := copyTolerant(d.Name(), w, zr, opts)
		return res, err
	}

	// Predictors operate on whole rows of the inflated bytes.
	var buf bytes.Buffer
	if err := copyTolerant(d.Name(), &buf, zr, opts); err != nil {
		return Result{}, err
	}
	out, err := applyPredictor(pp, buf.Bytes())
	if err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}
	if _, err := w.Write(out); err != nil {
		return Result{}, err
	}
	return res, nil
}

// copyTolerant copies decompressed bytes, keeping partial output from a
// truncated stream unless strict mode is on. Streams cut off mid-block
// are common in repaired documents.
func copyTolerant(filter string, dst io.Writer, src io.Reader, opts Options) error {
	n, err := io.Copy(dst, src)
	if err == nil {
		return nil
	}
	if !opts.Strict && n > 0 && truncationError(err) {
		return nil
	}
	return FormatError{Filter: filter, Err: err}
}

func truncationError(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ce flate.CorruptInputError
	return errors.As(err, &ce)
}
