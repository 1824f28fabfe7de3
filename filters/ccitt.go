package filters

import (
	"context"
	"io"

	"golang.org/x/image/ccitt"

	"github.com/wudi/pdfstream/ir/raw"
)

type ccittFaxDecoder struct{}

// NewCCITTFaxDecoder returns the CCITTFaxDecode decoder for Group 3 1-D
// (K = 0) and Group 4 (K < 0) data. Mixed-mode Group 3 (K > 0) is not
// supported.
func NewCCITTFaxDecoder() Decoder { return ccittFaxDecoder{} }

func (ccittFaxDecoder) Name() string { return "CCITTFaxDecode" }

func (d ccittFaxDecoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	k := dictInt(params, "K", 0)
	columns := dictInt(params, "Columns", 1728)
	rows := dictInt(params, "Rows", 0)
	blackIs1 := dictBool(params, "BlackIs1", false)
	byteAlign := dictBool(params, "EncodedByteAlign", false)

	var sub ccitt.SubFormat
	switch {
	case k < 0:
		sub = ccitt.Group4
	case k == 0:
		sub = ccitt.Group3
	default:
		return Result{}, UnsupportedError{Filter: d.Name(), Reason: "mixed Group 3 2-D (K > 0)"}
	}
	if rows <= 0 {
		return Result{}, UnsupportedError{Filter: d.Name(), Reason: "Rows parameter required"}
	}
	if err := validateImageBounds(columns, rows); err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}

	// The ccitt reader's default bit sense (0 = black) matches PDF's
	// BlackIs1 = false.
	cr := ccitt.NewReader(r, ccitt.MSB, sub, columns, rows, &ccitt.Options{
		Align:  byteAlign,
		Invert: blackIs1,
	})
	if _, err := io.Copy(w, cr); err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}
	return Result{
		Parameters: params,
		Image: &ImageInfo{
			Width:            columns,
			Height:           rows,
			ColorComponents:  1,
			BitsPerComponent: 1,
		},
	}, nil
}
