package filters

import (
	"context"
	"io"

	"github.com/wudi/pdfstream/ir/raw"
)

type cryptDecoder struct{}

// NewCryptDecoder returns the Crypt filter decoder. Only the Identity
// transform is handled here; anything else needs the document security
// handler, which sits above this layer.
func NewCryptDecoder() Decoder { return cryptDecoder{} }

func (cryptDecoder) Name() string { return "Crypt" }

func (d cryptDecoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	if name := dictName(params, "Name"); name != "" && name != "Identity" {
		return Result{}, UnsupportedError{Filter: d.Name(), Reason: "crypt filter " + name}
	}
	if _, err := io.Copy(w, r); err != nil {
		return Result{}, err
	}
	return Result{Parameters: params}, nil
}
