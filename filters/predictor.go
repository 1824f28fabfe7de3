package filters

import (
	"fmt"

	"github.com/wudi/pdfstream/ir/raw"
)

// predictorParams are the prediction settings shared by FlateDecode and
// LZWDecode.
type predictorParams struct {
	predictor int
	colors    int
	bpc       int
	columns   int
}

func predictorFromDict(params raw.Dictionary) predictorParams {
	return predictorParams{
		predictor: dictInt(params, "Predictor", 1),
		colors:    dictInt(params, "Colors", 1),
		bpc:       dictInt(params, "BitsPerComponent", 8),
		columns:   dictInt(params, "Columns", 1),
	}
}

// rowLength is the number of data bytes per predicted row.
func (p predictorParams) rowLength() int {
	return (p.columns*p.colors*p.bpc + 7) / 8
}

// bytesPerPixel is the sample distance used by the PNG predictors,
// at least one byte.
func (p predictorParams) bytesPerPixel() int {
	bpp := p.colors * p.bpc / 8
	if bpp < 1 {
		bpp = 1
	}
	return bpp
}

// applyPredictor reverses the predictor encoding in place of the decoded
// stage output. Predictor 1 is the identity, 2 is the TIFF horizontal
// differencing predictor, 10..15 are the PNG filters (the row's leading
// filter byte selects the actual algorithm, so all six share one path).
func applyPredictor(p predictorParams, data []byte) ([]byte, error) {
	switch {
	case p.predictor <= 1:
		return data, nil
	case p.predictor == 2:
		return applyTIFFPredictor(p, data)
	case p.predictor >= 10 && p.predictor <= 15:
		return applyPNGPredictor(p, data)
	default:
		return nil, fmt.Errorf("predictor %d not supported", p.predictor)
	}
}

func applyTIFFPredictor(p predictorParams, data []byte) ([]byte, error) {
	if p.bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor with %d bits per component not supported", p.bpc)
	}
	rowLen := p.rowLength()
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid predictor row length (columns %d)", p.columns)
	}
	for row := 0; row+rowLen <= len(data); row += rowLen {
		for i := p.colors; i < rowLen; i++ {
			data[row+i] += data[row+i-p.colors]
		}
	}
	return data, nil
}

func applyPNGPredictor(p predictorParams, data []byte) ([]byte, error) {
	rowLen := p.rowLength()
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid predictor row length (columns %d)", p.columns)
	}
	bpp := p.bytesPerPixel()
	stride := rowLen + 1 // leading filter-type byte per row
	rows := len(data) / stride
	if rows*stride != len(data) {
		return nil, fmt.Errorf("predicted data length %d is not a multiple of row stride %d", len(data), stride)
	}

	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		ft := data[r*stride]
		copy(cur, data[r*stride+1:(r+1)*stride])
		switch ft {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = cur[i-bpp]
					upLeft = prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG filter type %d in row %d", ft, r)
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

// paeth is the PNG Paeth prediction function.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
