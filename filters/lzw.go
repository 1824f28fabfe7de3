package filters

import (
	"context"
	"fmt"
	"io"

	"github.com/wudi/pdfstream/ir/raw"
)

// LZWDecode uses the TIFF flavor of LZW: MSB-first codes, 9 to 12 bits
// wide, with the code width bumped one code early when EarlyChange is 1
// (the default). The standard library's compress/lzw implements the GIF
// variant without early change, so the decoder is implemented here.

const (
	lzwClearCode = 256
	lzwEODCode   = 257
	lzwTableSize = 4096
	lzwMaxWidth  = 12
)

type lzwDecoder struct{}

// NewLZWDecoder returns the LZWDecode decoder.
func NewLZWDecoder() Decoder { return lzwDecoder{} }

func (lzwDecoder) Name() string { return "LZWDecode" }

func (d lzwDecoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}

	earlyChange := dictInt(params, "EarlyChange", 1)
	if earlyChange != 0 {
		earlyChange = 1
	}

	out, err := decodeLZW(src, earlyChange, opts.Strict)
	if err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}

	pp := predictorFromDict(params)
	if out, err = applyPredictor(pp, out); err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}
	if _, err := w.Write(out); err != nil {
		return Result{}, err
	}
	return Result{Parameters: params}, nil
}

func decodeLZW(src []byte, earlyChange int, strict bool) ([]byte, error) {
	table := newLZWTable()
	var (
		out    []byte
		prev   []byte
		bitBuf uint32
		bitCnt uint
		width  uint = 9
	)

	for pos := 0; ; {
		for bitCnt < width {
			if pos >= len(src) {
				// Input exhausted without an EOD marker. Truncated streams
				// are accepted with whatever was decoded unless strict.
				if strict && prev != nil {
					return nil, io.ErrUnexpectedEOF
				}
				return out, nil
			}
			bitBuf = bitBuf<<8 | uint32(src[pos])
			bitCnt += 8
			pos++
		}
		code := int(bitBuf >> (bitCnt - width) & (1<<width - 1))
		bitCnt -= width

		switch {
		case code == lzwClearCode:
			table = table[:lzwEODCode+1]
			width = 9
			prev = nil
			continue
		case code == lzwEODCode:
			return out, nil
		}

		var entry []byte
		switch {
		case code < len(table) && table[code] != nil:
			entry = table[code]
		case code == len(table) && prev != nil:
			// KwKwK case: the code being defined right now.
			entry = append(append(make([]byte, 0, len(prev)+1), prev...), prev[0])
		default:
			return nil, fmt.Errorf("invalid code %d (table size %d)", code, len(table))
		}
		out = append(out, entry...)

		if prev != nil && len(table) < lzwTableSize {
			table = append(table, append(append(make([]byte, 0, len(prev)+1), prev...), entry[0]))
		}
		prev = entry

		if len(table)+earlyChange >= 1<<width && width < lzwMaxWidth {
			width++
		}
	}
}

func newLZWTable() [][]byte {
	table := make([][]byte, lzwEODCode+1, lzwTableSize)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}
	// 256 and 257 stay nil: clear and EOD are not string entries.
	return table
}
