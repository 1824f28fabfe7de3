package filters

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/wudi/pdfstream/ir/raw"
)

func decodeOne(t *testing.T, d Decoder, in []byte, params raw.Dictionary) ([]byte, Result) {
	t.Helper()
	var out bytes.Buffer
	res, err := d.Decode(context.Background(), bytes.NewReader(in), &out, params, 0, Options{})
	if err != nil {
		t.Fatalf("%s decode error: %v", d.Name(), err)
	}
	return out.Bytes(), res
}

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	w.Close()
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	out, _ := decodeOne(t, NewFlateDecoder(), zlibCompress(t, []byte("hello world")), nil)
	if string(out) != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFlateDecodeRawDeflateFallback(t *testing.T) {
	// Raw deflate without the zlib wrapper, as emitted by broken producers.
	var buf bytes.Buffer
	fw, _ := flate.NewWriter(&buf, flate.BestSpeed)
	fw.Write([]byte("no zlib header"))
	fw.Close()

	out, _ := decodeOne(t, NewFlateDecoder(), buf.Bytes(), nil)
	if string(out) != "no zlib header" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFlateDecodeWithPredictor(t *testing.T) {
	// PNG predictor row: filter byte 1 (Sub), then row bytes.
	comp := zlibCompress(t, []byte{1, 10, 12, 20})

	params := raw.Dict()
	params.Set(raw.NameObj{Val: "Predictor"}, raw.NumberInt(12))
	params.Set(raw.NameObj{Val: "Colors"}, raw.NumberInt(1))
	params.Set(raw.NameObj{Val: "BitsPerComponent"}, raw.NumberInt(8))
	params.Set(raw.NameObj{Val: "Columns"}, raw.NumberInt(3))

	out, res := decodeOne(t, NewFlateDecoder(), comp, params)
	if want := []byte{10, 22, 42}; !bytes.Equal(out, want) {
		t.Fatalf("predictor output mismatch: got %v want %v", out, want)
	}
	if res.Parameters != params {
		t.Fatalf("result should carry the effective parameters")
	}
}

func TestFlateDecodeUpAndPaethPredictors(t *testing.T) {
	// Two rows, filter Up then Paeth, 2 columns.
	comp := zlibCompress(t, []byte{2, 5, 7, 4, 3, 1})

	params := raw.Dict()
	params.Set(raw.NameObj{Val: "Predictor"}, raw.NumberInt(15))
	params.Set(raw.NameObj{Val: "Columns"}, raw.NumberInt(2))

	out, _ := decodeOne(t, NewFlateDecoder(), comp, params)
	// Row 1 (Up, prev row zero): 5, 7.
	// Row 2 (Paeth): 3+paeth(0,5,0)=8, 1+paeth(8,7,5)=1+8=9.
	if want := []byte{5, 7, 8, 9}; !bytes.Equal(out, want) {
		t.Fatalf("predictor output mismatch: got %v want %v", out, want)
	}
}

func TestFlateDecodeTIFFPredictor(t *testing.T) {
	comp := zlibCompress(t, []byte{10, 5, 5, 250})

	params := raw.Dict()
	params.Set(raw.NameObj{Val: "Predictor"}, raw.NumberInt(2))
	params.Set(raw.NameObj{Val: "Columns"}, raw.NumberInt(4))

	out, _ := decodeOne(t, NewFlateDecoder(), comp, params)
	if want := []byte{10, 15, 20, 14}; !bytes.Equal(out, want) {
		t.Fatalf("tiff predictor output mismatch: got %v want %v", out, want)
	}
}

func TestFlateDecodeTruncatedLenient(t *testing.T) {
	comp := zlibCompress(t, bytes.Repeat([]byte("pdfstream "), 100))
	truncated := comp[:len(comp)/2]

	var out bytes.Buffer
	_, err := NewFlateDecoder().Decode(context.Background(), bytes.NewReader(truncated), &out, nil, 0, Options{})
	if err != nil {
		t.Fatalf("lenient decode of truncated stream: %v", err)
	}
	if out.Len() == 0 {
		t.Fatalf("expected partial output")
	}

	_, err = NewFlateDecoder().Decode(context.Background(), bytes.NewReader(truncated), io.Discard, nil, 0, Options{Strict: true})
	if err == nil {
		t.Fatalf("strict decode of truncated stream should fail")
	}
	var fe FormatError
	if !errors.As(err, &fe) || fe.Filter != "FlateDecode" {
		t.Fatalf("expected FormatError from FlateDecode, got %v", err)
	}
}

func TestLZWDecode(t *testing.T) {
	// Hand-packed 9-bit MSB codes: Clear, 'A', 258 (KwKwK), 'A', EOD.
	data := []byte{0x80, 0x10, 0x60, 0x44, 0x18, 0x08}
	out, _ := decodeOne(t, NewLZWDecoder(), data, nil)
	if string(out) != "AAAA" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLZWDecodeRoundTrip(t *testing.T) {
	input := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	for _, earlyChange := range []int{0, 1} {
		encoded := lzwEncode(input, earlyChange)
		params := raw.Dict()
		params.Set(raw.NameObj{Val: "EarlyChange"}, raw.NumberInt(int64(earlyChange)))
		out, _ := decodeOne(t, NewLZWDecoder(), encoded, params)
		if !bytes.Equal(out, input) {
			t.Fatalf("round trip mismatch with earlyChange=%d", earlyChange)
		}
	}
}

func TestLZWDecodeInvalidCode(t *testing.T) {
	// A code far beyond the table with no prior output.
	data := []byte{0xff, 0xff}
	_, err := NewLZWDecoder().Decode(context.Background(), bytes.NewReader(data), io.Discard, nil, 0, Options{})
	var fe FormatError
	if err == nil || !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestRunLengthDecode(t *testing.T) {
	// literal run of 3 bytes (len=2), then repeat 'A' 2 times (len=255 => count=2), then EOD 128
	data := []byte{2, 'h', 'i', '!', 255, 'A', 128}
	out, _ := decodeOne(t, NewRunLengthDecoder(), data, nil)
	if string(out) != "hi!AA" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunLengthDecodeMissingEOD(t *testing.T) {
	data := []byte{1, 'o', 'k'}
	out, _ := decodeOne(t, NewRunLengthDecoder(), data, nil)
	if string(out) != "ok" {
		t.Fatalf("unexpected output: %q", out)
	}
	_, err := NewRunLengthDecoder().Decode(context.Background(), bytes.NewReader(data), io.Discard, nil, 0, Options{Strict: true})
	if err == nil {
		t.Fatalf("strict decode without EOD should fail")
	}
}

func TestASCII85Decode(t *testing.T) {
	out, _ := decodeOne(t, NewASCII85Decoder(), []byte("<~87cURD_*#4DfTZ)+T~>"), nil)
	if string(out) != "Hello, World!" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	out, _ := decodeOne(t, NewASCIIHexDecoder(), []byte("68656c 6c6f\n20776f726c6 >"), nil)
	// Whitespace is ignored; the odd trailing digit is padded with 0.
	if string(out) != "hello worl`" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDCTDecode(t *testing.T) {
	jpegData := sampleJPEG(t)
	out, res := decodeOne(t, NewDCTDecoder(), jpegData, nil)
	if len(out) != 2*1*3 {
		t.Fatalf("unexpected pixel size: %d", len(out))
	}
	if bytes.Equal(out[:3], out[3:6]) {
		t.Fatalf("expected differing pixels, got %v and %v", out[:3], out[3:6])
	}
	if res.Image == nil || res.Image.Width != 2 || res.Image.Height != 1 || res.Image.ColorComponents != 3 {
		t.Fatalf("unexpected image info: %+v", res.Image)
	}
}

func TestCryptIdentity(t *testing.T) {
	params := raw.Dict()
	params.Set(raw.NameObj{Val: "Name"}, raw.NameLiteral("Identity"))
	out, _ := decodeOne(t, NewCryptDecoder(), []byte("as is"), params)
	if string(out) != "as is" {
		t.Fatalf("unexpected output: %q", out)
	}

	params.Set(raw.NameObj{Val: "Name"}, raw.NameLiteral("StdCF"))
	_, err := NewCryptDecoder().Decode(context.Background(), bytes.NewReader(nil), io.Discard, params, 0, Options{})
	var ue UnsupportedError
	if err == nil || !errors.As(err, &ue) || ue.Filter != "Crypt" {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestCCITTFaxDecodeUnsupportedModes(t *testing.T) {
	params := raw.Dict()
	params.Set(raw.NameObj{Val: "K"}, raw.NumberInt(4))
	params.Set(raw.NameObj{Val: "Rows"}, raw.NumberInt(1))
	_, err := NewCCITTFaxDecoder().Decode(context.Background(), bytes.NewReader(nil), io.Discard, params, 0, Options{})
	var ue UnsupportedError
	if err == nil || !errors.As(err, &ue) {
		t.Fatalf("expected unsupported error for K > 0, got %v", err)
	}
}

func TestRegistryAliases(t *testing.T) {
	r := NewRegistry()
	for alias, canonical := range map[string]string{
		"Fl": "FlateDecode", "AHx": "ASCIIHexDecode", "A85": "ASCII85Decode",
		"RL": "RunLengthDecode", "CCF": "CCITTFaxDecode", "DCT": "DCTDecode",
	} {
		d, ok := r.Get(alias)
		if !ok || d.Name() != canonical {
			t.Fatalf("alias %s should resolve to %s", alias, canonical)
		}
	}
	if _, ok := r.Get("JPXDecode"); ok {
		t.Fatalf("JPXDecode should not be registered")
	}
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.Set(1, 0, color.NRGBA{R: 0, G: 255, B: 0, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// lzwEncode is a minimal TIFF-flavor LZW encoder used to exercise the
// decoder: MSB-first codes, leading clear code, optional early change.
func lzwEncode(data []byte, earlyChange int) []byte {
	var (
		out    []byte
		bitBuf uint32
		bitCnt uint
		width  uint = 9
	)
	emit := func(code int) {
		bitBuf = bitBuf<<width | uint32(code)
		bitCnt += width
		for bitCnt >= 8 {
			out = append(out, byte(bitBuf>>(bitCnt-8)))
			bitCnt -= 8
		}
	}

	table := make(map[string]int, lzwTableSize)
	next := lzwEODCode + 1
	reset := func() {
		for k := range table {
			delete(table, k)
		}
		for i := 0; i < 256; i++ {
			table[string([]byte{byte(i)})] = i
		}
		next = lzwEODCode + 1
		width = 9
	}

	reset()
	emit(lzwClearCode)
	var w []byte
	for _, c := range data {
		wc := append(append([]byte{}, w...), c)
		if _, ok := table[string(wc)]; ok {
			w = wc
			continue
		}
		emit(table[string(w)])
		if next < lzwTableSize {
			table[string(wc)] = next
			next++
			if next+earlyChange >= 1<<width && width < lzwMaxWidth {
				width++
			}
		} else {
			emit(lzwClearCode)
			reset()
		}
		w = []byte{c}
	}
	if len(w) > 0 {
		emit(table[string(w)])
	}
	emit(lzwEODCode)
	if bitCnt > 0 {
		out = append(out, byte(bitBuf<<(8-bitCnt)))
	}
	return out
}
