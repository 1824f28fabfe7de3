package filters

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/wudi/pdfstream/ir/raw"
)

type dctDecoder struct{}

// NewDCTDecoder returns the DCTDecode (baseline JPEG) decoder.
func NewDCTDecoder() Decoder { return dctDecoder{} }

func (dctDecoder) Name() string { return "DCTDecode" }

// Decode produces interleaved channel bytes row by row with no padding:
// 1 byte per pixel for grayscale, 3 (RGB) for YCbCr, 4 for CMYK. The
// geometry actually found in the bitstream is reported in the Result so
// repair logic can reconcile it with the stream dictionary.
func (d dctDecoder) Decode(ctx context.Context, r io.Reader, w io.Writer, params raw.Dictionary, paramIndex int, opts Options) (Result, error) {
	img, err := jpeg.Decode(r)
	if err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if err := validateImageBounds(width, height); err != nil {
		return Result{}, FormatError{Filter: d.Name(), Err: err}
	}

	var (
		buf        []byte
		components int
	)
	switch img := img.(type) {
	case *image.Gray:
		components = 1
		buf = make([]byte, width*height)
		for y := 0; y < height; y++ {
			srcOff := y*img.Stride + (bounds.Min.X - img.Rect.Min.X)
			copy(buf[y*width:(y+1)*width], img.Pix[srcOff:srcOff+width])
		}
	case *image.YCbCr:
		components = 3
		buf = make([]byte, 0, width*height*3)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				yi := img.YOffset(x, y)
				ci := img.COffset(x, y)
				r, g, b := color.YCbCrToRGB(img.Y[yi], img.Cb[ci], img.Cr[ci])
				buf = append(buf, r, g, b)
			}
		}
	case *image.CMYK:
		components = 4
		buf = make([]byte, width*height*4)
		for y := 0; y < height; y++ {
			srcOff := y*img.Stride + (bounds.Min.X-img.Rect.Min.X)*4
			copy(buf[y*width*4:(y+1)*width*4], img.Pix[srcOff:srcOff+width*4])
		}
	default:
		components = 3
		buf = make([]byte, 0, width*height*3)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				buf = append(buf, uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
	}

	if _, err := w.Write(buf); err != nil {
		return Result{}, err
	}
	return Result{
		Parameters: params,
		Image: &ImageInfo{
			Width:            width,
			Height:           height,
			ColorComponents:  components,
			BitsPerComponent: 8,
		},
	}, nil
}
