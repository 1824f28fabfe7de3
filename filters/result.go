package filters

import "github.com/wudi/pdfstream/ir/raw"

// Result is the per-stage metadata a decoder hands back to repair
// consumers, e.g. the image geometry actually present in the bitstream
// when the stream dictionary disagrees with it.
type Result struct {
	// Parameters is the effective parameter dictionary the stage decoded
	// with (nil when the stage had none).
	Parameters raw.Dictionary
	// Image is set by image codecs (DCT, CCITT) to the decoded geometry.
	Image *ImageInfo
}

// ImageInfo describes the pixel data a stage produced.
type ImageInfo struct {
	Width            int
	Height           int
	ColorComponents  int
	BitsPerComponent int
}

// DefaultResult is the sentinel returned when no filter was applied.
var DefaultResult = Result{}
