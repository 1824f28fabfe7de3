// Package recovery reconciles what a stream dictionary declares with
// what the decode pipeline actually produced. Its input is the last
// stage's decode result; lossy codecs frequently carry the real image
// geometry while the dictionary lies.
package recovery

import (
	"fmt"

	"github.com/wudi/pdfstream/filters"
	"github.com/wudi/pdfstream/ir/raw"
)

// Mismatch is one disagreement between the stream dictionary and the
// decoded bitstream.
type Mismatch struct {
	Key      string
	Declared int64
	Actual   int64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("/%s declared %d, bitstream has %d", m.Key, m.Declared, m.Actual)
}

// Action is a strategy's verdict for one mismatch.
type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)

// Strategy decides how to treat each mismatch.
type Strategy interface {
	OnMismatch(m Mismatch) Action
}

// ImageMismatches compares the declared Width, Height and
// BitsPerComponent entries against the image geometry in the decode
// result. A nil slice means the dictionary and bitstream agree, or the
// result carries no image metadata.
func ImageMismatches(dict raw.Dictionary, res filters.Result) []Mismatch {
	if res.Image == nil {
		return nil
	}
	var ms []Mismatch
	check := func(key string, actual int) {
		obj, ok := dict.Get(raw.NameObj{Val: key})
		if !ok {
			return
		}
		n, ok := obj.(raw.Number)
		if !ok {
			return
		}
		if declared := n.Int(); declared != int64(actual) {
			ms = append(ms, Mismatch{Key: key, Declared: declared, Actual: int64(actual)})
		}
	}
	check("Width", res.Image.Width)
	check("Height", res.Image.Height)
	check("BitsPerComponent", res.Image.BitsPerComponent)
	return ms
}

// Reconcile runs the strategy over every image mismatch, rewriting the
// dictionary entries the strategy votes to fix. ActionFail aborts with
// an error naming the first offending entry.
func Reconcile(dict raw.Dictionary, res filters.Result, s Strategy) error {
	for _, m := range ImageMismatches(dict, res) {
		switch s.OnMismatch(m) {
		case ActionFail:
			return fmt.Errorf("recovery: %s", m)
		case ActionFix:
			dict.Set(raw.NameObj{Val: m.Key}, raw.NumberInt(m.Actual))
		case ActionSkip, ActionWarn:
			// Leave the dictionary as declared.
		}
	}
	return nil
}
