package filters

import "github.com/wudi/pdfstream/ir/raw"

// FilterSpec is the declared filter chain of a stream dictionary:
// the filter names in application order plus the parameter source, which
// is either a single dictionary applying to the whole chain or an array
// indexed against the original (pre-deduplication) filter list.
type FilterSpec struct {
	Names []string

	single raw.Dictionary
	seq    raw.Array
}

// ExtractFilters reads Filter and DecodeParms entries from a stream
// dictionary. The abbreviated keys F and DP are honored as aliases; F is
// only treated as a filter entry when it holds a name or array, since in
// full stream dictionaries F is a file specification.
func ExtractFilters(dict raw.Dictionary) FilterSpec {
	var spec FilterSpec

	filterObj, ok := dict.Get(raw.NameObj{Val: "Filter"})
	if !ok {
		if f, aliased := dict.Get(raw.NameObj{Val: "F"}); aliased {
			switch f.(type) {
			case raw.Name, raw.Array:
				filterObj = f
				ok = true
			}
		}
	}
	if !ok {
		return spec
	}

	switch f := filterObj.(type) {
	case raw.Name:
		spec.Names = append(spec.Names, f.Value())
	case raw.Array:
		for i := 0; i < f.Len(); i++ {
			if item, found := f.Get(i); found {
				if n, isName := item.(raw.Name); isName {
					spec.Names = append(spec.Names, n.Value())
				}
			}
		}
	}
	if len(spec.Names) == 0 {
		return spec
	}

	pObj, ok := dict.Get(raw.NameObj{Val: "DecodeParms"})
	if !ok {
		pObj, ok = dict.Get(raw.NameObj{Val: "DP"})
	}
	if ok {
		switch p := pObj.(type) {
		case raw.Dictionary:
			spec.single = p
		case raw.Array:
			spec.seq = p
		}
	}
	return spec
}

// ParamsSize is 1 for a single shared parameter dictionary, the array
// length for a parameter sequence, and 0 when no parameters were given.
func (s FilterSpec) ParamsSize() int {
	if s.single != nil {
		return 1
	}
	if s.seq != nil {
		return s.seq.Len()
	}
	return 0
}

// ParamsAt resolves the parameter dictionary for index i, or nil. A
// single shared dictionary applies at every index.
func (s FilterSpec) ParamsAt(i int) raw.Dictionary {
	if s.single != nil {
		return s.single
	}
	if s.seq == nil || i < 0 || i >= s.seq.Len() {
		return nil
	}
	item, ok := s.seq.Get(i)
	if !ok {
		return nil
	}
	d, _ := item.(raw.Dictionary)
	return d
}

// dictInt reads an integer entry, falling back to def when the key is
// absent or not a number.
func dictInt(params raw.Dictionary, key string, def int) int {
	if params == nil {
		return def
	}
	obj, ok := params.Get(raw.NameObj{Val: key})
	if !ok {
		return def
	}
	n, ok := obj.(raw.Number)
	if !ok {
		return def
	}
	return int(n.Int())
}

// dictBool reads a boolean entry with a default.
func dictBool(params raw.Dictionary, key string, def bool) bool {
	if params == nil {
		return def
	}
	obj, ok := params.Get(raw.NameObj{Val: key})
	if !ok {
		return def
	}
	b, ok := obj.(raw.Boolean)
	if !ok {
		return def
	}
	return b.Value()
}

// dictName reads a name entry, returning "" when absent.
func dictName(params raw.Dictionary, key string) string {
	if params == nil {
		return ""
	}
	obj, ok := params.Get(raw.NameObj{Val: key})
	if !ok {
		return ""
	}
	n, ok := obj.(raw.Name)
	if !ok {
		return ""
	}
	return n.Value()
}
