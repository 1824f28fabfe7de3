package recovery

// StrictStrategy fails on the first disagreement between dictionary and
// bitstream.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy { return &StrictStrategy{} }

func (*StrictStrategy) OnMismatch(Mismatch) Action { return ActionFail }

// LenientStrategy trusts the bitstream: every mismatch is fixed in the
// dictionary and remembered for reporting.
type LenientStrategy struct {
	Fixed []Mismatch
}

func NewLenientStrategy() *LenientStrategy { return &LenientStrategy{} }

func (s *LenientStrategy) OnMismatch(m Mismatch) Action {
	s.Fixed = append(s.Fixed, m)
	return ActionFix
}
