package sv

// Strand is the orientation of an alignment against its reference.
type Strand int8

const (
	// Forward is the "+" strand.
	Forward Strand = 1
	// Reverse is the "-" strand.
	Reverse Strand = -1
)

// Flip returns the opposite strand.
func (s Strand) Flip() Strand { return -s }

func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// ParseStrand converts "+" or "-" to a Strand.
func ParseStrand(s string) (Strand, bool) {
	switch s {
	case "+":
		return Forward, true
	case "-":
		return Reverse, true
	}
	return 0, false
}

// Span is a half-open range [Start, End) on a contig or a reference sequence.
type Span struct{ Start, End int }

// newSpan creates a new Span.
//
// REQUIRES: start <= end
func newSpan(start, end int) Span {
	if end < start {
		panic("inverted range")
	}
	return Span{start, end}
}

// Len returns the number of bases in the span.
func (r Span) Len() int { return r.End - r.Start }

// Overlap returns the number of bases shared by the two ranges.
func (r Span) Overlap(other Span) int {
	n := minInt(r.End, other.End) - maxInt(r.Start, other.Start)
	if n < 0 {
		return 0
	}
	return n
}

// Contains checks if pos is in the range.
func (r Span) Contains(pos int) bool { return pos >= r.Start && pos < r.End }

func maxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
