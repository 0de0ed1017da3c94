package sv

import (
	"sort"

	"blainsmith.com/go/seahash"
	gunsafe "github.com/grailbio/base/unsafe"
)

// ReadAlignment is a read aligned to a contig (an r2c record).
type ReadAlignment struct {
	Name   string
	Contig string
	Span   Span
	Strand Strand
	// FullyMapped is set when the read is clipped only where it runs off an end
	// of the contig.
	FullyMapped bool

	// ProperPair is set when both mates align to the contig as a proper pair.
	ProperPair bool
	// MateStart is the contig start of the mate. Only set for proper pairs.
	MateStart int
	// TLen is the signed template length. It is positive for the leftmost mate.
	TLen int
}

// ReadSource returns the reads aligned to a contig. Implementations must be
// safe for concurrent use.
type ReadSource interface {
	Reads(contig string) []ReadAlignment
}

// ReadsByContig is a ReadSource backed by a map.
type ReadsByContig map[string][]ReadAlignment

// Reads implements ReadSource.
func (m ReadsByContig) Reads(contig string) []ReadAlignment { return m[contig] }

type startStrand struct {
	start  int
	strand Strand
}

// CountSupport counts the reads spanning any of the given contig regions with
// at least opts.MinIndelFlanking bases on both sides. Reads that are clipped
// inside the contig are ignored. Reads sharing a start position and strand,
// or a name, are counted once.
func CountSupport(breaks []Span, reads []ReadAlignment, opts Opts) int {
	var (
		starts = map[startStrand]bool{}
		names  = map[uint64]bool{}
		n      int
	)
	flank := opts.MinIndelFlanking
	for _, r := range reads {
		if !r.FullyMapped {
			continue
		}
		spans := false
		for _, b := range breaks {
			if r.Span.Start <= b.Start-flank && r.Span.End >= b.End+flank {
				spans = true
				break
			}
		}
		if !spans {
			continue
		}
		key := startStrand{r.Span.Start, r.Strand}
		h := seahash.Sum64(gunsafe.StringToBytes(r.Name))
		if starts[key] || names[h] {
			continue
		}
		starts[key] = true
		names[h] = true
		n++
	}
	return n
}

// CountFlanking counts the proper pairs whose inner fragment, the contig
// region between the end of the leftmost mate and the start of the other,
// straddles any of the given regions with opts.MinIndelFlanking bases to
// spare. Pairs with the same inner fragment are counted once.
func CountFlanking(breaks []Span, reads []ReadAlignment, opts Opts) int {
	frags := map[Span]bool{}
	flank := opts.MinIndelFlanking
	for _, r := range reads {
		if !r.ProperPair || !r.FullyMapped || r.TLen <= 0 || r.MateStart < r.Span.End {
			continue
		}
		inner := Span{r.Span.End, r.MateStart}
		for _, b := range breaks {
			if inner.Start <= b.Start-flank && inner.End >= b.End+flank {
				frags[inner] = true
				break
			}
		}
	}
	return len(frags)
}

// CheckTiling checks if fully mapped reads cover each of the given regions,
// plus one base on either side, without a gap. It vouches for breaks whose
// untemplated sequence is too long for reads to span.
func CheckTiling(breaks []Span, reads []ReadAlignment) bool {
	if len(breaks) == 0 {
		return false
	}
	for _, b := range breaks {
		need := Span{b.Start - 1, b.End + 1}
		var spans []Span
		for _, r := range reads {
			if r.FullyMapped && r.Span.Start <= need.End && r.Span.End >= need.Start {
				spans = append(spans, r.Span)
			}
		}
		merged := unionSpans(spans)
		if len(merged) != 1 || merged[0].Start > need.Start || merged[0].End < need.End {
			return false
		}
	}
	return true
}

// unionSpans merges overlapping and adjacent spans. The result is sorted.
func unionSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	out := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			last.End = maxInt(last.End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Support returns the number of reads from src supporting c on the contig
// it was called from.
func Support(c *VariantCall, src ReadSource, opts Opts) int {
	if src == nil || len(c.Contigs) == 0 {
		return 0
	}
	return CountSupport(c.breakSpans(), src.Reads(c.Contigs[0]), opts)
}

// addReadEvidence sets the spanning read count, the flanking pair count and
// the tiling flag of a call made from a single contig.
func addReadEvidence(c *VariantCall, reads []ReadAlignment, opts Opts) {
	breaks := c.breakSpans()
	c.Support = CountSupport(breaks, reads, opts)
	c.Flanking = CountFlanking(breaks, reads, opts)
	c.Tiled = CheckTiling(breaks, reads)
}
