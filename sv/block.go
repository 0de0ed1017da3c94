package sv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
)

// BlockSpan is one gap-free piece of an alignment record: a run of aligned
// bases between insertions, deletions or skips.
type BlockSpan struct {
	// Contig is in the contig's own (forward) orientation, even when the record
	// aligns to the reverse strand.
	Contig Span
	Ref    Span
}

// Record is one parsed contig-to-genome alignment record.
type Record struct {
	Contig    string
	ContigLen int
	Ref       string
	Strand    Strand
	MapQ      int

	Secondary     bool
	Supplementary bool
	// NM is the edit distance of the record, or -1 if unknown.
	NM int
	// IndelLen is the total length of the insertions and deletions of the
	// record. NM counts these bases too.
	IndelLen int

	// Blocks lists the aligned pieces of the record in reference order.
	Blocks []BlockSpan
}

// alignedLen returns the number of contig bases covered by the record.
func (r *Record) alignedLen() int {
	n := 0
	for _, b := range r.Blocks {
		n += b.Contig.Len()
	}
	return n
}

func (r *Record) refStart() int {
	if len(r.Blocks) == 0 {
		return 0
	}
	return r.Blocks[0].Ref.Start
}

// Ranks of records during selection.
const (
	rankPrimary = iota
	rankSupplementary
	rankSecondary
	rankHaplotype
)

// rank orders primary records before supplementary ones, and those before
// secondary ones.
func (r *Record) rank() int {
	switch {
	case r.Secondary:
		return rankSecondary
	case r.Supplementary:
		return rankSupplementary
	}
	return rankPrimary
}

// effectiveEditDistance returns the edit distance without the indel bases, or
// -1 if unknown.
func (r *Record) effectiveEditDistance() int {
	if r.NM < 0 {
		return -1
	}
	return maxInt(r.NM-r.IndelLen, 0)
}

// nonCanonicalRef checks if ref is an alternate haplotype or unplaced
// sequence, e.g. chr6_cox_hap2 or chrUn_gl000220.
func nonCanonicalRef(ref string) bool { return strings.Contains(ref, "_") }

// replaceHaplotypes demotes non-secondary records on non-canonical
// references below everything else, and promotes the secondary records on
// canonical references in their place. Ranks are left alone when no
// non-secondary record is on a non-canonical reference.
func replaceHaplotypes(records []Record, ranks []int) {
	found := false
	for i := range records {
		if ranks[i] != rankSecondary && nonCanonicalRef(records[i].Ref) {
			ranks[i] = rankHaplotype
			found = true
		}
	}
	if !found {
		return
	}
	for i := range records {
		if ranks[i] == rankSecondary && !nonCanonicalRef(records[i].Ref) {
			ranks[i] = rankSupplementary
		}
	}
}

func (r *Record) validate() error {
	if r.Strand != Forward && r.Strand != Reverse {
		return errors.E(errors.Invalid, fmt.Sprintf("contig %s: invalid strand %d", r.Contig, r.Strand))
	}
	for _, b := range r.Blocks {
		if b.Contig.Start < 0 || b.Contig.End <= b.Contig.Start || b.Ref.Start < 0 || b.Ref.End <= b.Ref.Start {
			return errors.E(errors.Invalid, fmt.Sprintf("contig %s: malformed block %+v", r.Contig, b))
		}
		if r.ContigLen > 0 && b.Contig.End > r.ContigLen {
			return errors.E(errors.Invalid, fmt.Sprintf("contig %s: block %+v past contig end %d", r.Contig, b, r.ContigLen))
		}
	}
	return nil
}

// AlignedBlock is one contiguous aligned segment of a contig against a
// reference sequence. Blocks are immutable once built.
type AlignedBlock struct {
	Contig     string
	ContigSpan Span
	Ref        string
	RefSpan    Span
	Strand     Strand
	MapQ       int

	// record is the index of the source record within the contig's input.
	record int
}

// leftBreak returns the reference position of the last aligned base of b when
// b precedes a junction on the contig.
func (b *AlignedBlock) leftBreak() int {
	if b.Strand == Reverse {
		return b.RefSpan.Start
	}
	return b.RefSpan.End - 1
}

// rightBreak returns the reference position of the first aligned base of b
// when b follows a junction on the contig.
func (b *AlignedBlock) rightBreak() int {
	if b.Strand == Reverse {
		return b.RefSpan.End - 1
	}
	return b.RefSpan.Start
}

// contigPos maps a reference boundary inside b to the matching contig
// boundary.
func (b *AlignedBlock) contigPos(refPos int) int {
	if b.Strand == Reverse {
		return b.ContigSpan.End - (refPos - b.RefSpan.Start)
	}
	return b.ContigSpan.Start + (refPos - b.RefSpan.Start)
}

// ContigAlignment is the partition of one contig into aligned blocks, ordered
// by contig coordinate.
type ContigAlignment struct {
	Contig string
	Len    int
	// Seq is the contig sequence. It may be empty, in which case homology and
	// novel sequences are not reported.
	Seq    string
	Blocks []AlignedBlock
}

// Empty checks if no block survived selection.
func (ca *ContigAlignment) Empty() bool { return len(ca.Blocks) == 0 }

// Validate checks that blocks are strictly ordered by contig start and
// overlap by at most tolerance bases.
func (ca *ContigAlignment) Validate(tolerance int) error {
	for i := 1; i < len(ca.Blocks); i++ {
		prev, cur := &ca.Blocks[i-1], &ca.Blocks[i]
		if cur.ContigSpan.Start <= prev.ContigSpan.Start {
			return fmt.Errorf("contig %s: block %d (%+v) not after block %d (%+v)",
				ca.Contig, i, cur.ContigSpan, i-1, prev.ContigSpan)
		}
		if prev.ContigSpan.End-cur.ContigSpan.Start > tolerance {
			return fmt.Errorf("contig %s: blocks %d and %d overlap by %d",
				ca.Contig, i-1, i, prev.ContigSpan.End-cur.ContigSpan.Start)
		}
	}
	return nil
}

// NewContigAlignment merges the records of one contig into a
// ContigAlignment. Records are selected greedily, best first: a
// supplementary or secondary record is kept only when it adds at least
// opts.MinBlockLen contig bases and does not overlap kept blocks by more than
// opts.MaxBlockOverlap. Candidate blocks nested with a kept block are
// dropped. With opts.ReplaceHaplotypes, records on non-canonical references
// are replaced by canonical secondary records. A contig without surviving
// blocks yields an empty ContigAlignment and no error.
func NewContigAlignment(records []Record, opts Opts, stats *Stats) (ContigAlignment, error) {
	if len(records) == 0 {
		return ContigAlignment{}, nil
	}
	ca := ContigAlignment{Contig: records[0].Contig}
	for i := range records {
		r := &records[i]
		if r.Contig != ca.Contig {
			return ContigAlignment{}, errors.E(errors.Invalid,
				fmt.Sprintf("records of contigs %s and %s mixed", ca.Contig, r.Contig))
		}
		if err := r.validate(); err != nil {
			return ContigAlignment{}, err
		}
		if r.ContigLen > ca.Len {
			ca.Len = r.ContigLen
		}
	}
	order := make([]int, len(records))
	ranks := make([]int, len(records))
	for i := range order {
		order[i] = i
		ranks[i] = records[i].rank()
	}
	if opts.ReplaceHaplotypes {
		replaceHaplotypes(records, ranks)
	}
	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := &records[order[i]], &records[order[j]]
		if ranks[order[i]] != ranks[order[j]] {
			return ranks[order[i]] < ranks[order[j]]
		}
		if li, lj := ri.alignedLen(), rj.alignedLen(); li != lj {
			return li > lj
		}
		if ri.Ref != rj.Ref {
			return ri.Ref < rj.Ref
		}
		return ri.refStart() < rj.refStart()
	})

	stats.Records += len(records)
	for _, idx := range order {
		r := &records[idx]
		if ranks[idx] == rankHaplotype || !acceptRecord(r, opts) {
			stats.DroppedRecords++
			continue
		}
		var blocks []AlignedBlock
		for _, b := range r.Blocks {
			if b.Contig.Len() < opts.MinBlockLen {
				continue
			}
			blocks = append(blocks, AlignedBlock{
				Contig:     r.Contig,
				ContigSpan: b.Contig,
				Ref:        r.Ref,
				RefSpan:    b.Ref,
				Strand:     r.Strand,
				MapQ:       r.MapQ,
				record:     idx,
			})
		}
		if len(ca.Blocks) > 0 {
			var ok bool
			if blocks, ok = selectBlocks(ca.Blocks, blocks, opts); !ok {
				stats.DroppedRecords++
				continue
			}
		}
		if len(blocks) == 0 {
			stats.DroppedRecords++
			continue
		}
		ca.Blocks = append(ca.Blocks, blocks...)
	}
	sort.SliceStable(ca.Blocks, func(i, j int) bool {
		bi, bj := &ca.Blocks[i], &ca.Blocks[j]
		if bi.ContigSpan.Start != bj.ContigSpan.Start {
			return bi.ContigSpan.Start < bj.ContigSpan.Start
		}
		return bi.ContigSpan.End < bj.ContigSpan.End
	})
	stats.Blocks += len(ca.Blocks)
	return ca, nil
}

func acceptRecord(r *Record, opts Opts) bool {
	if r.MapQ < opts.MinMapQ || len(r.Blocks) == 0 {
		return false
	}
	if nm := r.effectiveEditDistance(); nm >= 0 && opts.MaxEditFraction > 0 {
		if float64(nm)/float64(r.alignedLen()) > opts.MaxEditFraction {
			return false
		}
	}
	return true
}

// nested checks if one of a and b contains the other, or both start at the
// same contig position.
func nested(a, b Span) bool {
	return a.Start == b.Start || (a.Start < b.Start && a.End >= b.End) || (b.Start < a.Start && b.End >= a.End)
}

// selectBlocks returns the candidate blocks that may join the kept ones.
// Blocks nested with a kept block are dropped. It returns false when a
// remaining block overlaps a kept one by more than opts.MaxBlockOverlap, or
// when the remaining blocks add fewer than opts.MinBlockLen contig bases.
// The result satisfies ContigAlignment.Validate.
func selectBlocks(kept, cand []AlignedBlock, opts Opts) ([]AlignedBlock, bool) {
	var (
		out   = cand[:0:0]
		added int
	)
outer:
	for _, c := range cand {
		n := c.ContigSpan.Len()
		for _, k := range kept {
			if nested(c.ContigSpan, k.ContigSpan) {
				continue outer
			}
			ov := c.ContigSpan.Overlap(k.ContigSpan)
			if ov > opts.MaxBlockOverlap {
				return nil, false
			}
			n -= ov
		}
		if n > 0 {
			added += n
		}
		out = append(out, c)
	}
	return out, added >= maxInt(opts.MinBlockLen, 1)
}
