package sv

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

var nmTag = sam.NewTag("NM")

func editDistance(r *sam.Record) int {
	aux := r.AuxFields.Get(nmTag)
	if aux == nil {
		return -1
	}
	switch v := aux.Value().(type) {
	case int8:
		return int(v)
	case uint8:
		return int(v)
	case int16:
		return int(v)
	case uint16:
		return int(v)
	case int32:
		return int(v)
	case uint32:
		return int(v)
	case int:
		return v
	}
	return -1
}

// queryLen returns the length of the read or contig, including hard clips.
func queryLen(cigar sam.Cigar) int {
	n := 0
	for _, op := range cigar {
		if op.Type() == sam.CigarHardClipped || op.Type().Consumes().Query > 0 {
			n += op.Len()
		}
	}
	return n
}

// FromSAM converts a contig-to-genome record. Runs of M, = and X become
// blocks; I, D and N end a block. Contig coordinates are flipped into the
// contig's own orientation for reverse-strand records. The lengths of I and D
// ops add up to Record.IndelLen.
func FromSAM(r *sam.Record) (Record, error) {
	if r.Flags&sam.Unmapped != 0 || r.Ref == nil {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("%s: unmapped record", r.Name))
	}
	rec := Record{
		Contig:        r.Name,
		ContigLen:     queryLen(r.Cigar),
		Ref:           r.Ref.Name(),
		Strand:        Forward,
		MapQ:          int(r.MapQ),
		Secondary:     r.Flags&sam.Secondary != 0,
		Supplementary: r.Flags&sam.Supplementary != 0,
		NM:            editDistance(r),
	}
	if r.Flags&sam.Reverse != 0 {
		rec.Strand = Reverse
	}
	var (
		qpos, rpos = 0, r.Pos
		open       bool
	)
	for _, op := range r.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if open {
				b := &rec.Blocks[len(rec.Blocks)-1]
				b.Contig.End += n
				b.Ref.End += n
			} else {
				rec.Blocks = append(rec.Blocks, BlockSpan{Contig: Span{qpos, qpos + n}, Ref: Span{rpos, rpos + n}})
				open = true
			}
			qpos += n
			rpos += n
		case sam.CigarInsertion:
			rec.IndelLen += n
			qpos += n
			open = false
		case sam.CigarSoftClipped, sam.CigarHardClipped:
			qpos += n
			open = false
		case sam.CigarDeletion:
			rec.IndelLen += n
			rpos += n
			open = false
		case sam.CigarSkipped:
			rpos += n
			open = false
		case sam.CigarPadded:
		default:
			return Record{}, errors.E(errors.Invalid, fmt.Sprintf("%s: unknown cigar op %v", r.Name, op))
		}
	}
	if rec.Strand == Reverse {
		for i := range rec.Blocks {
			c := &rec.Blocks[i].Contig
			*c = Span{rec.ContigLen - c.End, rec.ContigLen - c.Start}
		}
	}
	return rec, nil
}

// ReadFromSAM converts a read-to-contig record. It returns false for
// unmapped, secondary and supplementary records. Mate fields are set only for
// proper pairs with both mates on the same contig.
func ReadFromSAM(r *sam.Record) (ReadAlignment, bool) {
	if r.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary) != 0 || r.Ref == nil {
		return ReadAlignment{}, false
	}
	ra := ReadAlignment{
		Name:        r.Name,
		Contig:      r.Ref.Name(),
		Span:        Span{r.Start(), r.End()},
		Strand:      Forward,
		FullyMapped: true,
	}
	if r.Flags&sam.Reverse != 0 {
		ra.Strand = Reverse
	}
	if r.Flags&sam.ProperPair != 0 && r.MateRef != nil && r.MateRef.Name() == r.Ref.Name() {
		ra.ProperPair = true
		ra.MateStart = r.MatePos
		ra.TLen = r.TempLen
	}
	if len(r.Cigar) > 0 {
		if isClip(r.Cigar[0]) && r.Start() > 0 {
			ra.FullyMapped = false
		}
		if isClip(r.Cigar[len(r.Cigar)-1]) && r.End() < r.Ref.Len() {
			ra.FullyMapped = false
		}
	}
	return ra, true
}

func isClip(op sam.CigarOp) bool {
	t := op.Type()
	return t == sam.CigarSoftClipped || t == sam.CigarHardClipped
}
