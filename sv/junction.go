package sv

// Junction is the boundary between two adjacent blocks of a ContigAlignment.
// It refers to the blocks of the alignment and must not outlive it.
type Junction struct {
	Alignment *ContigAlignment
	// Index is the index of Left in Alignment.Blocks.
	Index       int
	Left, Right *AlignedBlock

	// ContigGap is start(Right) - end(Left) on the contig. A negative value is
	// an overlap (microhomology), a positive one is untemplated sequence.
	ContigGap int
	// RefGap is the analogous distance on the reference, following the
	// direction of the contig. It is only set when SameRef and SameStrand.
	RefGap     int
	SameStrand bool
	SameRef    bool
}

// Homology returns the length of the contig overlap of the two blocks.
func (j *Junction) Homology() int {
	if j.ContigGap < 0 {
		return -j.ContigGap
	}
	return 0
}

// NovelLen returns the length of the untemplated sequence between the blocks.
func (j *Junction) NovelLen() int {
	if j.ContigGap > 0 {
		return j.ContigGap
	}
	return 0
}

// Clean checks if the junction has neither inserted nor homologous sequence,
// up to tol bases on both axes.
func (j *Junction) Clean(tol int) bool {
	if abs(j.ContigGap) > tol {
		return false
	}
	return !(j.SameRef && j.SameStrand) || abs(j.RefGap) <= tol
}

// BreakSpan returns the contig region between the two blocks. For an overlap
// it is the shared region.
func (j *Junction) BreakSpan() Span {
	a, b := j.Left.ContigSpan.End, j.Right.ContigSpan.Start
	if a > b {
		a, b = b, a
	}
	return newSpan(a, b)
}

// contigSeq returns the raw contig bases of the break span, or "" if the
// contig sequence is unknown.
func (j *Junction) contigSeq() string {
	s := j.BreakSpan()
	if s.Len() == 0 || s.End > len(j.Alignment.Seq) {
		return ""
	}
	return j.Alignment.Seq[s.Start:s.End]
}

// orient returns seq in the orientation of the left block's reference strand.
func (j *Junction) orient(seq string) string {
	if j.Left.Strand == Reverse {
		return reverseComplement(seq)
	}
	return seq
}

// HomologySeq returns the microhomology sequence, relative to the strand of
// the left block.
func (j *Junction) HomologySeq() string {
	if j.ContigGap >= 0 {
		return ""
	}
	return j.orient(j.contigSeq())
}

// NovelSeq returns the untemplated sequence, relative to the strand of the
// left block.
func (j *Junction) NovelSeq() string {
	if j.ContigGap <= 0 {
		return ""
	}
	return j.orient(j.contigSeq())
}

// deletedSize is the number of reference bases skipped by the junction,
// counting bases hidden by microhomology.
func (j *Junction) deletedSize() int {
	return j.RefGap - minInt(j.ContigGap, 0)
}

// insertedSize is the number of contig bases added by the junction, counting
// bases of a short reference re-traversal.
func (j *Junction) insertedSize() int {
	return j.ContigGap - minInt(j.RefGap, 0)
}

// refGapSpan returns the reference bases between the blocks in ascending
// order. REQUIRES: SameRef && SameStrand && RefGap > 0.
func (j *Junction) refGapSpan() Span {
	if j.Left.Strand == Reverse {
		return newSpan(j.Right.RefSpan.End, j.Left.RefSpan.Start)
	}
	return newSpan(j.Left.RefSpan.End, j.Right.RefSpan.Start)
}

func newJunction(ca *ContigAlignment, i int) Junction {
	l, r := &ca.Blocks[i], &ca.Blocks[i+1]
	j := Junction{
		Alignment:  ca,
		Index:      i,
		Left:       l,
		Right:      r,
		ContigGap:  r.ContigSpan.Start - l.ContigSpan.End,
		SameStrand: l.Strand == r.Strand,
		SameRef:    l.Ref == r.Ref,
	}
	if j.SameRef && j.SameStrand {
		if l.Strand == Reverse {
			j.RefGap = l.RefSpan.Start - r.RefSpan.End
		} else {
			j.RefGap = r.RefSpan.Start - l.RefSpan.End
		}
	}
	return j
}

// ExtractJunctions computes the junction between every pair of adjacent blocks
// of ca. Junctions whose contig overlap exceeds opts.MaxHomolLen, or whose
// untemplated sequence exceeds opts.MaxNovelLen, are rejected.
func ExtractJunctions(ca *ContigAlignment, opts Opts, stats *Stats) []Junction {
	var junctions []Junction
	for i := 0; i+1 < len(ca.Blocks); i++ {
		j := newJunction(ca, i)
		if j.Homology() > opts.MaxHomolLen {
			stats.RejectedHomology++
			continue
		}
		if j.NovelLen() > opts.MaxNovelLen {
			stats.RejectedNovel++
			continue
		}
		junctions = append(junctions, j)
	}
	stats.Junctions += len(junctions)
	return junctions
}
