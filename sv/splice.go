package sv

import "strings"

// spliceRank orders competing splice explanations; lower wins.
func spliceRank(k Kind) int {
	switch k {
	case SkippedExon:
		return 0
	case NovelDonor, NovelAcceptor:
		return 1
	case NovelIntron:
		return 2
	}
	return 3
}

// intronGap returns the reference gap of j in ascending coordinates if j
// looks like a spliced junction.
func intronGap(j *Junction) (Span, bool) {
	if !j.SameRef || !j.SameStrand || j.RefGap <= 0 {
		return Span{}, false
	}
	return j.refGapSpan(), true
}

// genomicBlocks returns the blocks of j in ascending reference order.
func genomicBlocks(j *Junction) (lo, hi *AlignedBlock) {
	if j.Left.Strand == Reverse {
		return j.Right, j.Left
	}
	return j.Left, j.Right
}

// spliceTranscripts returns the transcripts containing both edges of gap,
// ordered by ID.
func (c *Classifier) spliceTranscripts(ref string, gap Span) []*Transcript {
	var out []*Transcript
	for _, t := range c.lookup.Transcripts(ref, gap.Start-1, gap.End+1) {
		sp := t.Span()
		if t.Chrom == ref && sp.Contains(gap.Start-1) && sp.Contains(gap.End) {
			out = append(out, t)
		}
	}
	return sortTranscripts(out)
}

// motifOK checks for a canonical splice motif at the ends of intron. It
// passes when no reference is available or the check is disabled.
func (c *Classifier) motifOK(ref string, intron Span, strand Strand) bool {
	if c.ref == nil || !c.opts.RequireSpliceMotif || intron.Len() < 4 {
		return true
	}
	donor, err := c.ref.Get(ref, uint64(intron.Start), uint64(intron.Start+2))
	if err != nil {
		return false
	}
	acceptor, err := c.ref.Get(ref, uint64(intron.End-2), uint64(intron.End))
	if err != nil {
		return false
	}
	motif := strings.ToUpper(donor + acceptor)
	if strand == Reverse {
		return motif == "CTAC"
	}
	return motif == "GTAG"
}

func (c *Classifier) knownJunction(ref string, gap Span) bool {
	return c.known != nil && c.known.KnownJunction(ref, gap.Start, gap.End)
}

func (c *Classifier) knownExon(ref string, s Span) bool {
	return c.known != nil && c.known.KnownExon(ref, s.Start, s.End)
}

type spliceCandidate struct {
	kind Kind
	size int
}

// spliceJunction classifies one junction against the exon structure of the
// transcripts containing it. It returns false for annotated junctions and for
// gaps no transcript explains.
func (c *Classifier) spliceJunction(j *Junction) (VariantCall, bool) {
	gap, ok := intronGap(j)
	if !ok {
		return VariantCall{}, false
	}
	ref := j.Left.Ref
	lo, hi := genomicBlocks(j)
	tol := c.opts.ExonBoundTolerance
	best := spliceCandidate{kind: KindUnknown}
	offer := func(k Kind, size int) {
		if best.kind == KindUnknown || spliceRank(k) < spliceRank(best.kind) {
			best = spliceCandidate{k, size}
		}
	}
	for _, t := range c.spliceTranscripts(ref, gap) {
		iL := t.exonEnding(gap.Start-1, tol)
		iR := t.exonStarting(gap.End, tol)
		switch {
		case iL >= 0 && iR >= 0:
			if iR == iL+1 {
				return VariantCall{}, false
			}
			if iR > iL+1 {
				size := 0
				for _, e := range t.Exons[iL+1 : iR] {
					size += e.Len()
				}
				offer(SkippedExon, size)
			}
		case iL >= 0:
			for k := iL + 1; k < len(t.Exons); k++ {
				e := t.Exons[k]
				if e.End > gap.End && e.Start < hi.RefSpan.End {
					if c.motifOK(ref, gap, t.Strand) {
						kind := NovelAcceptor
						if t.Strand == Reverse {
							kind = NovelDonor
						}
						offer(kind, abs(gap.End-e.Start))
					}
					break
				}
			}
		case iR >= 0:
			for k := iR - 1; k >= 0; k-- {
				e := t.Exons[k]
				if e.Start < gap.Start && e.End > lo.RefSpan.Start {
					if c.motifOK(ref, gap, t.Strand) {
						kind := NovelDonor
						if t.Strand == Reverse {
							kind = NovelAcceptor
						}
						offer(kind, abs(gap.Start-e.End))
					}
					break
				}
			}
		default:
			k := t.exonAt(gap.Start - 1)
			if k >= 0 && gap.End < t.Exons[k].End && gap.Len() >= c.opts.MinIntronSize &&
				c.motifOK(ref, gap, t.Strand) {
				offer(NovelIntron, gap.Len())
			}
		}
	}
	if best.kind == KindUnknown {
		return VariantCall{}, false
	}
	call := VariantCall{
		Kind:         best.kind,
		NBreakpoints: 2,
		Breakpoints:  junctionBreakpoints(j),
		Size:         best.size,
		Homology:     j.HomologySeq(),
		Novel:        j.NovelSeq(),
		Contigs:      []string{j.Alignment.Contig},
		Junctions:    []JunctionRef{{Contig: j.Alignment.Contig, Index: j.Index}},
	}
	call.Annot.Known = c.knownJunction(ref, gap)
	canonicalize(&call)
	return call, true
}

// featureCall builds a call for a feature [s.Start, s.End) lying inside block
// b, such as a novel exon or a retained intron.
func featureCall(kind Kind, b *AlignedBlock, s Span) VariantCall {
	first := Breakpoint{Ref: b.Ref, Pos: s.Start, Strand: b.Strand, Orient: 'R', ContigPos: b.contigPos(s.Start)}
	last := Breakpoint{Ref: b.Ref, Pos: s.End - 1, Strand: b.Strand, Orient: 'L', ContigPos: b.contigPos(s.End)}
	c := VariantCall{Kind: kind, NBreakpoints: 2, Size: s.Len(), Contigs: []string{b.Contig}}
	if b.Strand == Reverse {
		c.Breakpoints = [2]Breakpoint{last, first}
	} else {
		c.Breakpoints = [2]Breakpoint{first, last}
	}
	canonicalize(&c)
	return c
}

// novelExon checks if the block shared by two consecutive junctions lies in
// an intron whose flanking exon edges the outer blocks join.
func (c *Classifier) novelExon(j1, j2 *Junction) (VariantCall, bool) {
	g1, ok1 := intronGap(j1)
	g2, ok2 := intronGap(j2)
	if !ok1 || !ok2 || j1.Right != j2.Left || j1.Left.Ref != j2.Right.Ref || j1.Left.Strand != j2.Right.Strand {
		return VariantCall{}, false
	}
	if g2.Start < g1.Start {
		g1, g2 = g2, g1
	}
	ref, mid := j1.Left.Ref, j1.Right
	exon := mid.RefSpan
	tol := c.opts.ExonBoundTolerance
	for _, t := range c.spliceTranscripts(ref, Span{g1.Start, g2.End}) {
		iL := t.exonEnding(g1.Start-1, tol)
		iR := t.exonStarting(g2.End, tol)
		if iL < 0 || iR <= iL {
			continue
		}
		for i := iL; i < iR; i++ {
			if t.Exons[i].End <= exon.Start && exon.End <= t.Exons[i+1].Start {
				if !c.motifOK(ref, g1, t.Strand) || !c.motifOK(ref, g2, t.Strand) {
					return VariantCall{}, false
				}
				call := featureCall(NovelExon, mid, exon)
				call.Junctions = []JunctionRef{
					{Contig: j1.Alignment.Contig, Index: j1.Index},
					{Contig: j2.Alignment.Contig, Index: j2.Index},
				}
				call.Annot.Known = c.knownExon(ref, exon)
				return call, true
			}
		}
	}
	return VariantCall{}, false
}

// retainedIntrons finds annotated introns covered end to end by a single
// block.
func (c *Classifier) retainedIntrons(ca *ContigAlignment) []VariantCall {
	var calls []VariantCall
	for i := range ca.Blocks {
		b := &ca.Blocks[i]
		seen := map[Span]bool{}
		for _, t := range sortTranscripts(c.lookup.Transcripts(b.Ref, b.RefSpan.Start, b.RefSpan.End)) {
			if t.Chrom != b.Ref {
				continue
			}
			for k := 0; k+1 < len(t.Exons); k++ {
				intron := Span{t.Exons[k].End, t.Exons[k+1].Start}
				if intron.Len() <= 0 || seen[intron] {
					continue
				}
				if b.RefSpan.Start < intron.Start && b.RefSpan.End > intron.End {
					seen[intron] = true
					call := featureCall(RetainedIntron, b, intron)
					call.Junctions = []JunctionRef{{Contig: ca.Contig, Index: i}}
					call.Annot.Known = c.knownExon(b.Ref, intron)
					calls = append(calls, call)
				}
			}
		}
	}
	return calls
}

func (c *Classifier) classifySplice(ca *ContigAlignment, junctions []Junction, stats *Stats) []VariantCall {
	if c.lookup == nil {
		return nil
	}
	var calls []VariantCall
	used := make([]bool, len(junctions))
	for k := 0; k+1 < len(junctions); k++ {
		if junctions[k+1].Index != junctions[k].Index+1 {
			continue
		}
		if call, ok := c.novelExon(&junctions[k], &junctions[k+1]); ok {
			calls = append(calls, call)
			used[k], used[k+1] = true, true
			k++
		}
	}
	for k := range junctions {
		if used[k] {
			continue
		}
		call, ok := c.spliceJunction(&junctions[k])
		if !ok {
			stats.Noise++
			continue
		}
		calls = append(calls, call)
	}
	calls = append(calls, c.retainedIntrons(ca)...)
	stats.Calls += len(calls)
	return calls
}
