package sv

import "sort"

// SeqAccessor returns subsequences of named sequences. fasta.Fasta implements
// it.
type SeqAccessor interface {
	Get(seqName string, start, end uint64) (string, error)
	Len(seqName string) (uint64, error)
}

// FeatureLookup finds annotated transcripts by coordinate. Implementations
// must be safe for concurrent use.
type FeatureLookup interface {
	// TranscriptsAt returns the transcripts whose span contains pos.
	TranscriptsAt(ref string, pos int) []*Transcript
	// Transcripts returns the transcripts whose span overlaps [start, end).
	Transcripts(ref string, start, end int) []*Transcript
}

// KnownEvents answers whether an event is listed in the supplementary
// annotation. Implementations must be safe for concurrent use.
type KnownEvents interface {
	// KnownFusion checks if the gene pair, in either order, is a known fusion.
	KnownFusion(gene1, gene2 string) bool
	// KnownJunction checks if [start, end) is an annotated intron.
	KnownJunction(ref string, start, end int) bool
	// KnownExon checks if [start, end) is covered by an annotated exon.
	KnownExon(ref string, start, end int) bool
}

// Transcript is an annotated transcript. Coordinates are 0-based, half-open.
type Transcript struct {
	ID     string
	Gene   string
	Chrom  string
	Strand Strand
	// Exons are sorted by position.
	Exons []Span
	// CDS is the coding region. It is empty for non-coding transcripts.
	CDS    Span
	Coding bool
	// GeneIndex is the rank of the gene within its chromosome.
	GeneIndex int
	GeneSpan  Span
}

// Span returns the genomic extent of the transcript.
func (t *Transcript) Span() Span {
	return Span{t.Exons[0].Start, t.Exons[len(t.Exons)-1].End}
}

// ExonNumber converts an index in Exons to the 1-based exon number in
// transcription order.
func (t *Transcript) ExonNumber(i int) int {
	if t.Strand == Reverse {
		return len(t.Exons) - i
	}
	return i + 1
}

func (t *Transcript) exonAt(pos int) int {
	i := sort.Search(len(t.Exons), func(i int) bool { return t.Exons[i].End > pos })
	if i < len(t.Exons) && t.Exons[i].Start <= pos {
		return i
	}
	return -1
}

// exonEnding finds the exon whose last base is within tol of pos.
func (t *Transcript) exonEnding(pos, tol int) int {
	for i, e := range t.Exons {
		if abs(e.End-1-pos) <= tol {
			return i
		}
	}
	return -1
}

// exonStarting finds the exon whose first base is within tol of pos.
func (t *Transcript) exonStarting(pos, tol int) int {
	for i, e := range t.Exons {
		if abs(e.Start-pos) <= tol {
			return i
		}
	}
	return -1
}

// bound checks if the breakpoint lies on an exon edge facing its retained
// sequence.
func (t *Transcript) bound(bp Breakpoint, tol int) bool {
	if bp.Orient == 'L' {
		return t.exonEnding(bp.Pos, tol) >= 0
	}
	return t.exonStarting(bp.Pos, tol) >= 0
}

func (t *Transcript) region(pos int) Region {
	if !t.Span().Contains(pos) {
		return Intergenic
	}
	if t.exonAt(pos) < 0 {
		return Intron
	}
	if !t.Coding || t.CDS.Len() == 0 {
		return Exon
	}
	switch {
	case pos < t.CDS.Start:
		if t.Strand == Reverse {
			return UTR3
		}
		return UTR5
	case pos >= t.CDS.End:
		if t.Strand == Reverse {
			return UTR5
		}
		return UTR3
	}
	return Exon
}

// CloseProximity checks if two transcripts belong to neighboring genes, in
// which case a junction between them is a read-through rather than a fusion.
func CloseProximity(t1, t2 *Transcript, maxProximityDistance, maxProximityGenes int) bool {
	if t1.Chrom != t2.Chrom || t1.Strand != t2.Strand {
		return false
	}
	if maxProximityGenes > 0 {
		if abs(t1.GeneIndex-t2.GeneIndex) <= maxProximityGenes {
			return true
		}
	}
	if maxProximityDistance > 0 {
		g1, g2 := t1.GeneSpan, t2.GeneSpan
		if g1.Start <= g2.Start {
			if g2.End < g1.End || g2.Start-g1.End <= maxProximityDistance {
				return true
			}
		} else {
			if g1.End < g2.End || g1.Start-g2.End <= maxProximityDistance {
				return true
			}
		}
	}
	return false
}

// Annotator attaches gene context to calls. It never drops a call; the only
// change of kind it makes is fusion to read-through.
type Annotator struct {
	lookup FeatureLookup
	known  KnownEvents
	opts   Opts
}

// NewAnnotator creates an Annotator. known may be nil.
func NewAnnotator(lookup FeatureLookup, known KnownEvents, opts Opts) *Annotator {
	return &Annotator{lookup: lookup, known: known, opts: opts}
}

// bestTranscript picks the transcript that best explains bp, skipping the
// transcripts of gene exclude. Exon-bound beats exonic beats coding, then the
// longer transcript wins.
func (a *Annotator) bestTranscript(bp Breakpoint, exclude string) *Transcript {
	var (
		best      *Transcript
		bestScore = -1
	)
	for _, t := range a.lookup.TranscriptsAt(bp.Ref, bp.Pos) {
		if exclude != "" && t.Gene == exclude {
			continue
		}
		score := 0
		if t.bound(bp, a.opts.ExonBoundTolerance) {
			score += 4
		}
		if t.exonAt(bp.Pos) >= 0 {
			score += 2
		}
		if t.Coding {
			score++
		}
		if best == nil || score > bestScore ||
			(score == bestScore && (t.Span().Len() > best.Span().Len() ||
				(t.Span().Len() == best.Span().Len() && t.ID < best.ID))) {
			best, bestScore = t, score
		}
	}
	return best
}

func (a *Annotator) side(t *Transcript, bp Breakpoint) SideAnnotation {
	if t == nil {
		return SideAnnotation{Region: Intergenic}
	}
	s := SideAnnotation{
		Gene:       t.Gene,
		Transcript: t.ID,
		Region:     t.region(bp.Pos),
		ExonBound:  t.bound(bp, a.opts.ExonBoundTolerance),
		Coding:     t.Coding,
		GeneStrand: t.Strand,
	}
	if i := t.exonAt(bp.Pos); i >= 0 {
		s.Exon = t.ExonNumber(i)
	}
	return s
}

// Annotate returns a copy of c with its annotation payload filled in.
func (a *Annotator) Annotate(c VariantCall) VariantCall {
	if a.lookup == nil {
		return c
	}
	var tx [2]*Transcript
	tx[0] = a.bestTranscript(c.Breakpoints[0], "")
	if c.NBreakpoints > 1 {
		exclude := ""
		if c.Kind.IsFusion() && tx[0] != nil {
			exclude = tx[0].Gene
		}
		tx[1] = a.bestTranscript(c.Breakpoints[1], exclude)
	}
	annot := Annotation{Known: c.Annot.Known, Ambiguous: c.Annot.Ambiguous, ExonBound: true}
	for i := 0; i < c.NBreakpoints; i++ {
		s := a.side(tx[i], c.Breakpoints[i])
		annot.Sides[i] = s
		if s.Region == UTR5 || s.Region == UTR3 {
			annot.InUTR = true
		}
		if !s.ExonBound {
			annot.ExonBound = false
		}
	}
	if c.Kind.IsFusion() && tx[0] != nil && tx[1] != nil {
		b0, b1 := c.Breakpoints[0], c.Breakpoints[1]
		annot.Sense = b0.Strand*tx[0].Strand == b1.Strand*tx[1].Strand
		annot.Noncoding = !tx[0].Coding || !tx[1].Coding
		annot.InFrame = annot.ExonBound && !annot.Noncoding
		if a.known != nil {
			annot.Known = a.known.KnownFusion(tx[0].Gene, tx[1].Gene)
		}
		if c.Kind == Fusion && CloseProximity(tx[0], tx[1], a.opts.MaxProximityDistance, a.opts.MaxProximityGenes) {
			c.Kind = ReadThrough
		}
	}
	c.Annot = annot
	return c
}
