package sv

import (
	"sort"
	"strings"
)

// kindExplained marks a junction fully explained by annotated splicing. No
// call is made for it.
const kindExplained Kind = 255

// rule maps a predicate over a junction to a kind. A rule returns
// KindUnknown when it does not apply. Rules of a table are evaluated in order
// and the first match wins.
type rule struct {
	name string
	eval func(s *classifyState) Kind
}

func when(kind Kind, pred func(s *classifyState) bool) func(s *classifyState) Kind {
	return func(s *classifyState) Kind {
		if pred(s) {
			return kind
		}
		return KindUnknown
	}
}

var genomeRules = []rule{
	{"translocation", when(Translocation, func(s *classifyState) bool { return !s.j.SameRef })},
	// Inversion beats duplication when both the strand flips and the blocks
	// overlap on the reference.
	{"inversion", when(Inversion, func(s *classifyState) bool { return !s.j.SameStrand })},
	{"duplication", when(Duplication, func(s *classifyState) bool { return s.j.RefGap <= -s.opts.MinDupOverlap })},
	{"deletion", when(Deletion, func(s *classifyState) bool {
		return s.j.RefGap > 0 && s.j.deletedSize() >= s.opts.MinIndelSize
	})},
	{"insertion", when(Insertion, func(s *classifyState) bool {
		return s.j.RefGap <= 0 && s.j.insertedSize() >= s.opts.MinIndelSize
	})},
}

// transcriptomeRules falls back to genomeRules when no gene-level rule
// applies. Fusion beats every intra-gene rule.
var transcriptomeRules = append([]rule{
	{"fusion", fusionRule},
	{"tandem-duplication", tandemDupRule},
	{"itd-copy", itdCopyRule},
	{"spliced", splicedRule},
	{"repeat", repeatRule},
	{"indel", when(Indel, func(s *classifyState) bool {
		if !s.sameGene() {
			return false
		}
		j := s.j
		return (j.RefGap > 0 && j.deletedSize() >= s.opts.MinIndelSize) ||
			(j.RefGap <= 0 && j.insertedSize() >= s.opts.MinIndelSize)
	})},
}, genomeRules...)

// Classifier turns junctions into variant calls. Its collaborators are only
// read, so one Classifier may be shared by concurrent workers.
type Classifier struct {
	opts   Opts
	lookup FeatureLookup
	known  KnownEvents
	ref    SeqAccessor
}

// NewClassifier creates a Classifier. lookup is required in transcriptome and
// splice modes; known and ref may be nil.
func NewClassifier(opts Opts, lookup FeatureLookup, known KnownEvents, ref SeqAccessor) *Classifier {
	return &Classifier{opts: opts, lookup: lookup, known: known, ref: ref}
}

// classifyState holds the junction being classified and what the rules learn
// about it.
type classifyState struct {
	c    *Classifier
	opts *Opts
	j    *Junction
	bp   [2]Breakpoint

	txLoaded bool
	tx       [2][]*Transcript
	genes    [2]map[string]bool
	shared   map[string]bool

	size      int
	unit      string
	ambiguous bool
}

func (s *classifyState) loadTranscripts() {
	if s.txLoaded || s.c.lookup == nil {
		return
	}
	s.txLoaded = true
	for i := range s.bp {
		s.tx[i] = s.c.lookup.TranscriptsAt(s.bp[i].Ref, s.bp[i].Pos)
		s.genes[i] = map[string]bool{}
		for _, t := range s.tx[i] {
			s.genes[i][t.Gene] = true
		}
	}
	s.shared = map[string]bool{}
	for g := range s.genes[0] {
		if s.genes[1][g] {
			s.shared[g] = true
		}
	}
}

// sameGene checks if both breakpoints fall in one gene on a single strand of
// one reference.
func (s *classifyState) sameGene() bool {
	s.loadTranscripts()
	return len(s.shared) > 0 && s.j.SameRef && s.j.SameStrand
}

// sharedTranscripts returns the transcripts of genes found at both
// breakpoints.
func (s *classifyState) sharedTranscripts() []*Transcript {
	var out []*Transcript
	for _, t := range s.tx[0] {
		if s.shared[t.Gene] {
			out = append(out, t)
		}
	}
	return out
}

// seq returns the upper-cased contig sequence, or "" if unknown.
func (s *classifyState) seq() string { return s.j.Alignment.Seq }

func fusionRule(s *classifyState) Kind {
	s.loadTranscripts()
	if len(s.tx[0]) == 0 || len(s.tx[1]) == 0 {
		return KindUnknown
	}
	if len(s.shared) == 0 {
		return Fusion
	}
	// A shared gene plus distinct genes on both sides admits both a fusion and
	// an intra-gene event.
	if len(s.genes[0]) > len(s.shared) && len(s.genes[1]) > len(s.shared) {
		s.ambiguous = true
	}
	return KindUnknown
}

// tandemDupRule types a reference re-traversal inside a gene as ITD when the
// duplicated span starts and ends on exon edges, PTD otherwise.
func tandemDupRule(s *classifyState) Kind {
	if !s.sameGene() || s.j.RefGap > -s.opts.MinDupOverlap {
		return KindUnknown
	}
	j := s.j
	dup := newSpan(j.Right.RefSpan.Start, j.Left.RefSpan.End)
	if j.Left.Strand == Reverse {
		dup = newSpan(j.Left.RefSpan.Start, j.Right.RefSpan.End)
	}
	tol := s.opts.ExonBoundTolerance
	for _, t := range s.sharedTranscripts() {
		if t.exonStarting(dup.Start, tol) >= 0 && t.exonEnding(dup.End-1, tol) >= 0 {
			return ITD
		}
	}
	return PTD
}

// itdCopyRule types an insertion as ITD when the inserted bases are a near
// copy of the adjacent contig sequence.
func itdCopyRule(s *classifyState) Kind {
	j, o := s.j, s.opts
	if !s.sameGene() || j.RefGap != 0 || j.ContigGap < o.ItdMinLen || j.insertedSize() < o.MinIndelSize {
		return KindUnknown
	}
	seq := s.seq()
	start, end := j.Left.ContigSpan.End, j.Right.ContigSpan.Start
	if end > len(seq) {
		return KindUnknown
	}
	ins := seq[start:end]
	n := len(ins)
	for k := 0; k <= o.ItdMaxApart; k++ {
		if e := start - k; e-n >= 0 && identity(ins, seq[e-n:e]) >= o.ItdMinIdentity {
			s.size = n
			return ITD
		}
		if b := end + k; b+n <= len(seq) && identity(ins, seq[b:b+n]) >= o.ItdMinIdentity {
			s.size = n
			return ITD
		}
	}
	return KindUnknown
}

// splicedRule recognizes an intra-gene gap joining two exon edges of one
// transcript. It is splicing, not a variant.
func splicedRule(s *classifyState) Kind {
	if !s.sameGene() || s.j.RefGap <= 0 {
		return KindUnknown
	}
	tol := s.opts.ExonBoundTolerance
	for _, t := range s.sharedTranscripts() {
		if t.bound(s.bp[0], tol) && t.bound(s.bp[1], tol) {
			return kindExplained
		}
	}
	return KindUnknown
}

// repeatRule recognizes insertions and deletions made of whole copies of a
// short unit that also flanks the junction.
func repeatRule(s *classifyState) Kind {
	if !s.sameGene() {
		return KindUnknown
	}
	j, o := s.j, s.opts
	seq := s.seq()
	if len(seq) == 0 {
		return KindUnknown
	}
	switch {
	case j.RefGap <= 0 && j.insertedSize() >= o.MinIndelSize:
		var start, end int
		switch {
		case j.RefGap == 0 && j.ContigGap > 0:
			start, end = j.Left.ContigSpan.End, j.Right.ContigSpan.Start
		case j.ContigGap == 0 && j.RefGap < 0:
			start, end = j.Right.ContigSpan.Start, j.Right.ContigSpan.Start-j.RefGap
		default:
			return KindUnknown
		}
		if end > len(seq) {
			return KindUnknown
		}
		unit := repeatUnit(seq[start:end], o.MaxRepeatUnit)
		if unit == "" || copiesBefore(seq, start, unit)+copiesAfter(seq, end, unit) < o.MinRepeatCopies {
			return KindUnknown
		}
		s.size = (end - start) / len(unit)
		s.unit = j.orient(unit)
		return RepeatExpansion
	case j.RefGap > 0 && j.ContigGap == 0 && j.deletedSize() >= o.MinIndelSize:
		if s.c.ref == nil {
			return KindUnknown
		}
		gap := j.refGapSpan()
		del, err := s.c.ref.Get(j.Left.Ref, uint64(gap.Start), uint64(gap.End))
		if err != nil {
			return KindUnknown
		}
		del = strings.ToUpper(del)
		if j.Left.Strand == Reverse {
			del = reverseComplement(del)
		}
		unit := repeatUnit(del, o.MaxRepeatUnit)
		pos := j.Left.ContigSpan.End
		if unit == "" || copiesBefore(seq, pos, unit)+copiesAfter(seq, pos, unit) < o.MinRepeatCopies {
			return KindUnknown
		}
		s.size = len(del) / len(unit)
		s.unit = j.orient(unit)
		return RepeatContraction
	}
	return KindUnknown
}

func leftOrient(b *AlignedBlock) byte {
	if b.Strand == Reverse {
		return 'R'
	}
	return 'L'
}

func rightOrient(b *AlignedBlock) byte {
	if b.Strand == Reverse {
		return 'L'
	}
	return 'R'
}

// junctionBreakpoints returns the breakpoints of j in contig order.
func junctionBreakpoints(j *Junction) [2]Breakpoint {
	return [2]Breakpoint{
		{Ref: j.Left.Ref, Pos: j.Left.leftBreak(), Strand: j.Left.Strand, Orient: leftOrient(j.Left), ContigPos: j.Left.ContigSpan.End},
		{Ref: j.Right.Ref, Pos: j.Right.rightBreak(), Strand: j.Right.Strand, Orient: rightOrient(j.Right), ContigPos: j.Right.ContigSpan.Start},
	}
}

// canonicalize orders the breakpoints of c so that an event reported by a
// contig and by its reverse complement yields the same call. Same-strand
// events of one reference are put on the forward strand; other events are
// ordered by (ref, pos). Reordering flips both strands.
func canonicalize(c *VariantCall) {
	if c.NBreakpoints < 2 {
		return
	}
	a, b := c.Breakpoints[0], c.Breakpoints[1]
	var swap bool
	if a.Ref == b.Ref && a.Strand == b.Strand {
		swap = a.Strand == Reverse
	} else {
		swap = b.Ref < a.Ref || (b.Ref == a.Ref && b.Pos < a.Pos)
	}
	if swap {
		a.Strand, b.Strand = a.Strand.Flip(), b.Strand.Flip()
		c.Breakpoints[0], c.Breakpoints[1] = b, a
	}
}

// defaultSize returns the event size implied by the junction geometry.
func defaultSize(kind Kind, j *Junction) int {
	switch kind {
	case Deletion:
		return j.deletedSize()
	case Insertion, Duplication, ITD, PTD:
		return j.insertedSize()
	case Indel:
		if j.RefGap > 0 {
			return j.deletedSize()
		}
		return j.insertedSize()
	}
	return 0
}

func (s *classifyState) call(kind Kind) VariantCall {
	j := s.j
	c := VariantCall{
		Kind:         kind,
		NBreakpoints: 2,
		Breakpoints:  s.bp,
		Size:         s.size,
		RepeatUnit:   s.unit,
		Contigs:      []string{j.Alignment.Contig},
		Junctions:    []JunctionRef{{Contig: j.Alignment.Contig, Index: j.Index}},
	}
	if !j.Clean(s.opts.CleanBreakTolerance) {
		c.Homology = j.HomologySeq()
		c.Novel = j.NovelSeq()
	}
	if c.Size == 0 {
		c.Size = defaultSize(kind, j)
	}
	c.Annot.Ambiguous = s.ambiguous
	canonicalize(&c)
	return c
}

// Classify types one junction with the rule table of the configured mode. It
// returns false when no rule applies or when the junction is ordinary
// splicing.
func (c *Classifier) Classify(j *Junction) (VariantCall, bool) {
	rules := genomeRules
	if c.opts.Mode == Transcriptome && c.lookup != nil {
		rules = transcriptomeRules
	}
	s := &classifyState{c: c, opts: &c.opts, j: j, bp: junctionBreakpoints(j)}
	for _, r := range rules {
		switch kind := r.eval(s); kind {
		case KindUnknown:
			continue
		case kindExplained:
			return VariantCall{}, false
		default:
			return s.call(kind), true
		}
	}
	return VariantCall{}, false
}

// ClassifyAlignment classifies the junctions of one contig. In splice mode the
// whole alignment is examined, since novel exons span two junctions and
// retained introns none.
func (c *Classifier) ClassifyAlignment(ca *ContigAlignment, junctions []Junction, stats *Stats) []VariantCall {
	if c.opts.Mode == Splice {
		return c.classifySplice(ca, junctions, stats)
	}
	var calls []VariantCall
	for i := range junctions {
		call, ok := c.Classify(&junctions[i])
		if !ok {
			stats.Noise++
			continue
		}
		calls = append(calls, call)
	}
	stats.Calls += len(calls)
	return calls
}

func sortTranscripts(txs []*Transcript) []*Transcript {
	out := append([]*Transcript(nil), txs...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
