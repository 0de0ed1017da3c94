package sv

import "fmt"

// Kind is the type of a variant call.
type Kind uint8

const (
	KindUnknown Kind = iota
	Translocation
	Inversion
	Duplication
	Deletion
	Insertion

	Fusion
	ReadThrough
	ITD
	PTD
	Indel
	RepeatExpansion
	RepeatContraction

	SkippedExon
	NovelExon
	RetainedIntron
	NovelIntron
	NovelDonor
	NovelAcceptor

	numKinds
)

var kindNames = [numKinds]string{
	KindUnknown:       "unknown",
	Translocation:     "translocation",
	Inversion:         "inversion",
	Duplication:       "duplication",
	Deletion:          "deletion",
	Insertion:         "insertion",
	Fusion:            "fusion",
	ReadThrough:       "read_through",
	ITD:               "ITD",
	PTD:               "PTD",
	Indel:             "indel",
	RepeatExpansion:   "repeat_expansion",
	RepeatContraction: "repeat_contraction",
	SkippedExon:       "skipped_exon",
	NovelExon:         "novel_exon",
	RetainedIntron:    "retained_intron",
	NovelIntron:       "novel_intron",
	NovelDonor:        "novel_donor",
	NovelAcceptor:     "novel_acceptor",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("kind%d", k)
	}
	return kindNames[k]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindUnknown, false
}

// IsFusion checks if the kind joins two genes.
func (k Kind) IsFusion() bool { return k == Fusion || k == ReadThrough }

// IsSplice checks if the kind is a splicing event.
func (k Kind) IsSplice() bool { return k >= SkippedExon && k <= NovelAcceptor }

// Breakpoint is one side of a variant on the reference.
type Breakpoint struct {
	Ref string
	// Pos is the 0-based reference coordinate of the last base retained on this
	// side.
	Pos    int
	Strand Strand
	// Orient is 'L' when the retained sequence lies left of (below) Pos and 'R'
	// when it lies right of Pos.
	Orient byte
	// ContigPos is the contig boundary of the break on this side.
	ContigPos int
}

// Region is the kind of annotated feature a breakpoint falls in.
type Region uint8

const (
	Intergenic Region = iota
	Intron
	Exon
	UTR5
	UTR3
)

func (r Region) String() string {
	switch r {
	case Intron:
		return "intronic"
	case Exon:
		return "exonic"
	case UTR5:
		return "utr5"
	case UTR3:
		return "utr3"
	}
	return "intergenic"
}

// SideAnnotation is the gene context of one breakpoint.
type SideAnnotation struct {
	Gene       string
	Transcript string
	// Exon is the 1-based exon number in transcription order, or 0 outside
	// exons.
	Exon       int
	Region     Region
	ExonBound  bool
	Coding     bool
	GeneStrand Strand
}

// Annotation is the annotation payload of a call.
type Annotation struct {
	Sides [2]SideAnnotation
	// Known is set when the event is listed in the supplementary annotation.
	Known bool
	// Ambiguous is set when conflicting annotation forced a lower-priority kind.
	Ambiguous bool
	InUTR     bool
	// ExonBound is set when every breakpoint is on an exon boundary.
	ExonBound bool
	InFrame   bool
	// Sense is set for fusions joining both partners in their direction of
	// transcription.
	Sense     bool
	Noncoding bool
}

// JunctionRef identifies the junction a call was derived from.
type JunctionRef struct {
	Contig string
	// Index is the index of the junction's left block. Retained intron calls
	// refer to the block spanning the intron.
	Index int
}

// VariantCall is a classified variant.
type VariantCall struct {
	ID   string
	Kind Kind
	// NBreakpoints is the number of valid entries in Breakpoints.
	NBreakpoints int
	Breakpoints  [2]Breakpoint
	Homology     string
	Novel        string
	// Size is the number of bases deleted, inserted or duplicated, the length
	// of the skipped, novel or retained feature, the splice site shift, or
	// the change in repeat unit count.
	Size       int
	RepeatUnit string

	// Support is the number of reads spanning the break.
	Support int
	// Flanking is the number of read pairs whose inner fragment straddles the
	// break.
	Flanking int
	// Tiled is set when reads cover the break without a gap.
	Tiled     bool
	Contigs   []string
	Junctions []JunctionRef

	Annot   Annotation
	Probes  [2]string
	Subseqs [2]string
}

// breakSpans returns the contig regions a read must cross to support the
// call.
func (c *VariantCall) breakSpans() []Span {
	a, b := c.Breakpoints[0].ContigPos, c.Breakpoints[1].ContigPos
	if c.NBreakpoints < 2 {
		b = a
	}
	if c.Kind == RetainedIntron {
		return []Span{{a, a}, {b, b}}
	}
	if a > b {
		a, b = b, a
	}
	return []Span{{a, b}}
}

func (c *VariantCall) String() string {
	s := fmt.Sprintf("%s %s:%d%s", c.Kind, c.Breakpoints[0].Ref, c.Breakpoints[0].Pos, c.Breakpoints[0].Strand)
	if c.NBreakpoints > 1 {
		s += fmt.Sprintf(" %s:%d%s", c.Breakpoints[1].Ref, c.Breakpoints[1].Pos, c.Breakpoints[1].Strand)
	}
	return s + fmt.Sprintf(" size=%d support=%d", c.Size, c.Support)
}
