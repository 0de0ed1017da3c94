package sv

// Mode selects the rule table used to classify junctions.
type Mode int

const (
	// Genome classifies junctions as genomic rearrangements.
	Genome Mode = iota
	// Transcriptome classifies junctions of transcript contigs aligned to the
	// genome as fusions, tandem duplications, indels and repeat changes.
	Transcriptome
	// Splice classifies junctions of transcript contigs against annotated exon
	// structure.
	Splice
)

func (m Mode) String() string {
	switch m {
	case Genome:
		return "genome"
	case Transcriptome:
		return "transcriptome"
	case Splice:
		return "splice"
	}
	return "unknown"
}

type Opts struct {
	Mode Mode

	// MinMapQ is the minimum mapping quality of a c2g record.
	MinMapQ int
	// MaxEditFraction drops c2g records whose edit distance, minus inserted
	// and deleted bases, divided by the aligned length exceeds this value.
	// Records without an NM tag are kept.
	MaxEditFraction float64
	// MinBlockLen is the minimum length of an aligned block. It is also the
	// minimum number of new contig bases a non-primary record must cover to be
	// kept.
	MinBlockLen int
	// MaxBlockOverlap is the largest contig-axis overlap tolerated between blocks
	// of different records.
	MaxBlockOverlap int
	// ReplaceHaplotypes replaces records on alternate haplotype or unplaced
	// references, whose names contain '_', by the secondary records on primary
	// assembly references.
	ReplaceHaplotypes bool

	// MinSupport is the minimum number of spanning reads.
	MinSupport int
	// MinIndelSize is the minimum size of a deletion or insertion.
	MinIndelSize int
	// MinIndelFlanking is the number of bases a read must extend past each side
	// of a break to be counted as spanning it.
	MinIndelFlanking int
	// MaxHomolLen caps the contig-side overlap of a junction.
	MaxHomolLen int
	// MaxNovelLen caps the untemplated sequence between two blocks.
	MaxNovelLen int
	// MinDupOverlap is the smallest reference re-traversal called a duplication.
	// Smaller negative reference gaps are explained as microhomology or a short
	// insertion.
	MinDupOverlap int
	// CleanBreakTolerance is the largest contig and reference gap of a clean
	// junction. Clean junctions report no homology or novel sequence.
	CleanBreakTolerance int
	// MinTilingNovelLen drops calls with at least this much novel sequence
	// unless reads tile across the break. Zero disables the check.
	MinTilingNovelLen int

	// NoUTR drops events with a breakpoint in an untranslated region.
	NoUTR bool
	// IncludeNonsenseFusion keeps fusions whose partners are joined against
	// their direction of transcription.
	IncludeNonsenseFusion bool
	// IncludeNonExonBoundFusion keeps fusions whose breakpoints are not both on
	// exon boundaries.
	IncludeNonExonBoundFusion bool
	// IncludeNoncodingFusion keeps fusions involving a non-coding gene.
	IncludeNoncodingFusion bool
	// IncludeReadThrough keeps fusions between neighboring genes.
	IncludeReadThrough bool

	// ExonBoundTolerance is the distance from an exon edge still considered on
	// the boundary.
	ExonBoundTolerance int
	// MaxProximityDistance is the distance below which two genes on the same
	// chromosome and strand are considered a read-through pair.
	MaxProximityDistance int
	// MaxProximityGenes is the number of genes separating a gene pair below which
	// the pair is considered a read-through pair.
	MaxProximityGenes int

	// ItdMinLen is the minimum length of a duplicated copy.
	ItdMinLen int
	// ItdMinIdentity is the minimum identity between the inserted sequence and
	// its adjacent copy.
	ItdMinIdentity float64
	// ItdMaxApart is the largest distance between the insertion and its copy.
	ItdMaxApart int
	// MaxRepeatUnit is the longest repeat unit considered for repeat expansion or
	// contraction.
	MaxRepeatUnit int
	// MinRepeatCopies is the minimum number of unit copies flanking the junction.
	MinRepeatCopies int

	// MinIntronSize is the smallest gap inside an exon called a novel intron.
	MinIntronSize int
	// RequireSpliceMotif requires a canonical GT-AG motif for novel splice sites
	// and introns when a reference is available.
	RequireSpliceMotif bool

	// MergeTolerance is the bucket size used to round breakpoint positions
	// when merging calls from different contigs. Buckets are fixed: with a
	// tolerance of 10, positions 19 and 20 fall in different buckets and do
	// not merge. Splice events ignore it.
	MergeTolerance int
	// SortByCoord sorts the output by reference and position.
	SortByCoord bool
	// ProbeLen is the length of the probe window centered on each break.
	ProbeLen int
	// SubseqLen is the length of the contig window flanking each break.
	SubseqLen int

	// Parallelism is the number of contig batches processed concurrently. Zero
	// means runtime.NumCPU.
	Parallelism int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Mode:                      Genome,
	MinMapQ:                   0,     // -min-mapq
	MaxEditFraction:           0.1,   // -max-edit-fraction
	MinBlockLen:               10,    // -min-block-len
	MaxBlockOverlap:           25,    // -max-block-overlap
	ReplaceHaplotypes:         true,  // -replace-haplotypes
	MinSupport:                4,     // -min-support
	MinIndelSize:              3,     // -min-indel-size
	MinIndelFlanking:          10,    // -min-indel-flanking
	MaxHomolLen:               5,     // -max-homol-len
	MaxNovelLen:               20,    // -max-novel-len
	MinDupOverlap:             6,     // -min-dup-overlap; MaxHomolLen+1
	CleanBreakTolerance:       0,     // -clean-break-tolerance
	MinTilingNovelLen:         0,     // -min-tiling-novel-len
	NoUTR:                     false, // -no-utr
	IncludeNonsenseFusion:     false, // -include-nonsense-fusion
	IncludeNonExonBoundFusion: true,  // -include-non-exon-bound-fusion
	IncludeNoncodingFusion:    false, // -include-noncoding-fusion
	IncludeReadThrough:        false, // -include-read-through
	ExonBoundTolerance:        0,     // -exon-bound-tolerance
	MaxProximityDistance:      100000,
	MaxProximityGenes:         0,
	ItdMinLen:                 10,
	ItdMinIdentity:            0.95,
	ItdMaxApart:               10,
	MaxRepeatUnit:             6,
	MinRepeatCopies:           2,
	MinIntronSize:             20,
	RequireSpliceMotif:        true,
	MergeTolerance:            1,
	SortByCoord:               true, // -sort-by-coord
	ProbeLen:                  100,  // -probe-len
	SubseqLen:                 50,   // -subseq-len
}
