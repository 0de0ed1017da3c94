package sv

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/contigsv/encoding/fasta"
	"github.com/grailbio/testutil/assert"
)

// testRef returns a deterministic random sequence.
func testRef(n int) []byte {
	r := rand.New(rand.NewSource(1))
	b := make([]byte, n)
	for i := range b {
		b[i] = "ACGT"[r.Intn(4)]
	}
	return b
}

func bs(contigStart, contigEnd, refStart, refEnd int) BlockSpan {
	return BlockSpan{Contig: Span{contigStart, contigEnd}, Ref: Span{refStart, refEnd}}
}

func rec(contig, ref string, strand Strand, blocks ...BlockSpan) Record {
	return Record{Contig: contig, Ref: ref, Strand: strand, MapQ: 60, NM: -1, Blocks: blocks}
}

func newAlignment(t *testing.T, opts Opts, seq string, records ...Record) *ContigAlignment {
	var stats Stats
	ca, err := NewContigAlignment(records, opts, &stats)
	assert.NoError(t, err)
	if seq != "" {
		ca.Seq = seq
		ca.Len = len(seq)
	}
	assert.NoError(t, ca.Validate(opts.MaxBlockOverlap))
	return &ca
}

func classifyAll(cl *Classifier, ca *ContigAlignment, stats *Stats) []VariantCall {
	junctions := ExtractJunctions(ca, cl.opts, stats)
	return cl.ClassifyAlignment(ca, junctions, stats)
}

func newFasta(t *testing.T, seqs ...string) fasta.Fasta {
	var b strings.Builder
	for i := 0; i+1 < len(seqs); i += 2 {
		b.WriteString(">" + seqs[i] + "\n" + seqs[i+1] + "\n")
	}
	fa, err := fasta.New(strings.NewReader(b.String()))
	assert.NoError(t, err)
	return fa
}

type fakeLookup []*Transcript

func (f fakeLookup) Transcripts(ref string, start, end int) []*Transcript {
	var out []*Transcript
	for _, t := range f {
		if sp := t.Span(); t.Chrom == ref && sp.Start < end && sp.End > start {
			out = append(out, t)
		}
	}
	return out
}

func (f fakeLookup) TranscriptsAt(ref string, pos int) []*Transcript {
	return f.Transcripts(ref, pos, pos+1)
}

type fakeKnown struct {
	fusions   map[[2]string]bool
	junctions map[Span]bool
	exons     map[Span]bool
}

func (k fakeKnown) KnownFusion(g1, g2 string) bool {
	return k.fusions[[2]string{g1, g2}] || k.fusions[[2]string{g2, g1}]
}

func (k fakeKnown) KnownJunction(ref string, start, end int) bool {
	return k.junctions[Span{start, end}]
}

func (k fakeKnown) KnownExon(ref string, start, end int) bool {
	return k.exons[Span{start, end}]
}

// Gene A: chr1, forward, three exons, coding [150, 550).
// Gene C: chr1, forward, downstream neighbor of A.
// Gene B: chr2, forward, two exons.
func testTranscripts() fakeLookup {
	return fakeLookup{
		{ID: "TA", Gene: "A", Chrom: "chr1", Strand: Forward,
			Exons: []Span{{100, 200}, {300, 400}, {500, 600}}, CDS: Span{150, 550}, Coding: true,
			GeneIndex: 0, GeneSpan: Span{100, 600}},
		{ID: "TC", Gene: "C", Chrom: "chr1", Strand: Forward,
			Exons: []Span{{700, 800}, {900, 1000}}, CDS: Span{700, 1000}, Coding: true,
			GeneIndex: 1, GeneSpan: Span{700, 1000}},
		{ID: "TB", Gene: "B", Chrom: "chr2", Strand: Forward,
			Exons: []Span{{1000, 1100}, {1200, 1300}}, CDS: Span{1000, 1300}, Coding: true,
			GeneIndex: 0, GeneSpan: Span{1000, 1300}},
	}
}
