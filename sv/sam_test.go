package sv

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

var (
	chr1, _ = sam.NewReference("chr1", "", "", 1000, nil, nil)
	k1, _   = sam.NewReference("k1", "", "", 200, nil, nil)
)

func TestFromSAM(t *testing.T) {
	nm, err := sam.NewAux(sam.NewTag("NM"), 3)
	assert.NoError(t, err)
	r := &sam.Record{
		Name: "k1",
		Ref:  chr1,
		Pos:  100,
		MapQ: 60,
		Cigar: sam.Cigar{
			sam.NewCigarOp(sam.CigarSoftClipped, 5),
			sam.NewCigarOp(sam.CigarMatch, 20),
			sam.NewCigarOp(sam.CigarInsertion, 2),
			sam.NewCigarOp(sam.CigarMatch, 10),
			sam.NewCigarOp(sam.CigarDeletion, 3),
			sam.NewCigarOp(sam.CigarEqual, 10),
			sam.NewCigarOp(sam.CigarMismatch, 5),
			sam.NewCigarOp(sam.CigarHardClipped, 4),
		},
		AuxFields: sam.AuxFields{nm},
	}
	rec, err := FromSAM(r)
	assert.NoError(t, err)
	expect.EQ(t, rec, Record{
		Contig:    "k1",
		ContigLen: 56,
		Ref:       "chr1",
		Strand:    Forward,
		MapQ:      60,
		NM:        3,
		IndelLen:  5,
		Blocks: []BlockSpan{
			{Contig: Span{5, 25}, Ref: Span{100, 120}},
			{Contig: Span{27, 37}, Ref: Span{120, 130}},
			{Contig: Span{37, 52}, Ref: Span{133, 148}},
		},
	})

	r.Flags = sam.Reverse | sam.Supplementary
	r.AuxFields = nil
	rec, err = FromSAM(r)
	assert.NoError(t, err)
	expect.EQ(t, rec.Strand, Reverse)
	expect.True(t, rec.Supplementary)
	expect.False(t, rec.Secondary)
	expect.EQ(t, rec.NM, -1)
	expect.EQ(t, rec.Blocks, []BlockSpan{
		{Contig: Span{31, 51}, Ref: Span{100, 120}},
		{Contig: Span{19, 29}, Ref: Span{120, 130}},
		{Contig: Span{4, 19}, Ref: Span{133, 148}},
	})

	r.Flags = sam.Unmapped
	_, err = FromSAM(r)
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestReadFromSAM(t *testing.T) {
	cigar := func(ops ...sam.CigarOp) sam.Cigar { return ops }
	for _, test := range []struct {
		r    sam.Record
		ok   bool
		want ReadAlignment
	}{
		{
			sam.Record{Name: "r1", Ref: k1, Pos: 0, Cigar: cigar(sam.NewCigarOp(sam.CigarSoftClipped, 5), sam.NewCigarOp(sam.CigarMatch, 50))},
			true,
			ReadAlignment{Name: "r1", Contig: "k1", Span: Span{0, 50}, Strand: Forward, FullyMapped: true},
		},
		{
			sam.Record{Name: "r2", Ref: k1, Pos: 10, Flags: sam.Reverse, Cigar: cigar(sam.NewCigarOp(sam.CigarSoftClipped, 5), sam.NewCigarOp(sam.CigarMatch, 50))},
			true,
			ReadAlignment{Name: "r2", Contig: "k1", Span: Span{10, 60}, Strand: Reverse, FullyMapped: false},
		},
		{
			sam.Record{Name: "r3", Ref: k1, Pos: 150, Cigar: cigar(sam.NewCigarOp(sam.CigarMatch, 50), sam.NewCigarOp(sam.CigarSoftClipped, 5))},
			true,
			ReadAlignment{Name: "r3", Contig: "k1", Span: Span{150, 200}, Strand: Forward, FullyMapped: true},
		},
		{
			sam.Record{Name: "r4", Ref: k1, Pos: 100, Cigar: cigar(sam.NewCigarOp(sam.CigarMatch, 50), sam.NewCigarOp(sam.CigarSoftClipped, 5))},
			true,
			ReadAlignment{Name: "r4", Contig: "k1", Span: Span{100, 150}, Strand: Forward, FullyMapped: false},
		},
		{
			sam.Record{Name: "r7", Ref: k1, Pos: 10, MateRef: k1, MatePos: 120, TempLen: 160, Flags: sam.Paired | sam.ProperPair,
				Cigar: cigar(sam.NewCigarOp(sam.CigarMatch, 50))},
			true,
			ReadAlignment{Name: "r7", Contig: "k1", Span: Span{10, 60}, Strand: Forward, FullyMapped: true,
				ProperPair: true, MateStart: 120, TLen: 160},
		},
		{
			// Mate on another contig.
			sam.Record{Name: "r8", Ref: k1, Pos: 10, MateRef: chr1, MatePos: 120, TempLen: 0, Flags: sam.Paired | sam.ProperPair,
				Cigar: cigar(sam.NewCigarOp(sam.CigarMatch, 50))},
			true,
			ReadAlignment{Name: "r8", Contig: "k1", Span: Span{10, 60}, Strand: Forward, FullyMapped: true},
		},
		{
			sam.Record{Name: "r5", Ref: k1, Pos: 0, Flags: sam.Secondary, Cigar: cigar(sam.NewCigarOp(sam.CigarMatch, 50))},
			false,
			ReadAlignment{},
		},
		{
			sam.Record{Name: "r6", Pos: -1, Flags: sam.Unmapped},
			false,
			ReadAlignment{},
		},
	} {
		got, ok := ReadFromSAM(&test.r)
		expect.EQ(t, ok, test.ok, test.r.Name)
		expect.EQ(t, got, test.want, test.r.Name)
	}
}
