package sv

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestNewContigAlignmentOrder(t *testing.T) {
	opts := DefaultOpts
	var stats Stats
	records := []Record{
		rec("k1", "chr2", Forward, bs(60, 100, 500, 540)),
		rec("k1", "chr1", Forward, bs(0, 30, 100, 130), bs(32, 62, 135, 165)),
	}
	records[0].Supplementary = true
	ca, err := NewContigAlignment(records, opts, &stats)
	assert.NoError(t, err)
	assert.EQ(t, len(ca.Blocks), 3)
	for i := 1; i < len(ca.Blocks); i++ {
		expect.True(t, ca.Blocks[i-1].ContigSpan.Start < ca.Blocks[i].ContigSpan.Start)
	}
	expect.EQ(t, ca.Blocks[0].Ref, "chr1")
	expect.EQ(t, ca.Blocks[2].Ref, "chr2")
	expect.EQ(t, ca.Blocks[2].record, 0)
	assert.NoError(t, ca.Validate(opts.MaxBlockOverlap))
	expect.EQ(t, stats.Records, 2)
	expect.EQ(t, stats.Blocks, 3)
}

func TestNewContigAlignmentSelection(t *testing.T) {
	opts := DefaultOpts
	var stats Stats
	records := []Record{
		rec("k1", "chr1", Forward, bs(0, 100, 100, 200)),
		// Covers nothing new.
		rec("k1", "chr3", Forward, bs(10, 90, 100, 180)),
		// Adds only five bases.
		rec("k1", "chr4", Forward, bs(95, 105, 100, 110)),
		// Adds 40 bases with an overlap of 10.
		rec("k1", "chr2", Forward, bs(90, 140, 1000, 1050)),
		// A block shorter than MinBlockLen is dropped.
		rec("k1", "chr5", Forward, bs(140, 145, 100, 105)),
	}
	for i := 1; i < len(records); i++ {
		records[i].Supplementary = true
	}
	ca, err := NewContigAlignment(records, opts, &stats)
	assert.NoError(t, err)
	assert.EQ(t, len(ca.Blocks), 2)
	expect.EQ(t, ca.Blocks[0].Ref, "chr1")
	expect.EQ(t, ca.Blocks[1].Ref, "chr2")
	expect.EQ(t, stats.DroppedRecords, 3)
}

func TestNewContigAlignmentFilters(t *testing.T) {
	opts := DefaultOpts
	opts.MinMapQ = 20
	var stats Stats
	lowQ := rec("k1", "chr1", Forward, bs(0, 100, 100, 200))
	lowQ.MapQ = 10
	noisy := rec("k1", "chr1", Forward, bs(0, 100, 100, 200))
	noisy.NM = 11
	ca, err := NewContigAlignment([]Record{lowQ, noisy}, opts, &stats)
	assert.NoError(t, err)
	expect.True(t, ca.Empty())
	expect.EQ(t, stats.DroppedRecords, 2)

	noisy.NM = 10
	ca, err = NewContigAlignment([]Record{noisy}, opts, &stats)
	assert.NoError(t, err)
	expect.EQ(t, len(ca.Blocks), 1)
}

func TestNewContigAlignmentErrors(t *testing.T) {
	var stats Stats
	_, err := NewContigAlignment([]Record{
		rec("k1", "chr1", Forward, bs(0, 100, 100, 200)),
		rec("k2", "chr1", Forward, bs(0, 100, 100, 200)),
	}, DefaultOpts, &stats)
	expect.True(t, errors.Is(errors.Invalid, err))

	_, err = NewContigAlignment([]Record{rec("k1", "chr1", Forward, bs(10, 5, 100, 105))}, DefaultOpts, &stats)
	expect.True(t, errors.Is(errors.Invalid, err))

	bad := rec("k1", "chr1", Forward, bs(0, 100, 100, 200))
	bad.ContigLen = 50
	_, err = NewContigAlignment([]Record{bad}, DefaultOpts, &stats)
	expect.True(t, errors.Is(errors.Invalid, err))

	ca, err := NewContigAlignment(nil, DefaultOpts, &stats)
	assert.NoError(t, err)
	expect.True(t, ca.Empty())
}

func TestValidate(t *testing.T) {
	ca := ContigAlignment{Contig: "k1", Blocks: []AlignedBlock{
		{ContigSpan: Span{0, 50}},
		{ContigSpan: Span{40, 90}},
	}}
	expect.NoError(t, ca.Validate(10))
	expect.NotNil(t, ca.Validate(9))
	ca.Blocks[1].ContigSpan = Span{0, 90}
	expect.NotNil(t, ca.Validate(100))
}

func TestEditDistanceExcludesIndels(t *testing.T) {
	ref := string(testRef(1000))
	contig := ref[100:150] + ref[165:215]
	r := rec("k1", "chr1", Forward, bs(0, 50, 100, 150), bs(50, 100, 165, 215))
	r.NM = 15
	r.IndelLen = 15
	calls, _ := genomeCalls(t, DefaultOpts, contig, r)
	assert.EQ(t, len(calls), 1)
	expect.EQ(t, calls[0].Kind, Deletion)
	expect.EQ(t, calls[0].Size, 15)

	// Eleven mismatches on top of the deletion are too many.
	r.NM = 26
	var stats Stats
	ca, err := NewContigAlignment([]Record{r}, DefaultOpts, &stats)
	assert.NoError(t, err)
	expect.True(t, ca.Empty())
	expect.EQ(t, stats.DroppedRecords, 1)
}

func TestNewContigAlignmentNestedBlock(t *testing.T) {
	opts := DefaultOpts
	var stats Stats
	supp := rec("k1", "chr2", Forward, bs(5, 25, 1000, 1020), bs(150, 250, 2000, 2100))
	supp.Supplementary = true
	ca, err := NewContigAlignment([]Record{
		rec("k1", "chr1", Forward, bs(0, 100, 100, 200)),
		supp,
	}, opts, &stats)
	assert.NoError(t, err)
	assert.EQ(t, len(ca.Blocks), 2)
	expect.EQ(t, ca.Blocks[0].Ref, "chr1")
	expect.EQ(t, ca.Blocks[1].ContigSpan, Span{150, 250})
	expect.EQ(t, ca.Blocks[1].RefSpan, Span{2000, 2100})
	expect.NoError(t, ca.Validate(opts.MaxBlockOverlap))
	expect.EQ(t, stats.DroppedRecords, 0)

	// A record made only of nested blocks adds nothing.
	stats = Stats{}
	nestedOnly := rec("k1", "chr2", Forward, bs(0, 40, 1000, 1040), bs(40, 100, 1100, 1160))
	nestedOnly.Supplementary = true
	ca, err = NewContigAlignment([]Record{
		rec("k1", "chr1", Forward, bs(0, 100, 100, 200)),
		nestedOnly,
	}, opts, &stats)
	assert.NoError(t, err)
	expect.EQ(t, len(ca.Blocks), 1)
	expect.EQ(t, stats.DroppedRecords, 1)
}

func TestReplaceHaplotypes(t *testing.T) {
	hap := rec("k1", "chr6_cox_hap2", Forward, bs(0, 100, 500, 600))
	canonical := rec("k1", "chr6", Forward, bs(0, 100, 700, 800))
	canonical.Secondary = true

	opts := DefaultOpts
	var stats Stats
	ca, err := NewContigAlignment([]Record{hap, canonical}, opts, &stats)
	assert.NoError(t, err)
	assert.EQ(t, len(ca.Blocks), 1)
	expect.EQ(t, ca.Blocks[0].Ref, "chr6")
	expect.EQ(t, ca.Blocks[0].RefSpan, Span{700, 800})
	expect.EQ(t, stats.DroppedRecords, 1)

	opts.ReplaceHaplotypes = false
	stats = Stats{}
	ca, err = NewContigAlignment([]Record{hap, canonical}, opts, &stats)
	assert.NoError(t, err)
	assert.EQ(t, len(ca.Blocks), 1)
	expect.EQ(t, ca.Blocks[0].Ref, "chr6_cox_hap2")
	expect.EQ(t, stats.DroppedRecords, 1)

	// Secondary records on non-canonical references are never promoted.
	altSecondary := rec("k1", "chrUn_gl000220", Forward, bs(0, 100, 10, 110))
	altSecondary.Secondary = true
	ranks := []int{rankSecondary, rankSecondary}
	replaceHaplotypes([]Record{canonical, altSecondary}, ranks)
	expect.EQ(t, ranks, []int{rankSecondary, rankSecondary})
	ranks = []int{rankPrimary, rankSecondary, rankSecondary}
	replaceHaplotypes([]Record{hap, canonical, altSecondary}, ranks)
	expect.EQ(t, ranks, []int{rankHaplotype, rankSupplementary, rankSecondary})
}
