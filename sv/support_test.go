package sv

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestCountSupport(t *testing.T) {
	opts := DefaultOpts
	breaks := []Span{{50, 50}}
	reads := []ReadAlignment{
		{Name: "r1", Span: Span{40, 60}, Strand: Forward, FullyMapped: true},
		// One base short of the flank.
		{Name: "r2", Span: Span{41, 60}, Strand: Forward, FullyMapped: true},
		// Same start and strand as r1.
		{Name: "r3", Span: Span{40, 65}, Strand: Forward, FullyMapped: true},
		// Same name as r1.
		{Name: "r1", Span: Span{30, 70}, Strand: Reverse, FullyMapped: true},
		{Name: "r5", Span: Span{30, 70}, Strand: Forward, FullyMapped: false},
		// Same start as r1 on the other strand.
		{Name: "r6", Span: Span{40, 61}, Strand: Reverse, FullyMapped: true},
	}
	expect.EQ(t, CountSupport(breaks, reads, opts), 2)

	opts.MinIndelFlanking = 5
	expect.EQ(t, CountSupport(breaks, reads, opts), 3)

	// A read must span the whole break region.
	opts.MinIndelFlanking = 10
	expect.EQ(t, CountSupport([]Span{{50, 55}}, reads, opts), 2)
	// Any of several regions will do.
	expect.EQ(t, CountSupport([]Span{{200, 200}, {50, 50}}, reads, opts), 2)
}

func TestSupport(t *testing.T) {
	c := VariantCall{
		Kind:         Deletion,
		NBreakpoints: 2,
		Breakpoints:  [2]Breakpoint{{ContigPos: 50}, {ContigPos: 50}},
		Contigs:      []string{"k1"},
	}
	src := ReadsByContig{
		"k1": {
			{Name: "a", Span: Span{0, 100}, Strand: Forward, FullyMapped: true},
			{Name: "b", Span: Span{10, 100}, Strand: Forward, FullyMapped: true},
		},
		"k2": {
			{Name: "c", Span: Span{0, 100}, Strand: Forward, FullyMapped: true},
		},
	}
	expect.EQ(t, Support(&c, src, DefaultOpts), 2)
	expect.EQ(t, Support(&c, nil, DefaultOpts), 0)
	c.Contigs = []string{"k3"}
	expect.EQ(t, Support(&c, src, DefaultOpts), 0)
}

func TestFilterBySupport(t *testing.T) {
	calls := []VariantCall{{Support: 4}, {Support: 3}, {Support: 10}}
	var stats Stats
	out := FilterBySupport(calls, DefaultOpts, &stats)
	expect.EQ(t, len(out), 2)
	expect.EQ(t, out[0].Support, 4)
	expect.EQ(t, out[1].Support, 10)
	expect.EQ(t, stats.LowSupport, 1)
	expect.EQ(t, len(calls), 3)
}

func pair(name string, start, end, mate int) ReadAlignment {
	return ReadAlignment{
		Name: name, Span: Span{start, end}, Strand: Forward, FullyMapped: true,
		ProperPair: true, MateStart: mate, TLen: mate + (end - start) - start,
	}
}

func TestCountFlanking(t *testing.T) {
	opts := DefaultOpts
	breaks := []Span{{50, 50}}
	unpaired := pair("r5", 0, 30, 80)
	unpaired.ProperPair = false
	rightmost := pair("r6", 0, 30, 80)
	rightmost.TLen = -110
	reads := []ReadAlignment{
		pair("r1", 0, 30, 80),
		// Same inner fragment as r1.
		pair("r2", 0, 30, 80),
		pair("r3", 5, 35, 70),
		// The inner fragment ends one base short of the flank.
		pair("r4", 0, 30, 59),
		unpaired,
		rightmost,
		// Overlapping mates leave no inner fragment.
		pair("r7", 0, 60, 40),
	}
	expect.EQ(t, CountFlanking(breaks, reads, opts), 2)

	opts.MinIndelFlanking = 9
	expect.EQ(t, CountFlanking(breaks, reads, opts), 3)
	expect.EQ(t, CountFlanking([]Span{{200, 200}}, reads, opts), 0)
	expect.EQ(t, CountFlanking(nil, reads, opts), 0)
}

func TestCheckTiling(t *testing.T) {
	breaks := []Span{{40, 60}}
	reads := []ReadAlignment{
		{Name: "r1", Span: Span{0, 45}, FullyMapped: true},
		{Name: "r2", Span: Span{45, 55}, FullyMapped: true},
		{Name: "r3", Span: Span{50, 100}, FullyMapped: true},
	}
	expect.True(t, CheckTiling(breaks, reads))
	expect.False(t, CheckTiling(nil, reads))

	// A gap between reads.
	gapped := []ReadAlignment{reads[0], reads[2]}
	expect.False(t, CheckTiling(breaks, gapped))

	// Reads clipped inside the contig do not count.
	clipped := append([]ReadAlignment(nil), reads...)
	clipped[1].FullyMapped = false
	expect.False(t, CheckTiling(breaks, clipped))

	// The base on either side of the region must be covered too.
	expect.False(t, CheckTiling([]Span{{0, 10}}, reads))
	expect.True(t, CheckTiling([]Span{{1, 10}}, reads))

	// Every region must be tiled.
	expect.False(t, CheckTiling([]Span{{40, 60}, {150, 160}}, reads))
}

func TestUnionSpans(t *testing.T) {
	expect.EQ(t, unionSpans([]Span{{20, 30}, {0, 10}, {10, 15}, {25, 40}, {50, 60}}),
		[]Span{{0, 15}, {20, 40}, {50, 60}})
	expect.Nil(t, unionSpans(nil))
}
