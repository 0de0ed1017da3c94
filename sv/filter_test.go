package sv

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func fusionCall() VariantCall {
	return VariantCall{
		Kind:         Fusion,
		NBreakpoints: 2,
		Breakpoints: [2]Breakpoint{
			{Ref: "chr1", Pos: 199, Strand: Forward, Orient: 'L'},
			{Ref: "chr2", Pos: 1200, Strand: Forward, Orient: 'R'},
		},
		Annot: Annotation{Sense: true, ExonBound: true, InFrame: true},
	}
}

func TestFilterRules(t *testing.T) {
	utr := mergeCall("k1", 0, 100, 5)
	utr.Annot.InUTR = true
	noncoding := fusionCall()
	noncoding.Annot.Noncoding = true
	unbound := fusionCall()
	unbound.Annot.ExonBound = false
	nonsense := fusionCall()
	nonsense.Annot.Sense = false
	readThrough := fusionCall()
	readThrough.Kind = ReadThrough
	homology := mergeCall("k1", 0, 100, 5)
	homology.Homology = "ACGTAC"
	novel := mergeCall("k1", 0, 100, 5)
	novel.Novel = strings.Repeat("A", 21)
	novel.Tiled = true
	untiled := mergeCall("k1", 0, 100, 5)
	untiled.Novel = strings.Repeat("A", 12)

	for _, test := range []struct {
		name    string
		call    VariantCall
		set     func(o *Opts)
		counter func(s *Stats) int
	}{
		{"utr", utr, func(o *Opts) { o.NoUTR = false }, func(s *Stats) int { return s.FilteredUTR }},
		{"noncoding", noncoding, func(o *Opts) { o.IncludeNoncodingFusion = true }, func(s *Stats) int { return s.FilteredNoncoding }},
		{"unbound", unbound, func(o *Opts) { o.IncludeNonExonBoundFusion = true }, func(s *Stats) int { return s.FilteredNonExonBound }},
		{"nonsense", nonsense, func(o *Opts) { o.IncludeNonsenseFusion = true }, func(s *Stats) int { return s.FilteredNonsense }},
		{"read-through", readThrough, func(o *Opts) { o.IncludeReadThrough = true }, func(s *Stats) int { return s.FilteredReadThrough }},
		{"homology", homology, func(o *Opts) { o.MaxHomolLen = 6 }, func(s *Stats) int { return s.FilteredHomolNovel }},
		{"novel", novel, func(o *Opts) { o.MaxNovelLen = 21 }, func(s *Stats) int { return s.FilteredHomolNovel }},
		{"untiled", untiled, func(o *Opts) { o.MinTilingNovelLen = 13 }, func(s *Stats) int { return s.FilteredUntiled }},
	} {
		opts := DefaultOpts
		opts.NoUTR = true
		opts.IncludeNonExonBoundFusion = false
		opts.MinTilingNovelLen = 10
		var stats Stats
		expect.EQ(t, len(Filter([]VariantCall{test.call}, opts, &stats)), 0, test.name)
		expect.EQ(t, test.counter(&stats), 1, test.name)

		test.set(&opts)
		stats = Stats{}
		expect.EQ(t, len(Filter([]VariantCall{test.call}, opts, &stats)), 1, test.name)
		expect.EQ(t, test.counter(&stats), 0, test.name)
	}
}

func TestFilterIdempotent(t *testing.T) {
	nonsense := fusionCall()
	nonsense.Annot.Sense = false
	calls := []VariantCall{fusionCall(), nonsense, mergeCall("k1", 0, 100, 5)}
	opts := DefaultOpts
	var stats Stats
	once := Filter(calls, opts, &stats)
	assert.EQ(t, len(once), 2)
	expect.EQ(t, len(calls), 3)
	expect.EQ(t, calls[1].Annot.Sense, false)

	stats = Stats{}
	twice := Filter(once, opts, &stats)
	expect.EQ(t, twice, once)
	expect.EQ(t, stats, Stats{})
}

func TestSortByCoord(t *testing.T) {
	a := mergeCall("k1", 0, 300, 1)
	b := mergeCall("k1", 0, 100, 1)
	c := fusionCall()
	d := mergeCall("k1", 0, 100, 1)
	d.Kind = Inversion
	calls := []VariantCall{a, c, d, b}
	SortByCoord(calls)
	var got []string
	for _, c := range calls {
		got = append(got, c.String())
	}
	expect.EQ(t, got, []string{
		"inversion chr1:100+ chr1:200+ size=100 support=1",
		"deletion chr1:100+ chr1:200+ size=100 support=1",
		"fusion chr1:199+ chr2:1200+ size=0 support=0",
		"deletion chr1:300+ chr1:400+ size=100 support=1",
	})
}

func TestAddProbes(t *testing.T) {
	seq := string(testRef(100))
	opts := DefaultOpts
	opts.ProbeLen = 20
	opts.SubseqLen = 10
	c := AddProbes(mergeCall("k1", 0, 100, 1), seq, opts)
	expect.EQ(t, c.Probes, [2]string{seq[40:60], seq[40:60]})
	expect.EQ(t, c.Subseqs, [2]string{seq[40:50], seq[50:60]})

	// Windows are clipped to the contig.
	c = mergeCall("k1", 0, 100, 1)
	c.Breakpoints[0].ContigPos = 5
	c.Breakpoints[1].ContigPos = 95
	c = AddProbes(c, seq, opts)
	expect.EQ(t, c.Probes, [2]string{seq[0:15], seq[85:100]})
	expect.EQ(t, c.Subseqs, [2]string{seq[0:5], seq[95:100]})
}

type fakeRegions map[string]Span

func (r fakeRegions) Contains(ref string, pos int) bool {
	s, ok := r[ref]
	return ok && s.Contains(pos)
}

func TestFilterByRegion(t *testing.T) {
	calls := []VariantCall{fusionCall(), mergeCall("k1", 0, 100, 1), mergeCall("k1", 0, 900, 1)}
	var stats Stats
	out := FilterByRegion(calls, fakeRegions{"chr2": {1000, 1300}, "chr1": {150, 250}}, &stats)
	assert.EQ(t, len(out), 2)
	// The fusion is kept for its second breakpoint, the first deletion for its
	// second.
	expect.EQ(t, out[0].Kind, Fusion)
	expect.EQ(t, out[1].Breakpoints[0].Pos, 100)
	expect.EQ(t, stats.FilteredRegion, 1)
}
