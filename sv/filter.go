package sv

import (
	"sort"

	"github.com/grailbio/base/log"
)

// filterRule drops calls matching drop. Rules run in table order, and a call
// is counted against the first rule that drops it.
type filterRule struct {
	name    string
	drop    func(c *VariantCall, opts *Opts) bool
	counter func(s *Stats) *int
}

var filterRules = []filterRule{
	{"utr",
		func(c *VariantCall, o *Opts) bool { return o.NoUTR && c.Annot.InUTR },
		func(s *Stats) *int { return &s.FilteredUTR }},
	{"nonsense fusion",
		func(c *VariantCall, o *Opts) bool {
			return c.Kind.IsFusion() && !c.Annot.Sense && !o.IncludeNonsenseFusion
		},
		func(s *Stats) *int { return &s.FilteredNonsense }},
	{"non-exon-bound fusion",
		func(c *VariantCall, o *Opts) bool {
			return c.Kind.IsFusion() && !c.Annot.ExonBound && !o.IncludeNonExonBoundFusion
		},
		func(s *Stats) *int { return &s.FilteredNonExonBound }},
	{"noncoding fusion",
		func(c *VariantCall, o *Opts) bool {
			return c.Kind.IsFusion() && c.Annot.Noncoding && !o.IncludeNoncodingFusion
		},
		func(s *Stats) *int { return &s.FilteredNoncoding }},
	{"read-through",
		func(c *VariantCall, o *Opts) bool { return c.Kind == ReadThrough && !o.IncludeReadThrough },
		func(s *Stats) *int { return &s.FilteredReadThrough }},
	{"homology/novel length",
		func(c *VariantCall, o *Opts) bool {
			return len(c.Homology) > o.MaxHomolLen || len(c.Novel) > o.MaxNovelLen
		},
		func(s *Stats) *int { return &s.FilteredHomolNovel }},
	{"untiled novel sequence",
		func(c *VariantCall, o *Opts) bool {
			return o.MinTilingNovelLen > 0 && len(c.Novel) >= o.MinTilingNovelLen && !c.Tiled
		},
		func(s *Stats) *int { return &s.FilteredUntiled }},
}

// Filter drops the calls excluded by opts. It does not modify its input and
// is idempotent: filtering its result again drops nothing.
func Filter(calls []VariantCall, opts Opts, stats *Stats) []VariantCall {
	out := make([]VariantCall, 0, len(calls))
	for i := range calls {
		c := &calls[i]
		dropped := false
		for _, r := range filterRules {
			if r.drop(c, &opts) {
				(*r.counter(stats))++
				if log.At(log.Debug) {
					log.Debug.Printf("%s: dropped by %s filter", c, r.name)
				}
				dropped = true
				break
			}
		}
		if !dropped {
			out = append(out, *c)
		}
	}
	if n := len(calls) - len(out); n > 0 {
		log.Printf("Discarding %d of %d calls by annotation and length filters", n, len(calls))
	}
	return out
}

// FilterBySupport drops calls with fewer than opts.MinSupport reads.
func FilterBySupport(calls []VariantCall, opts Opts, stats *Stats) []VariantCall {
	out := make([]VariantCall, 0, len(calls))
	for _, c := range calls {
		if c.Support < opts.MinSupport {
			stats.LowSupport++
			continue
		}
		out = append(out, c)
	}
	if n := len(calls) - len(out); n > 0 {
		log.Printf("Discarding %d of %d calls with support below %d", n, len(calls), opts.MinSupport)
	}
	return out
}

// RegionSet answers whether a reference position lies in a set of regions.
// *interval.Regions implements it.
type RegionSet interface {
	Contains(ref string, pos int) bool
}

// FilterByRegion keeps the calls with at least one breakpoint in regions.
func FilterByRegion(calls []VariantCall, regions RegionSet, stats *Stats) []VariantCall {
	out := make([]VariantCall, 0, len(calls))
	for _, c := range calls {
		in := false
		for i := 0; i < c.NBreakpoints; i++ {
			if regions.Contains(c.Breakpoints[i].Ref, c.Breakpoints[i].Pos) {
				in = true
				break
			}
		}
		if !in {
			stats.FilteredRegion++
			continue
		}
		out = append(out, c)
	}
	if n := len(calls) - len(out); n > 0 {
		log.Printf("Discarding %d of %d calls outside the target regions", n, len(calls))
	}
	return out
}

// SortByCoord sorts calls by reference, position, kind and second breakpoint.
func SortByCoord(calls []VariantCall) {
	sort.SliceStable(calls, func(i, j int) bool {
		a, b := &calls[i], &calls[j]
		if a.Breakpoints[0].Ref != b.Breakpoints[0].Ref {
			return a.Breakpoints[0].Ref < b.Breakpoints[0].Ref
		}
		if a.Breakpoints[0].Pos != b.Breakpoints[0].Pos {
			return a.Breakpoints[0].Pos < b.Breakpoints[0].Pos
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Breakpoints[1].Ref != b.Breakpoints[1].Ref {
			return a.Breakpoints[1].Ref < b.Breakpoints[1].Ref
		}
		return a.Breakpoints[1].Pos < b.Breakpoints[1].Pos
	})
}

// window returns seq[start:end] clipped to the sequence.
func window(seq string, start, end int) string {
	start = maxInt(start, 0)
	end = minInt(end, len(seq))
	if start >= end {
		return ""
	}
	return seq[start:end]
}

// AddProbes returns a copy of c with probe and subsequence windows cut from
// the sequence of the contig c was called from. Probes are centered on the
// contig break of each breakpoint. Subsequences are the opts.SubseqLen contig
// bases before and after the break region.
func AddProbes(c VariantCall, contigSeq string, opts Opts) VariantCall {
	for i := 0; i < c.NBreakpoints; i++ {
		start := c.Breakpoints[i].ContigPos - opts.ProbeLen/2
		c.Probes[i] = window(contigSeq, start, start+opts.ProbeLen)
	}
	spans := c.breakSpans()
	lo, hi := spans[0].Start, spans[len(spans)-1].End
	c.Subseqs[0] = window(contigSeq, lo-opts.SubseqLen, lo)
	c.Subseqs[1] = window(contigSeq, hi, hi+opts.SubseqLen)
	return c
}
