package gtf

import (
	"sort"
	"sync"

	"github.com/biogo/store/interval"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/contigsv/sv"
)

type txInterval struct {
	t  *sv.Transcript
	id uintptr
}

func (f txInterval) ID() uintptr { return f.id }
func (f txInterval) Range() interval.IntRange {
	s := f.t.Span()
	return interval.IntRange{Start: s.Start, End: s.End}
}
func (f txInterval) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	s := f.t.Span()
	return s.End > b.Start && s.Start < b.End
}

type exonInterval struct {
	sv.Span
	id uintptr
}

func (f exonInterval) ID() uintptr { return f.id }
func (f exonInterval) Range() interval.IntRange {
	return interval.IntRange{Start: f.Start, End: f.End}
}
func (f exonInterval) Overlap(b interval.IntRange) bool {
	return f.End > b.Start && f.Start < b.End
}

type query sv.Span

func (q query) Overlap(b interval.IntRange) bool {
	return q.End > b.Start && q.Start < b.End
}

type chromIndex struct {
	transcripts *interval.IntTree
	exons       *interval.IntTree
	introns     map[sv.Span]bool
}

// Index answers coordinate queries against a set of transcripts. It
// implements sv.FeatureLookup. It is immutable once built and safe for
// concurrent use.
type Index struct {
	chroms map[string]*chromIndex
}

// NewIndex builds interval trees over the transcripts, one per chromosome.
// Chromosomes are indexed in parallel.
func NewIndex(transcripts []*sv.Transcript) *Index {
	byChrom := map[string][]*sv.Transcript{}
	var names []string
	for _, t := range transcripts {
		if len(t.Exons) == 0 {
			continue
		}
		if _, ok := byChrom[t.Chrom]; !ok {
			names = append(names, t.Chrom)
		}
		byChrom[t.Chrom] = append(byChrom[t.Chrom], t)
	}
	sort.Strings(names)

	idx := &Index{chroms: make(map[string]*chromIndex, len(names))}
	var mu sync.Mutex
	_ = traverse.Each(len(names), func(i int) error {
		c := buildChrom(byChrom[names[i]])
		mu.Lock()
		idx.chroms[names[i]] = c
		mu.Unlock()
		return nil
	})
	return idx
}

func buildChrom(transcripts []*sv.Transcript) *chromIndex {
	c := &chromIndex{
		transcripts: &interval.IntTree{},
		exons:       &interval.IntTree{},
		introns:     map[sv.Span]bool{},
	}
	seenExon := map[sv.Span]bool{}
	exonID := uintptr(1)
	for i, t := range transcripts {
		// Fast insertion is fine since AdjustRanges runs below.
		if err := c.transcripts.Insert(txInterval{t, uintptr(i + 1)}, true); err != nil {
			panic(err)
		}
		for j, e := range t.Exons {
			if !seenExon[e] {
				seenExon[e] = true
				if err := c.exons.Insert(exonInterval{e, exonID}, true); err != nil {
					panic(err)
				}
				exonID++
			}
			if j > 0 {
				c.introns[sv.Span{Start: t.Exons[j-1].End, End: e.Start}] = true
			}
		}
	}
	c.transcripts.AdjustRanges()
	c.exons.AdjustRanges()
	return c
}

// TranscriptsAt implements sv.FeatureLookup.
func (x *Index) TranscriptsAt(ref string, pos int) []*sv.Transcript {
	return x.Transcripts(ref, pos, pos+1)
}

// Transcripts implements sv.FeatureLookup. The result is sorted by
// transcript ID.
func (x *Index) Transcripts(ref string, start, end int) []*sv.Transcript {
	c, ok := x.chroms[ref]
	if !ok || end <= start {
		return nil
	}
	hits := c.transcripts.Get(query{Start: start, End: end})
	if len(hits) == 0 {
		return nil
	}
	out := make([]*sv.Transcript, len(hits))
	for i, h := range hits {
		out[i] = h.(txInterval).t
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// KnownJunction checks if [start, end) is exactly an intron of some
// transcript.
func (x *Index) KnownJunction(ref string, start, end int) bool {
	c, ok := x.chroms[ref]
	return ok && c.introns[sv.Span{Start: start, End: end}]
}

// KnownExon checks if [start, end) lies entirely within one annotated exon.
func (x *Index) KnownExon(ref string, start, end int) bool {
	c, ok := x.chroms[ref]
	if !ok || end <= start {
		return false
	}
	for _, h := range c.exons.Get(query{Start: start, End: end}) {
		if e := h.(exonInterval); e.Start <= start && e.End >= end {
			return true
		}
	}
	return false
}
