package sv

import (
	"encoding/binary"
	"fmt"
	"sort"

	farm "github.com/dgryski/go-farm"
	"github.com/minio/highwayhash"
)

type hashKey = [highwayhash.Size]uint8

var zeroSeed = hashKey{}

type mergeEntry struct {
	// call is the representative: the one from the smallest (contig,
	// junction).
	call VariantCall
	// support is the read support per contig. Repeated reports from one contig
	// keep the maximum, since they share reads.
	support   map[string]int
	flanking  map[string]int
	junctions map[JunctionRef]bool
	tiled     bool
	ambiguous bool
	known     bool
}

// Merger deduplicates equivalent calls found on different contigs. Calls are
// equivalent when they have the same kind and the same breakpoints after
// rounding positions down to a multiple of the merge tolerance. Rounding uses
// fixed buckets, so two positions one base apart across a bucket edge stay
// distinct. Splice events are always keyed on exact positions. Accumulation
// is commutative, so the result does not depend on the order of Add calls. A
// Merger is not thread-safe; it is meant to be owned by a single writer.
type Merger struct {
	tolerance int
	entries   map[hashKey]*mergeEntry
	buf       []byte
}

// NewMerger creates an empty Merger. Tolerance values below one are treated
// as one.
func NewMerger(tolerance int) *Merger {
	if tolerance < 1 {
		tolerance = 1
	}
	return &Merger{tolerance: tolerance, entries: map[hashKey]*mergeEntry{}}
}

func (m *Merger) key(c *VariantCall) hashKey {
	tol := m.tolerance
	if c.Kind.IsSplice() {
		tol = 1
	}
	buf := m.buf[:0]
	buf = append(buf, byte(c.Kind))
	for i := 0; i < c.NBreakpoints; i++ {
		bp := &c.Breakpoints[i]
		buf = append(buf, bp.Ref...)
		buf = append(buf, 0, byte(bp.Strand), bp.Orient)
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutVarint(tmp[:], int64(floorDiv(bp.Pos, tol)))
		buf = append(buf, tmp[:n]...)
	}
	m.buf = buf
	return highwayhash.Sum(buf, zeroSeed[:])
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func lessRef(a, b JunctionRef) bool {
	if a.Contig != b.Contig {
		return a.Contig < b.Contig
	}
	return a.Index < b.Index
}

// Add merges c into the accumulator. c must come from a single contig.
func (m *Merger) Add(c VariantCall) {
	k := m.key(&c)
	contig := c.Contigs[0]
	e, ok := m.entries[k]
	if !ok {
		e = &mergeEntry{call: c, support: map[string]int{}, flanking: map[string]int{}, junctions: map[JunctionRef]bool{}}
		e.call.ID = fmt.Sprintf("%016x", farm.Fingerprint64(k[:]))
		m.entries[k] = e
	} else if lessRef(c.Junctions[0], e.call.Junctions[0]) {
		id := e.call.ID
		e.call = c
		e.call.ID = id
	}
	if n, ok := e.support[contig]; !ok || c.Support > n {
		e.support[contig] = c.Support
	}
	if n, ok := e.flanking[contig]; !ok || c.Flanking > n {
		e.flanking[contig] = c.Flanking
	}
	e.tiled = e.tiled || c.Tiled
	for _, j := range c.Junctions {
		e.junctions[j] = true
	}
	e.ambiguous = e.ambiguous || c.Annot.Ambiguous
	e.known = e.known || c.Annot.Known
}

// Len returns the number of distinct calls.
func (m *Merger) Len() int { return len(m.entries) }

// Calls returns the merged calls, ordered by their representative junction.
func (m *Merger) Calls() []VariantCall {
	calls := make([]VariantCall, 0, len(m.entries))
	for _, e := range m.entries {
		c := e.call
		c.Support = 0
		c.Contigs = c.Contigs[:0:0]
		for contig, n := range e.support {
			c.Support += n
			c.Contigs = append(c.Contigs, contig)
		}
		sort.Strings(c.Contigs)
		c.Flanking = 0
		for _, n := range e.flanking {
			c.Flanking += n
		}
		c.Tiled = e.tiled
		c.Junctions = c.Junctions[:0:0]
		for j := range e.junctions {
			c.Junctions = append(c.Junctions, j)
		}
		sort.Slice(c.Junctions, func(i, j int) bool { return lessRef(c.Junctions[i], c.Junctions[j]) })
		c.Annot.Ambiguous = e.ambiguous
		c.Annot.Known = e.known
		calls = append(calls, c)
	}
	sort.Slice(calls, func(i, j int) bool {
		a, b := calls[i].Junctions[0], calls[j].Junctions[0]
		if a != b {
			return lessRef(a, b)
		}
		return calls[i].ID < calls[j].ID
	})
	return calls
}
