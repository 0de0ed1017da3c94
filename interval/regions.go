package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
)

// posMax is the end of an inverted interval set. It leaves room for
// positions of any BAM-addressable reference.
const posMax = math.MaxInt32

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved. Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// Opts defines behavior of this package's loading functions.
type Opts struct {
	// Invert causes the complement of the interval-union to be returned. The
	// complement of a reference extends from position -1 to posMax. A
	// reference absent from the input is entirely included.
	Invert bool
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	RefName string
	Start0  int
	End     int
}

// Regions is a union of intervals, stored per reference as a length-2N
// sequence: the start of interval #k is in element [2k] and its end in
// element [2k+1], in increasing order. A position is contained iff the
// number of endpoints <= pos is odd. Regions is immutable and safe for
// concurrent use.
type Regions struct {
	nameMap map[string][]int
	invert  bool
}

// Contains checks whether the (0-based) position pos of reference ref is in
// the union.
func (u *Regions) Contains(ref string, pos int) bool {
	intervals, ok := u.nameMap[ref]
	if !ok {
		return u.invert
	}
	return sort.SearchInts(intervals, pos+1)&1 == 1
}

// Len returns the number of references mentioned by the input.
func (u *Regions) Len() int { return len(u.nameMap) }

// NewRegionsFromEntries builds Regions from entries in any order, merging
// touching and overlapping intervals and eliminating empty ones. An empty
// entry still mentions its reference.
func NewRegionsFromEntries(entries []Entry, opts Opts) (*Regions, error) {
	byRef := map[string][]Entry{}
	for _, e := range entries {
		if e.RefName == "" {
			return nil, fmt.Errorf("interval.NewRegionsFromEntries: empty reference name")
		}
		if e.Start0 < 0 {
			return nil, fmt.Errorf("interval.NewRegionsFromEntries: negative start coordinate in %+v", e)
		}
		if e.End < e.Start0 || e.End >= posMax {
			return nil, fmt.Errorf("interval.NewRegionsFromEntries: invalid coordinate pair [%d, %d)", e.Start0, e.End)
		}
		byRef[e.RefName] = append(byRef[e.RefName], e)
	}
	u := &Regions{nameMap: make(map[string][]int, len(byRef)), invert: opts.Invert}
	totBases := 0
	for ref, refEntries := range byRef {
		sort.Slice(refEntries, func(i, j int) bool { return refEntries[i].Start0 < refEntries[j].Start0 })
		intervals := []int{}
		if opts.Invert {
			intervals = append(intervals, -1)
		}
		prevStart, prevEnd := -1, -1
		for _, e := range refEntries {
			if e.End == e.Start0 {
				continue
			}
			if prevEnd == -1 || e.Start0 > prevEnd {
				if prevEnd != -1 {
					intervals = append(intervals, prevStart, prevEnd)
				}
				prevStart, prevEnd = e.Start0, e.End
				totBases += e.End - e.Start0
				continue
			}
			if e.End > prevEnd {
				totBases += e.End - prevEnd
				prevEnd = e.End
			}
		}
		if prevEnd != -1 {
			intervals = append(intervals, prevStart, prevEnd)
		}
		if opts.Invert {
			intervals = append(intervals, posMax)
		}
		u.nameMap[ref] = intervals
	}
	log.Debug.Printf("regions loaded, %d reference(s), %d base(s) covered", len(u.nameMap), totBases)
	return u, nil
}

// NewRegions loads the intervals of a BED file. Only the first three columns
// are read. Blank lines, and track, browser and comment lines, are skipped.
func NewRegions(reader io.Reader, opts Opts) (*Regions, error) {
	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}
	var (
		tokens  [3][]byte
		entries []Entry
		lineIdx int
	)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 {
			continue
		}
		first := gunsafe.BytesToString(tokens[0])
		if strings.HasPrefix(first, "#") || first == "track" || first == "browser" {
			continue
		}
		if nToken != 3 {
			return nil, fmt.Errorf("interval.NewRegions: line %d has fewer tokens than expected", lineIdx)
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("interval.NewRegions: line %d: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, fmt.Errorf("interval.NewRegions: line %d: %v", lineIdx, err)
		}
		start -= startSubtract
		if start < 0 || end < start {
			return nil, fmt.Errorf("interval.NewRegions: invalid coordinate pair on line %d", lineIdx)
		}
		// The name must outlive the scanner buffer.
		entries = append(entries, Entry{RefName: string(tokens[0]), Start0: start, End: end})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewRegionsFromEntries(entries, opts)
}

// NewRegionsFromPath is a wrapper for NewRegions that takes a path instead of
// an io.Reader. Compressed files are decompressed.
func NewRegionsFromPath(ctx context.Context, path string, opts Opts) (_ *Regions, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	return NewRegions(r, opts)
}

// ParseRegionString parses a region string of one of the forms
//
//	[contig ID]:[1-based first pos]-[last pos]
//	[contig ID]:[1-based pos]
//	[contig ID]
//
// returning a contig ID and 0-based interval boundaries. The interval
// [0, posMax - 1) is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result.RefName = region
		result.End = posMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.RefName = region[0:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int
		if pos1, err = strconv.Atoi(rangeStr); err != nil {
			return
		}
		if pos1 <= 0 || pos1 >= posMax {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = pos1 - 1
		result.End = pos1
		return
	}
	var start1, end0 int
	if start1, err = strconv.Atoi(rangeStr[:dashPos]); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr[:dashPos])
		return
	}
	if end0, err = strconv.Atoi(rangeStr[dashPos+1:]); err != nil {
		return
	}
	if end0 < start1 || end0 >= posMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = start1 - 1
	result.End = end0
	return
}
