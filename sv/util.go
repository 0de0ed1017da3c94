package sv

import (
	"strings"

	"github.com/antzucaro/matchr"
	gunsafe "github.com/grailbio/base/unsafe"
)

// complement maps a base to its complement. Letters other than ACGTN map to N.
var complement [256]byte

func init() {
	for i := range complement {
		complement[i] = 'N'
	}
	for _, p := range []string{"AT", "CG", "GC", "TA", "at", "cg", "gc", "ta"} {
		complement[p[0]] = p[1]
	}
	complement['n'] = 'n'
}

// reverseComplement computes a reverse complement of the given DNA string.
func reverseComplement(seq string) string {
	buf := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		buf[len(seq)-1-i] = complement[seq[i]]
	}
	return gunsafe.BytesToString(buf)
}

// repeatUnit returns the shortest unit u such that seq is u repeated
// len(seq)/len(u) times, provided len(u) <= maxUnit. It returns "" otherwise.
func repeatUnit(seq string, maxUnit int) string {
	for n := 1; n <= maxUnit && n <= len(seq); n++ {
		if len(seq)%n != 0 {
			continue
		}
		if strings.Repeat(seq[:n], len(seq)/n) == seq {
			return seq[:n]
		}
	}
	return ""
}

// copiesBefore counts the consecutive copies of unit ending at seq[end].
func copiesBefore(seq string, end int, unit string) int {
	n := 0
	for end-len(unit) >= 0 && seq[end-len(unit):end] == unit {
		n++
		end -= len(unit)
	}
	return n
}

// copiesAfter counts the consecutive copies of unit starting at seq[start].
func copiesAfter(seq string, start int, unit string) int {
	n := 0
	for start+len(unit) <= len(seq) && seq[start:start+len(unit)] == unit {
		n++
		start += len(unit)
	}
	return n
}

// identity returns 1 - edit distance / length between two sequences of the
// same length.
func identity(a, b string) float64 {
	if len(a) == 0 {
		return 0
	}
	return 1 - float64(matchr.Levenshtein(strings.ToUpper(a), strings.ToUpper(b)))/float64(len(a))
}
