package gtf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

type fusionPair struct{ gene1, gene2 string }

// Known lists the events in a supplementary annotation: its introns and exons
// through an Index, plus known fusion gene pairs. It implements
// sv.KnownEvents. A nil *Known knows nothing.
type Known struct {
	index *Index
	pairs map[fusionPair]struct{}
}

// NewKnown creates a Known from a supplementary index, which may be nil.
func NewKnown(index *Index) *Known {
	return &Known{index: index, pairs: map[fusionPair]struct{}{}}
}

// AddFusion registers a gene pair as a known fusion. Order does not matter.
func (k *Known) AddFusion(gene1, gene2 string) {
	if gene2 < gene1 {
		gene1, gene2 = gene2, gene1
	}
	k.pairs[fusionPair{gene1, gene2}] = struct{}{}
}

// ReadKnownFusions reads from a Cosmic TSV file the names of gene pairs that
// form fusions. The first column, "Genes", must be of form "gene1/gene2", for
// example "ACSL3/ETV1".
func (k *Known) ReadKnownFusions(ctx context.Context, path string) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", path)
		}
	}()
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true

	row := struct{ Genes string }{} // Rest of the fields are ignored
	nLine := 0
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return errors.E(err, path)
		}
		genes := strings.Split(row.Genes, "/")
		if len(genes) != 2 || genes[0] == "" || genes[1] == "" {
			return errors.E(errors.Invalid, fmt.Sprintf("read tsv %s:%d: expect 'gene1/gene2', but found %+v", path, nLine, row))
		}
		k.AddFusion(genes[0], genes[1])
		nLine++
	}
	return nil
}

// KnownFusion implements sv.KnownEvents.
func (k *Known) KnownFusion(gene1, gene2 string) bool {
	if k == nil {
		return false
	}
	if gene2 < gene1 {
		gene1, gene2 = gene2, gene1
	}
	_, ok := k.pairs[fusionPair{gene1, gene2}]
	return ok
}

// KnownJunction implements sv.KnownEvents.
func (k *Known) KnownJunction(ref string, start, end int) bool {
	return k != nil && k.index != nil && k.index.KnownJunction(ref, start, end)
}

// KnownExon implements sv.KnownEvents.
func (k *Known) KnownExon(ref string, start, end int) bool {
	return k != nil && k.index != nil && k.index.KnownExon(ref, start, end)
}
