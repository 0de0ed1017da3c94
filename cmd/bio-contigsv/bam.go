package main

// This file loads the two alignment inputs: contigs aligned to the genome
// (c2g) and reads aligned to the contigs (r2c). Both may be BAM or SAM.

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/contigsv/sv"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

type samReader interface {
	Read() (*sam.Record, error)
}

// scanAlignments calls fn for every record in the BAM or SAM file at path.
// SAM is detected by the ".sam" suffix.
func scanAlignments(ctx context.Context, path string, fn func(r *sam.Record) error) (err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r samReader
	if strings.HasSuffix(path, ".sam") {
		r, err = sam.NewReader(in.Reader(ctx))
	} else {
		var br *bam.Reader
		if br, err = bam.NewReader(in.Reader(ctx), 1); err == nil {
			defer func() {
				if e := br.Close(); e != nil && err == nil {
					err = e
				}
			}()
		}
		r = br
	}
	if err != nil {
		return err
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// readContigAlignments reads c2g records. Unmapped records are skipped, and
// so are records that FromSAM rejects.
func readContigAlignments(ctx context.Context, path string) ([]sv.Record, error) {
	var (
		records         []sv.Record
		nUnmapped, nBad int
	)
	err := scanAlignments(ctx, path, func(r *sam.Record) error {
		if r.Flags&sam.Unmapped != 0 || r.Ref == nil {
			nUnmapped++
			return nil
		}
		rec, err := sv.FromSAM(r)
		if err != nil {
			log.Error.Printf("%s: %v", path, err)
			nBad++
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("%s: %d contig alignments, %d unmapped, %d rejected", path, len(records), nUnmapped, nBad)
	return records, nil
}

// readReadAlignments reads r2c records and groups them by contig.
func readReadAlignments(ctx context.Context, path string) (sv.ReadsByContig, error) {
	reads := sv.ReadsByContig{}
	n := 0
	err := scanAlignments(ctx, path, func(r *sam.Record) error {
		if ra, ok := sv.ReadFromSAM(r); ok {
			reads[ra.Contig] = append(reads[ra.Contig], ra)
			n++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("%s: %d reads on %d contigs", path, n, len(reads))
	return reads, nil
}
