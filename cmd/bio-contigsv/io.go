package main

// This file defines the candidate dump. writeCandidates stores the merged,
// annotated calls of a run in a recordio file, and readCandidates reads them
// back. The dump lets the refilter command rerun only the filtering phase.

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/contigsv/sv"
)

const (
	// <fileVersionHeader, fileVersion> is stored in a recordio header.
	fileVersionHeader = "contigsvversion"
	fileVersion       = "CONTIGSV_V1"
	// runIDHeader identifies the run that produced the file.
	runIDHeader = "runid"
)

// candidateFileTrailer is stored in the trailer section of the recordio file.
type candidateFileTrailer struct {
	// Opts is the list of options used to generate the candidates.
	Opts sv.Opts
	// N is the number of candidates in the file.
	N int
}

// writeCandidates writes one gob-encoded call per record.
func writeCandidates(ctx context.Context, path string, calls []sv.VariantCall, opts sv.Opts) (err error) {
	recordiozstd.Init()
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "rio create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	runID := uuid.New().String()
	w.AddHeader(fileVersionHeader, fileVersion)
	w.AddHeader(runIDHeader, runID)
	w.AddHeader(recordio.KeyTrailer, true)
	for i := range calls {
		b := bytes.Buffer{}
		if err := gob.NewEncoder(&b).Encode(&calls[i]); err != nil {
			return errors.E(err, "encode", calls[i].ID)
		}
		w.Append(b.Bytes())
	}
	b := bytes.Buffer{}
	if err := gob.NewEncoder(&b).Encode(candidateFileTrailer{Opts: opts, N: len(calls)}); err != nil {
		return errors.E(err, "encode trailer")
	}
	w.SetTrailer(b.Bytes())
	if err := w.Finish(); err != nil {
		return errors.E(err, "rio close", path)
	}
	log.Printf("Wrote %d candidates to %s (run %s)", len(calls), path, runID)
	return nil
}

// readCandidates reads a file produced by writeCandidates. It returns the
// options of the run that produced it along with the calls.
func readCandidates(ctx context.Context, path string) (opts sv.Opts, calls []sv.VariantCall, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return opts, nil, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	recordiozstd.Init()
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	var version, runID string
	for _, kv := range r.Header() {
		switch kv.Key {
		case fileVersionHeader:
			version, _ = kv.Value.(string)
		case runIDHeader:
			runID, _ = kv.Value.(string)
		}
	}
	if version != fileVersion {
		return opts, nil, errors.E(errors.Invalid, fmt.Sprintf("%s: file version %q, expect %q", path, version, fileVersion))
	}
	for r.Scan() {
		var c sv.VariantCall
		if err := gob.NewDecoder(bytes.NewReader(r.Get().([]byte))).Decode(&c); err != nil {
			return opts, nil, errors.E(err, "decode", path)
		}
		calls = append(calls, c)
	}
	if err := r.Err(); err != nil {
		return opts, nil, errors.E(err, "read", path)
	}
	var trailer candidateFileTrailer
	if err := gob.NewDecoder(bytes.NewReader(r.Trailer())).Decode(&trailer); err != nil {
		return opts, nil, errors.E(err, "decode trailer", path)
	}
	if trailer.N != len(calls) {
		return opts, nil, errors.E(errors.Invalid, fmt.Sprintf("%s: found %d candidates, trailer says %d", path, len(calls), trailer.N))
	}
	log.Printf("Read %d candidates from %s (run %s)", len(calls), path, runID)
	return trailer.Opts, calls, nil
}
