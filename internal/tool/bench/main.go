// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Benchmark tool to compare the size of cgraph artifacts against
// general-purpose compressors over the same input. The comparison keeps the
// pipeline honest: a grammar-compressed graph should undercut byte-oriented
// codecs on edge-heavy inputs while staying queryable.
//
//	go run main.go -input graph.txt
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dsnet/golib/unitconv"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/dsnet/cgraph"
)

func main() {
	input := flag.String("input", "", "hyperedge text file (label node node ... per line)")
	maxRank := flag.Int("max-rank", cgraph.DefaultMaxRank, "maximum rank of grammar rules")
	flag.Parse()
	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		fatal(err)
	}

	cg, err := compressGraph(raw, *maxRank)
	if err != nil {
		fatal(err)
	}
	gz, err := compressGzip(raw)
	if err != nil {
		fatal(err)
	}
	xzb, err := compressXZ(raw)
	if err != nil {
		fatal(err)
	}

	report("input", len(raw), len(raw))
	report("cgraph", len(cg), len(raw))
	report("gzip", len(gz), len(raw))
	report("xz", len(xzb), len(raw))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "bench:", err)
	os.Exit(1)
}

func report(name string, size, total int) {
	ratio := float64(size) / float64(total)
	fmt.Printf("%-8s %10sB  %6.2f%%\n", name, unitconv.FormatPrefix(float64(size), unitconv.SI, 1), 100*ratio)
}

func compressGraph(raw []byte, maxRank int) ([]byte, error) {
	w := cgraph.NewWriter()
	if err := w.SetParams(cgraph.Params{MaxRank: maxRank}); err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		if err := w.AddEdge(fields[0], fields[1:]...); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := w.Compress(); err != nil {
		return nil, err
	}
	return w.Encode()
}

func compressGzip(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func compressXZ(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
