// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command cgraph-cli compresses RDF-style graphs into cgraph artifacts and
// answers queries against them.
//
// To compress:
//
//	cgraph-cli [options] input output
//
// To read, pass a compressed artifact and one query command:
//
//	cgraph-cli graph.cg --locate-node http://example.org/a
//	cgraph-cli graph.cg --hyperedges 2,0,?,5
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	flag "github.com/ogier/pflag"

	"github.com/dsnet/cgraph"
)

type options struct {
	format    string
	overwrite bool
	verbose   bool

	paramFile string
	maxRank   int
	monograms bool
	factor    int
	sampling  int
	noRLE     bool
	noTable   bool

	decompress   bool
	extractNode  int64
	extractEdge  int64
	locateNode   string
	locateEdge   string
	locatepNode  string
	searchNode   string
	hyperedges   string
	nodeCount    bool
	edgeLabels   bool
}

// paramConfig mirrors the compression options for --params files.
type paramConfig struct {
	MaxRank   int  `toml:"max_rank"`
	Monograms bool `toml:"monograms"`
	Factor    int  `toml:"factor"`
	Sampling  int  `toml:"sampling"`
	NoRLE     bool `toml:"no_rle"`
	NoTable   bool `toml:"no_table"`
}

func main() {
	var opts options
	flag.StringVarP(&opts.format, "format", "f", "", "input format: ntriples or hyperedge (default: by extension)")
	flag.BoolVar(&opts.overwrite, "overwrite", false, "overwrite the output file if it exists")
	flag.BoolVarP(&opts.verbose, "verbose", "v", false, "print progress information")

	flag.StringVar(&opts.paramFile, "params", "", "TOML file with compression parameters")
	flag.IntVar(&opts.maxRank, "max-rank", cgraph.DefaultMaxRank, "maximum rank of grammar rules")
	flag.BoolVar(&opts.monograms, "monograms", false, "enable monogram replacement")
	flag.IntVar(&opts.factor, "factor", cgraph.DefaultFactor, "blocks per rank super block")
	flag.IntVar(&opts.sampling, "sampling", cgraph.DefaultSampling, "dictionary sampling rate, 0 disables")
	flag.BoolVar(&opts.noRLE, "no-rle", false, "disable run-length encoding of the BWT")
	flag.BoolVar(&opts.noTable, "no-table", false, "drop the reachability table")

	flag.BoolVar(&opts.decompress, "decompress", false, "print every edge of the compressed graph")
	flag.Int64Var(&opts.extractNode, "extract-node", -1, "extract the label of a node id")
	flag.Int64Var(&opts.extractEdge, "extract-edge", -1, "extract the text of an edge label id")
	flag.StringVar(&opts.locateNode, "locate-node", "", "determine the id of a node label")
	flag.StringVar(&opts.locateEdge, "locate-edge", "", "determine the id of an edge label")
	flag.StringVar(&opts.locatepNode, "locatep-node", "", "node ids with labels starting with the text")
	flag.StringVar(&opts.searchNode, "search-node", "", "node ids with labels containing the text")
	flag.StringVar(&opts.hyperedges, "hyperedges", "", "rank,label{,node} pattern; ? is a wildcard")
	flag.BoolVar(&opts.nodeCount, "node-count", false, "print the number of nodes")
	flag.BoolVar(&opts.edgeLabels, "edge-labels", false, "print the number of edge labels")
	flag.Parse()

	args := flag.Args()
	switch {
	case len(args) == 2 && !readMode(&opts):
		if err := compress(&opts, args[0], args[1]); err != nil {
			fatal(err)
		}
	case len(args) == 1:
		if err := read(&opts, args[0]); err != nil {
			fatal(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "cgraph-cli:", err)
	os.Exit(1)
}

func readMode(opts *options) bool {
	return opts.decompress || opts.extractNode >= 0 || opts.extractEdge >= 0 ||
		opts.locateNode != "" || opts.locateEdge != "" || opts.locatepNode != "" ||
		opts.searchNode != "" || opts.hyperedges != "" || opts.nodeCount || opts.edgeLabels
}

func compress(opts *options, input, output string) error {
	if !opts.overwrite {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s exists; use --overwrite", output)
		}
	}

	params := cgraph.Params{
		MaxRank:   opts.maxRank,
		Monograms: opts.monograms,
		Factor:    opts.factor,
		Sampling:  opts.sampling,
		NoRLE:     opts.noRLE,
		NoNTTable: opts.noTable,
	}
	if opts.paramFile != "" {
		var pc paramConfig
		if _, err := toml.DecodeFile(opts.paramFile, &pc); err != nil {
			return err
		}
		params = cgraph.Params{
			MaxRank:   pc.MaxRank,
			Monograms: pc.Monograms,
			Factor:    pc.Factor,
			Sampling:  pc.Sampling,
			NoRLE:     pc.NoRLE,
			NoNTTable: pc.NoTable,
		}
	}
	if params.Sampling == 0 {
		params.Sampling = -1
	}

	w := cgraph.NewWriter()
	if err := w.SetParams(params); err != nil {
		return err
	}
	if opts.verbose {
		w.Log = func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
		}
	}

	if err := loadGraph(w, input, opts.format); err != nil {
		return err
	}
	if err := w.Compress(); err != nil {
		return err
	}
	return w.WriteFile(output)
}

// loadGraph feeds the input file into the writer. The ntriples format takes
// "subject predicate object ." lines; the hyperedge format takes
// "label node node ..." lines.
func loadGraph(w *cgraph.Writer, input, format string) error {
	if format == "" {
		if strings.HasSuffix(input, ".nt") {
			format = "ntriples"
		} else {
			format = "hyperedge"
		}
	}

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch format {
		case "ntriples":
			if len(fields) >= 3 && fields[len(fields)-1] == "." {
				fields = fields[:len(fields)-1]
			}
			if len(fields) < 3 {
				return fmt.Errorf("malformed triple: %q", line)
			}
			// Object literals may contain spaces.
			object := strings.Join(fields[2:], " ")
			if err := w.AddEdge(fields[1], fields[0], object); err != nil {
				return err
			}
		case "hyperedge":
			if len(fields) < 2 {
				return fmt.Errorf("malformed hyperedge: %q", line)
			}
			if err := w.AddEdge(fields[0], fields[1:]...); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q", format)
		}
	}
	return sc.Err()
}

func read(opts *options, input string) error {
	r, err := cgraph.Open(input)
	if err != nil {
		return err
	}
	defer r.Close()

	switch {
	case opts.nodeCount:
		fmt.Println(r.NodeCount())
	case opts.edgeLabels:
		fmt.Println(r.EdgeLabelCount())
	case opts.extractNode >= 0:
		if label, ok := r.ExtractNode(opts.extractNode); ok {
			fmt.Printf("%s\n", label)
		} else {
			return fmt.Errorf("node %d not found", opts.extractNode)
		}
	case opts.extractEdge >= 0:
		if label, ok := r.ExtractEdgeLabel(opts.extractEdge); ok {
			fmt.Printf("%s\n", label)
		} else {
			return fmt.Errorf("edge label %d not found", opts.extractEdge)
		}
	case opts.locateNode != "":
		fmt.Println(r.LocateNode([]byte(opts.locateNode)))
	case opts.locateEdge != "":
		fmt.Println(r.LocateEdgeLabel([]byte(opts.locateEdge)))
	case opts.locatepNode != "":
		it := r.LocateNodePrefix([]byte(opts.locatepNode))
		for n, ok := it.Next(); ok; n, ok = it.Next() {
			fmt.Println(n)
		}
	case opts.searchNode != "":
		it := r.SearchNode([]byte(opts.searchNode))
		for n, ok := it.Next(); ok; n, ok = it.Next() {
			fmt.Println(n)
		}
	case opts.hyperedges != "":
		return printEdges(r, opts.hyperedges)
	case opts.decompress:
		it := r.AllEdges()
		for e, ok := it.Next(); ok; e, ok = it.Next() {
			printEdge(e)
		}
	default:
		return fmt.Errorf("no command given")
	}
	return nil
}

// printEdges parses "rank,label{,node}" where label and nodes may be "?".
func printEdges(r *cgraph.Reader, pattern string) error {
	parts := strings.Split(pattern, ",")
	if len(parts) < 2 {
		return fmt.Errorf("malformed pattern %q", pattern)
	}
	rank, err := strconv.Atoi(parts[0])
	if err != nil || rank < 1 {
		return fmt.Errorf("malformed rank in %q", pattern)
	}

	parse := func(s string) (int64, error) {
		if s == "?" {
			return cgraph.Any, nil
		}
		return strconv.ParseInt(s, 10, 64)
	}

	label, err := parse(parts[1])
	if err != nil {
		return err
	}
	nodes := make([]int64, rank)
	for i := range nodes {
		nodes[i] = cgraph.Any
	}
	for i, s := range parts[2:] {
		if i >= rank {
			return fmt.Errorf("more nodes than the rank in %q", pattern)
		}
		if nodes[i], err = parse(s); err != nil {
			return err
		}
	}

	it := r.Edges(label, nodes)
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		printEdge(e)
	}
	return nil
}

func printEdge(e cgraph.Edge) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%d", e.Label)
	for _, n := range e.Nodes {
		fmt.Fprintf(&sb, ", %d", n)
	}
	sb.WriteString(")")
	fmt.Println(sb.String())
}
