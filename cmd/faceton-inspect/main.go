// Command faceton-inspect decodes a wire-encoded histogram facet from a file
// and prints its rendered JSON document. Useful for debugging shard payloads
// and archived results offline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/faceton/faceton/internal/render"
	"github.com/faceton/faceton/internal/wire"
)

func main() {
	var (
		streamType = flag.String("type", wire.StreamTypeFull, "stream type of the payload")
		compressed = flag.Bool("compressed", false, "payload is snappy-compressed")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: faceton-inspect [-type TYPE] [-compressed] FILE\n")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "faceton-inspect: %v\n", err)
		os.Exit(1)
	}

	if *compressed {
		data, err = wire.Decompress(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "faceton-inspect: %v\n", err)
			os.Exit(1)
		}
	}

	decodeFn, err := wire.Lookup(*streamType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faceton-inspect: %v\n", err)
		os.Exit(1)
	}

	h, err := decodeFn(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faceton-inspect: %v\n", err)
		os.Exit(1)
	}

	doc, err := render.Render(h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faceton-inspect: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", doc)
	fmt.Fprintf(os.Stderr, "facet=%s kind=%s ordering=%s entries=%d\n",
		h.Name, h.Kind, h.Ordering, len(h.Entries))
}
