// Command policyconv converts a nested policies.json document into the
// line-delimited corpus format consumed by the index build.
package main

import (
	"flag"
	"fmt"
	"log"

	"policyrag/internal/corpus"
)

func main() {
	in := flag.String("in", "policies.json", "Path to nested policies JSON")
	out := flag.String("out", "policies.jsonl", "Path to write the line-delimited corpus")
	flag.Parse()

	n, err := corpus.ConvertPolicies(*in, *out)
	if err != nil {
		log.Fatalf("convert failed: %v", err)
	}
	fmt.Printf("Wrote %d records to %s\n", n, *out)
}
