// Command csvprobe samples a delimited file and prints either a per-column
// summary or a ready-to-edit pipeline config JSON inferred from the sample.
//
// Usage:
//
//	csvprobe -file data.csv
//	csvprobe -file data.csv -json -name "Vozidla ČR" > configs/pipelines/vozidla.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"csvpipe/internal/probe"
)

func main() {
	var (
		file      string
		name      string
		delimiter string
		maxRows   int
		asJSON    bool
	)
	flag.StringVar(&file, "file", "", "path to the file to sample (.csv or .tsv)")
	flag.StringVar(&name, "name", "", "job name for the generated config (default: file name)")
	flag.StringVar(&delimiter, "delimiter", "", "field delimiter override (single character)")
	flag.IntVar(&maxRows, "max-rows", 1000, "maximum number of data rows to sample")
	flag.BoolVar(&asJSON, "json", false, "print a pipeline config JSON instead of a summary")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "csvprobe: -file is required")
		flag.Usage()
		os.Exit(2)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	opt := probe.Options{MaxRows: maxRows}
	if delimiter != "" {
		opt.Delimiter = []rune(delimiter)[0]
	}

	res, err := probe.File(file, opt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvprobe: %v\n", err)
		os.Exit(1)
	}

	if asJSON {
		cfg := probe.Suggest(name, file, res)
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "csvprobe: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("sampled %d rows from %s\n", res.RowsSampled, file)
	fmt.Println("column,normalized,type,non_empty")
	for _, c := range res.Columns {
		fmt.Printf("%s,%s,%s,%d\n", c.Name, c.Normalized, c.Type, c.NonEmpty)
	}
}
