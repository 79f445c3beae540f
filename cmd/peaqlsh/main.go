package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/peaql/peaql"
	"github.com/peaql/peaql/catalog"
	"github.com/peaql/peaql/output"
)

var (
	queryFlag  = flag.String("q", "", "execute this text and exit instead of starting the shell")
	formatFlag = flag.String("f", "table", "output format for -q: table, csv")
	loadFlag   = flag.String("load", "", "path to a JSON file of {tableName: {columns, constraints, data}} to load at startup")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "An interactive shell over an in-memory PeaQL context.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, err := buildContext(*loadFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *queryFlag != "" {
		runOnce(ctx, *queryFlag, *formatFlag)
		return
	}

	newRepl(ctx).Run()
}

func buildContext(loadPath string) (*peaql.Context, error) {
	if loadPath == "" {
		return peaql.New(), nil
	}
	data, err := os.ReadFile(loadPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", loadPath, err)
	}
	var raw map[string]catalog.TableModel
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", loadPath, err)
	}
	return peaql.CreateDatabase(raw)
}

func runOnce(ctx *peaql.Context, query, format string) {
	result, err := ctx.Execute(query, peaql.Params{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result.HasAffectedRows {
		fmt.Printf("%d row(s) affected\n", result.AffectedRows)
		return
	}
	switch format {
	case "csv":
		if err := output.WriteCSV(os.Stdout, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "table":
		fmt.Print(output.FormatTable(result))
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported format %q\n", format)
		os.Exit(1)
	}
}
