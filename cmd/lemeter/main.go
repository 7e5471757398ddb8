// lemeter is the offline toolkit for meter logs: it summarizes them and
// converts them to Parquet.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/lemeter/lemeter/internal/logfile"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "inspect":
		err = runInspect(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "lemeter:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: lemeter <command> [flags]

Commands:
  inspect   summarize a meter log (overall and per epoch)
  convert   convert a meter log to Parquet

Run 'lemeter <command> -h' for command flags.
`)
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	logPath := fs.String("log", "", "meter log to read (required)")
	epochs := fs.Bool("epochs", false, "include a per-epoch breakdown")
	fs.Parse(args)

	if *logPath == "" {
		fs.Usage()
		return fmt.Errorf("missing -log")
	}

	f, err := logfile.Open(*logPath)
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := logfile.Analyze(f.Reader)
	if err != nil {
		return err
	}

	// Aligned table on a terminal, plain tab-separated lines otherwise.
	w := io.Writer(os.Stdout)
	var tw *tabwriter.Writer
	if term.IsTerminal(int(os.Stdout.Fd())) {
		tw = tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		w = tw
	}

	fmt.Fprintln(w, "EPOCH\tRECORDS\tFIRST\tLAST\tDURATION\tMIN\tMAX\tGAP_P50\tGAP_P95\tGAP_P99\tGAP_MAX")
	writeRow(w, "overall", a.Overall)
	if *epochs {
		for _, es := range a.Epochs {
			writeRow(w, strconv.FormatUint(es.Epoch, 10), es.Stats)
		}
	}

	if tw != nil {
		return tw.Flush()
	}
	return nil
}

func writeRow(w io.Writer, label string, st logfile.Stats) {
	fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
		label, st.Records,
		st.First, st.Last, st.Duration,
		st.MinValue, st.MaxValue,
		st.GapP50, st.GapP95, st.GapP99, st.GapMax)
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	logPath := fs.String("log", "", "meter log to read (required)")
	outPath := fs.String("out", "", "Parquet file to write (required)")
	compression := fs.String("compression", "zstd", "compression: zstd, snappy, none")
	fs.Parse(args)

	if *logPath == "" || *outPath == "" {
		fs.Usage()
		return fmt.Errorf("missing -log or -out")
	}

	f, err := logfile.Open(*logPath)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := logfile.Options{Compression: logfile.ParseCompression(*compression)}
	rows, err := logfile.Convert(f.Reader, *outPath, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "wrote %d records to %s\n", rows, *outPath)
	return nil
}
