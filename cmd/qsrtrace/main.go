// Command qsrtrace computes qualitative spatial relations for a JSON world
// trace and prints the resulting World QSR Trace as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/banshee-data/qsrtrace/internal/config"
	"github.com/banshee-data/qsrtrace/internal/engine"
	"github.com/banshee-data/qsrtrace/internal/monitoring"
	"github.com/banshee-data/qsrtrace/internal/qsr"
	"github.com/banshee-data/qsrtrace/internal/qsrplot"
	"github.com/banshee-data/qsrtrace/internal/trace"
	"github.com/banshee-data/qsrtrace/internal/version"
)

var (
	tracePath    = flag.String("trace", "-", "World trace JSON file ('-' for stdin)")
	qsrList      = flag.String("qsrs", "", "Comma-separated calculators to run (default from config)")
	configPath   = flag.String("config", "", "Calculator config file (.json, .yaml)")
	selectJSON   = flag.String("select", "", `Entity selection for all calculators, e.g. '[["A","B"]]'`)
	outPath      = flag.String("out", "", "Output file (default stdout)")
	timelinePath = flag.String("timeline", "", "Write an HTML timeline of one calculator's relations")
	timelineQSR  = flag.String("timeline-qsr", "", "Calculator shown by -timeline (default first requested)")
	plotPath     = flag.String("plot", "", "Write a trajectory plot (.png, .svg, .pdf)")
	quiet        = flag.Bool("quiet", false, "Suppress diagnostic logging")
	listQSRs     = flag.Bool("list", false, "List registered calculators and exit")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	eng := engine.New()
	if *listQSRs {
		for _, id := range eng.IDs() {
			fmt.Println(id)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if err := eng.Configure(cfg); err != nil {
		log.Fatalf("failed to apply config: %v", err)
	}

	tr, err := readTrace(*tracePath)
	if err != nil {
		log.Fatalf("failed to read trace: %v", err)
	}

	req := &qsr.Request{Trace: tr}
	for _, id := range strings.Split(*qsrList, ",") {
		if id = strings.TrimSpace(id); id != "" {
			req.QSRs = append(req.QSRs, qsr.ID(id))
		}
	}
	if *selectJSON != "" {
		var raw any
		if err := json.Unmarshal([]byte(*selectJSON), &raw); err != nil {
			log.Fatalf("failed to parse -select: %v", err)
		}
		sel, err := qsr.ParseSelection(raw)
		if err != nil {
			log.Fatalf("invalid -select: %v", err)
		}
		req.ForAll = &sel
	}

	out, err := eng.Compute(req)
	if err != nil {
		log.Fatalf("failed to compute relations: %v", err)
	}

	if err := writeJSON(*outPath, out); err != nil {
		log.Fatalf("failed to write output: %v", err)
	}

	if *timelinePath != "" {
		id := qsr.ID(*timelineQSR)
		if id == "" && len(out.QSRs) > 0 {
			id = out.QSRs[0]
		}
		if err := writeTimeline(*timelinePath, out, id); err != nil {
			log.Fatalf("failed to write timeline: %v", err)
		}
	}
	if *plotPath != "" {
		if err := qsrplot.SaveTrajectories(tr, *plotPath); err != nil {
			log.Fatalf("failed to write plot: %v", err)
		}
	}
}

func readTrace(path string) (*trace.Trace, error) {
	if path == "-" {
		return trace.Decode(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return trace.Decode(f)
}

func writeJSON(path string, out *qsr.WorldTrace) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeTimeline(path string, out *qsr.WorldTrace, id qsr.ID) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := qsrplot.RenderTimeline(f, out, id); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
