// trackside is the telemetry session tool: ingest, align, merge, export
// and query motorsport telemetry recordings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xtxerr/trackside/internal/engine"
	"github.com/xtxerr/trackside/internal/loader"
	"github.com/xtxerr/trackside/internal/logging"
	"github.com/xtxerr/trackside/internal/query"
	"github.com/xtxerr/trackside/internal/repl"
)

// Version is set at build time via ldflags
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `trackside %s - telemetry session tool

usage: trackside [flags] <command> [args]

commands:
  shell                                     interactive shell (default)
  ingest <file> <session> [format]          ingest a telemetry file
  seal <session>                            seal a session
  sessions                                  list sessions
  align <session> [rate_hz]                 align and show frame shape
  export <session> <out.csv> [rate_hz]      align and export CSV
  derive <session> <out.csv> [rate_hz] [cutoff_hz]  trajectory channels as CSV
  merge <out.csv> <sess[:off[:prefix]]>...  merge sessions, export CSV
  archive <session>                         write sealed session to Parquet
  restore <path>                            restore a session from Parquet
  stats <session>                           per-channel summaries
  sql <query>                               ad-hoc SQL over the archive

flags:
`, Version)
	flag.PrintDefaults()
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	logJSON := flag.Bool("log-json", false, "JSON log output")
	flag.Usage = usage
	flag.Parse()

	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = loader.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI overrides
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}

	logging.Init(cfg.LogLevel(), cfg.Logging.JSON)

	eng, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	args := flag.Args()
	cmd := "shell"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	if err := run(eng, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		eng.Close()
		os.Exit(1)
	}
}

func run(eng *engine.Engine, cmd string, args []string) error {
	ctx := context.Background()

	switch cmd {
	case "shell":
		return repl.New(eng).Run()

	case "ingest":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: ingest <file> <session> [format]")
		}
		format := ""
		if len(args) == 3 {
			format = args[2]
		}
		return eng.IngestFile(args[0], args[1], format)

	case "seal":
		if len(args) != 1 {
			return fmt.Errorf("usage: seal <session>")
		}
		return eng.Seal(args[0])

	case "sessions":
		for _, name := range eng.Store().Sessions() {
			sess, err := eng.Store().Session(name)
			if err != nil {
				return err
			}
			fmt.Printf("%-24s %s\n", name, sess.State())
		}
		return nil

	case "align":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: align <session> [rate_hz]")
		}
		rate, err := parseRate(args, 1)
		if err != nil {
			return err
		}
		frame, err := eng.Align(ctx, args[0], rate)
		if err != nil {
			return err
		}
		fmt.Printf("frame: %d channels x %d points over [%g, %g]\n",
			len(frame.Channels()), frame.Len(), frame.Start(), frame.End())
		return nil

	case "export":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: export <session> <out.csv> [rate_hz]")
		}
		rate, err := parseRate(args, 2)
		if err != nil {
			return err
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		return eng.ExportCSV(ctx, f, args[0], rate, math.Inf(-1), math.Inf(1), nil)

	case "derive":
		if len(args) < 2 || len(args) > 4 {
			return fmt.Errorf("usage: derive <session> <out.csv> [rate_hz] [cutoff_hz]")
		}
		rate, err := parseRate(args, 2)
		if err != nil {
			return err
		}
		cutoff := 0.0
		if len(args) == 4 {
			if cutoff, err = strconv.ParseFloat(args[3], 64); err != nil {
				return fmt.Errorf("cutoff %q: %w", args[3], err)
			}
		}
		frame, err := eng.Derive(ctx, args[0], rate, cutoff)
		if err != nil {
			return err
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		rows, err := query.SliceFrame(frame, frame.Start(), frame.End(), nil)
		if err != nil {
			return err
		}
		return query.ExportCSV(f, rows)

	case "merge":
		if len(args) < 2 {
			return fmt.Errorf("usage: merge <out.csv> <session[:offset[:prefix]]>...")
		}
		inputs := make([]engine.MergeInput, 0, len(args)-1)
		for _, spec := range args[1:] {
			in, err := parseMergeSpec(spec)
			if err != nil {
				return err
			}
			inputs = append(inputs, in)
		}
		ds, err := eng.Merge(ctx, inputs, 0)
		if err != nil {
			return err
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return repl.ExportDataset(f, ds)

	case "archive":
		if len(args) != 1 {
			return fmt.Errorf("usage: archive <session>")
		}
		path, err := eng.Archive(args[0])
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "restore":
		if len(args) != 1 {
			return fmt.Errorf("usage: restore <path>")
		}
		sess, err := eng.Restore(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("restored session %q\n", sess.Name())
		return nil

	case "stats":
		if len(args) != 1 {
			return fmt.Errorf("usage: stats <session>")
		}
		summaries, err := eng.Summaries(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %8s %12s %12s %12s %12s %12s\n",
			"channel", "count", "min", "avg", "max", "p50", "p99")
		for _, sm := range summaries {
			name := sm.Channel
			if sm.Component > 0 {
				name = fmt.Sprintf("%s[%d]", sm.Channel, sm.Component)
			}
			fmt.Printf("%-20s %8d %12.4g %12.4g %12.4g %12.4g %12.4g\n",
				name, sm.Count, sm.Min, sm.Avg, sm.Max, sm.P50, sm.P99)
		}
		return nil

	case "sql":
		if len(args) == 0 {
			return fmt.Errorf("usage: sql <query>")
		}
		rows, err := eng.SQL().ExecuteSQL(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Println(row)
		}
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// parseRate parses an optional trailing rate argument; zero means the
// configured default.
func parseRate(args []string, idx int) (float64, error) {
	if len(args) <= idx {
		return 0, nil
	}
	rate, err := strconv.ParseFloat(args[idx], 64)
	if err != nil {
		return 0, fmt.Errorf("rate %q: %w", args[idx], err)
	}
	return rate, nil
}

// parseMergeSpec parses "session[:offset[:prefix]]".
func parseMergeSpec(spec string) (engine.MergeInput, error) {
	parts := strings.SplitN(spec, ":", 3)
	in := engine.MergeInput{Session: parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		off, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return in, fmt.Errorf("offset in %q: %w", spec, err)
		}
		in.Offset = off
	}
	if len(parts) > 2 {
		in.Prefix = parts[2]
	}
	return in, nil
}
