// Package repl implements the interactive shell: session management,
// alignment, merge, export and ad-hoc SQL over the archive.
package repl

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/xtxerr/trackside/internal/engine"
	"github.com/xtxerr/trackside/internal/ingest"
	"github.com/xtxerr/trackside/internal/query"
	"github.com/xtxerr/trackside/internal/series"
)

// Shell is the interactive command interpreter.
type Shell struct {
	eng  *engine.Engine
	done bool
}

// New creates a shell bound to an engine.
func New(eng *engine.Engine) *Shell {
	return &Shell{eng: eng}
}

// Run starts the interactive prompt. The terminal state is saved up front
// and restored on exit because the prompt switches the terminal to raw mode.
func (s *Shell) Run() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("shell requires a terminal")
	}

	state, err := term.GetState(fd)
	if err != nil {
		return fmt.Errorf("read terminal state: %w", err)
	}
	defer term.Restore(fd, state)

	fmt.Println("trackside shell - type 'help' for commands, 'exit' to quit")

	p := prompt.New(
		s.execute,
		s.complete,
		prompt.OptionPrefix("trackside> "),
		prompt.OptionTitle("trackside"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return s.done
		}),
	)
	p.Run()
	return nil
}

// execute runs one command line.
func (s *Shell) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	cmd, args := fields[0], fields[1:]
	ctx := context.Background()

	var err error
	switch cmd {
	case "help":
		s.printHelp()
	case "sessions":
		err = s.cmdSessions()
	case "channels":
		err = s.cmdChannels(args)
	case "ingest":
		err = s.cmdIngest(args)
	case "seal":
		err = s.cmdSeal(args)
	case "drop":
		err = s.cmdDrop(args)
	case "align":
		err = s.cmdAlign(ctx, args)
	case "export":
		err = s.cmdExport(ctx, args)
	case "derive":
		err = s.cmdDerive(ctx, args)
	case "merge":
		err = s.cmdMerge(ctx, args)
	case "archive":
		err = s.cmdArchive(args)
	case "restore":
		err = s.cmdRestore(args)
	case "stats":
		err = s.cmdStats(args)
	case "sql":
		err = s.cmdSQL(ctx, strings.TrimSpace(strings.TrimPrefix(line, "sql")))
	case "formats":
		fmt.Println(strings.Join(ingest.Formats(), " "))
	case "track":
		err = s.cmdTrack(args)
	case "exit", "quit":
		s.done = true
	default:
		fmt.Printf("unknown command %q - type 'help'\n", cmd)
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (s *Shell) printHelp() {
	fmt.Print(`commands:
  sessions                              list sessions
  channels <session>                    list channels of a sealed session
  ingest <file> <session> [format]      ingest a telemetry file
  seal <session>                        seal a session
  drop <session>                        drop a session from memory
  align <session> [rate_hz]             align and show frame shape
  export <session> <file> [rate_hz]     align and export CSV
  derive <session> <file> [rate_hz] [cutoff_hz]  trajectory channels as CSV
  merge <out.csv> <sess[:offset[:prefix]]>...  merge sessions, export CSV
  archive <session>                     write sealed session to Parquet
  restore <path>                        restore a session from Parquet
  stats <session>                       per-channel summaries
  sql <query>                           ad-hoc SQL over the archive
  formats                               list registered converters
  track <name>                          show track file info
  exit                                  leave the shell
`)
}

func (s *Shell) cmdSessions() error {
	names := s.eng.Store().Sessions()
	if len(names) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, name := range names {
		sess, err := s.eng.Store().Session(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %s\n", name, sess.State())
	}
	return nil
}

func (s *Shell) cmdChannels(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: channels <session>")
	}
	sess, err := s.eng.Store().Session(args[0])
	if err != nil {
		return err
	}
	names, err := sess.Channels()
	if err != nil {
		return err
	}
	for _, name := range names {
		ch, err := sess.Channel(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %6d samples  [%g, %g]\n", name, ch.Len(), ch.Start(), ch.End())
	}
	return nil
}

func (s *Shell) cmdIngest(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: ingest <file> <session> [format]")
	}
	format := ""
	if len(args) == 3 {
		format = args[2]
	}
	return s.eng.IngestFile(args[0], args[1], format)
}

func (s *Shell) cmdSeal(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: seal <session>")
	}
	return s.eng.Seal(args[0])
}

func (s *Shell) cmdDrop(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: drop <session>")
	}
	return s.eng.Store().Drop(args[0])
}

func (s *Shell) cmdAlign(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: align <session> [rate_hz]")
	}
	rate, err := optionalRate(args, 1)
	if err != nil {
		return err
	}
	frame, err := s.eng.Align(ctx, args[0], rate)
	if err != nil {
		return err
	}
	fmt.Printf("frame: %d channels x %d points over [%g, %g]\n",
		len(frame.Channels()), frame.Len(), frame.Start(), frame.End())
	return nil
}

func (s *Shell) cmdExport(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: export <session> <file> [rate_hz]")
	}
	rate, err := optionalRate(args, 2)
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	err = s.eng.ExportCSV(ctx, f, args[0], rate, math.Inf(-1), math.Inf(1), nil)
	if err == nil {
		fmt.Printf("exported to %s\n", args[1])
	}
	return err
}

// cmdDerive computes heading/curvature (and acceleration estimates when a
// speed channel exists) from a session's x/y trajectory and exports CSV.
func (s *Shell) cmdDerive(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return fmt.Errorf("usage: derive <session> <file> [rate_hz] [cutoff_hz]")
	}
	rate, err := optionalRate(args, 2)
	if err != nil {
		return err
	}
	cutoff := 0.0
	if len(args) == 4 {
		if cutoff, err = strconv.ParseFloat(args[3], 64); err != nil {
			return fmt.Errorf("cutoff %q: %w", args[3], err)
		}
	}

	frame, err := s.eng.Derive(ctx, args[0], rate, cutoff)
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
	if err := query.ExportCSV(f, rows); err != nil {
		return err
	}
	fmt.Printf("derived %s -> %s (%d points)\n",
		strings.Join(frame.Channels(), ","), args[1], frame.Len())
	return nil
}

// cmdMerge parses "merge out.csv sess[:offset[:prefix]]..." and exports the
// merged dataset as CSV.
func (s *Shell) cmdMerge(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: merge <out.csv> <session[:offset[:prefix]]>...")
	}

	inputs := make([]engine.MergeInput, 0, len(args)-1)
	for _, spec := range args[1:] {
		parts := strings.SplitN(spec, ":", 3)
		in := engine.MergeInput{Session: parts[0]}
		if len(parts) > 1 && parts[1] != "" {
			off, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return fmt.Errorf("offset in %q: %w", spec, err)
			}
			in.Offset = off
		}
		if len(parts) > 2 {
			in.Prefix = parts[2]
		}
		inputs = append(inputs, in)
	}

	ds, err := s.eng.Merge(ctx, inputs, 0)
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ExportDataset(f, ds); err != nil {
		return err
	}
	fmt.Printf("merged %d sessions into %s (%d channels x %d points)\n",
		len(inputs), args[0], len(ds.Channels()), ds.Len())
	return nil
}

func (s *Shell) cmdArchive(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: archive <session>")
	}
	path, err := s.eng.Archive(args[0])
	if err == nil {
		fmt.Printf("archived to %s\n", path)
	}
	return err
}

func (s *Shell) cmdRestore(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: restore <path>")
	}
	sess, err := s.eng.Restore(args[0])
	if err == nil {
		fmt.Printf("restored session %q\n", sess.Name())
	}
	return err
}

func (s *Shell) cmdStats(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stats <session>")
	}
	summaries, err := s.eng.Summaries(args[0])
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
}

func (s *Shell) cmdSQL(ctx context.Context, q string) error {
	if q == "" {
		return fmt.Errorf("usage: sql <query>")
	}
	rows, err := s.eng.SQL().ExecuteSQL(ctx, q)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no rows")
		return nil
	}

	cols := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	fmt.Println(strings.Join(cols, "\t"))
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	return nil
}

func (s *Shell) cmdTrack(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: track <name>")
	}
	t, err := s.eng.Track(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("track %q: %d points, length %.1f m\n", t.Name, t.Len(), t.Length())
	fmt.Printf("finish line: lat=%.6f lon=%.6f alt=%.1f\n",
		t.FinishLine.Latitude, t.FinishLine.Longitude, t.FinishLine.Altitude)
	return nil
}

// complete provides command and session-name completion.
func (s *Shell) complete(d prompt.Document) []prompt.Suggest {
	line := d.TextBeforeCursor()
	fields := strings.Fields(line)

	// First word: command names.
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(line, " ")) {
		return prompt.FilterHasPrefix(commandSuggestions, d.GetWordBeforeCursor(), true)
	}

	switch fields[0] {
	case "channels", "seal", "drop", "align", "export", "derive", "archive", "stats":
		return prompt.FilterHasPrefix(s.sessionSuggestions(), d.GetWordBeforeCursor(), true)
	case "ingest":
		if len(fields) >= 3 {
			var fs []prompt.Suggest
			for _, name := range ingest.Formats() {
				fs = append(fs, prompt.Suggest{Text: name})
			}
			return prompt.FilterHasPrefix(fs, d.GetWordBeforeCursor(), true)
		}
	}
	return nil
}

func (s *Shell) sessionSuggestions() []prompt.Suggest {
	names := s.eng.Store().Sessions()
	out := make([]prompt.Suggest, len(names))
	for i, name := range names {
		out[i] = prompt.Suggest{Text: name}
	}
	return out
}

// optionalRate parses an optional trailing rate argument; zero means the
// configured default.
func optionalRate(args []string, idx int) (float64, error) {
	if len(args) <= idx {
		return 0, nil
	}
	rate, err := strconv.ParseFloat(args[idx], 64)
	if err != nil {
		return 0, fmt.Errorf("rate %q: %w", args[idx], err)
	}
	return rate, nil
}

// ExportDataset writes a full merged dataset as CSV.
func ExportDataset(w io.Writer, ds *series.Dataset) error {
	rows, err := query.Slice(ds, ds.Start(), ds.End(), nil)
	if err != nil {
		return err
	}
	return query.ExportCSV(w, rows)
}

var commandSuggestions = []prompt.Suggest{
	{Text: "sessions", Description: "list sessions"},
	{Text: "channels", Description: "list channels of a sealed session"},
	{Text: "ingest", Description: "ingest a telemetry file"},
	{Text: "seal", Description: "seal a session"},
	{Text: "drop", Description: "drop a session from memory"},
	{Text: "align", Description: "align a session onto a fixed-rate grid"},
	{Text: "export", Description: "export an aligned session as CSV"},
	{Text: "derive", Description: "derive trajectory channels as CSV"},
	{Text: "merge", Description: "merge sessions and export CSV"},
	{Text: "archive", Description: "archive a sealed session as Parquet"},
	{Text: "restore", Description: "restore a session from Parquet"},
	{Text: "stats", Description: "per-channel summaries"},
	{Text: "sql", Description: "ad-hoc SQL over the archive"},
	{Text: "formats", Description: "list registered converters"},
	{Text: "track", Description: "show track file info"},
	{Text: "help", Description: "show help"},
	{Text: "exit", Description: "leave the shell"},
}
