package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coolbeans/modcat/pkg/catalog"
	"github.com/coolbeans/modcat/pkg/compare"
	"github.com/coolbeans/modcat/pkg/config"
	"github.com/coolbeans/modcat/pkg/extract"
	"github.com/coolbeans/modcat/pkg/heading"
	"github.com/coolbeans/modcat/pkg/logging"
	"github.com/coolbeans/modcat/pkg/overview"
	"github.com/coolbeans/modcat/pkg/source"
	"github.com/coolbeans/modcat/pkg/store"
	"github.com/coolbeans/modcat/pkg/watch"
)

var version = "0.1.0"

// Set by the root command before any subcommand runs.
var (
	cfg    = config.DefaultConfig()
	logger = zerolog.Nop()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modcat",
		Short: "Module catalog parser",
		Long: `modcat turns the text export of a printed university module catalog
into structured module records.

It reads the page text produced by a PDF text extractor and, optionally,
overview tables exported as CSV or JSON, and produces:
  - One JSON record per module, in catalog order
  - Section fields resolved from English and German headings
  - Learning outcomes split into competence areas
  - Stored parse runs in SQLite and diffs between runs`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				loaded.Log.Level, _ = cmd.Flags().GetString("log-level")
			}
			if cmd.Flags().Changed("log-format") {
				loaded.Log.Format, _ = cmd.Flags().GetString("log-format")
			}

			l, err := logging.Setup(logging.Config{
				Level:  loaded.Log.Level,
				Format: loaded.Log.Format,
				Out:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			cfg, logger = loaded, l
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default ./modcat.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(headingsCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(watchCmd())

	return rootCmd
}

// inputOptions are the flags shared by every command that reads a catalog.
type inputOptions struct {
	source   string
	pages    string
	overview []string
	profiles string
	workers  int
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "", "Catalog text export (pages separated by form feeds)")
	cmd.Flags().String("pages", "", "Pages to read, e.g. 1-3,7 (default all)")
	cmd.Flags().StringSlice("overview", nil, "Overview tables (.csv, or .json records)")
	cmd.Flags().String("profiles", "", "Directory of heading profile YAML files")
	cmd.Flags().Int("workers", 0, "Modules segmented concurrently (default GOMAXPROCS)")
}

func readInputFlags(cmd *cobra.Command) (inputOptions, error) {
	var opts inputOptions
	opts.source, _ = cmd.Flags().GetString("source")
	opts.pages, _ = cmd.Flags().GetString("pages")
	opts.overview, _ = cmd.Flags().GetStringSlice("overview")
	opts.profiles, _ = cmd.Flags().GetString("profiles")
	opts.workers, _ = cmd.Flags().GetInt("workers")

	if opts.source == "" {
		return opts, fmt.Errorf("--source flag is required")
	}
	if !cmd.Flags().Changed("profiles") {
		opts.profiles = cfg.Parse.Profiles
	}
	if !cmd.Flags().Changed("workers") {
		opts.workers = cfg.Parse.Workers
	}
	return opts, nil
}

// loadDictionary returns the built-in dictionary extended with the profiles
// in dir, and the registry holding them.
func loadDictionary(dir string) (*heading.Dictionary, *heading.Registry, error) {
	if dir == "" {
		return heading.Default(), nil, nil
	}
	registry, err := heading.NewRegistryWithDirectory(dir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load heading profiles: %w", err)
	}
	dict, err := registry.Dictionary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build heading dictionary: %w", err)
	}
	logger.Debug().Str("dir", dir).Int("profiles", registry.Count()).Int("headings", dict.Len()).Msg("loaded heading profiles")
	return dict, registry, nil
}

func readLines(ctx context.Context, opts inputOptions) ([]string, error) {
	pages, err := source.ParsePageRange(opts.pages)
	if err != nil {
		return nil, err
	}
	return source.TextFile{Path: opts.source, Pages: pages}.Lines(ctx)
}

func buildCatalog(ctx context.Context, opts inputOptions, dict *heading.Dictionary) (*catalog.Catalog, error) {
	lines, err := readLines(ctx, opts)
	if err != nil {
		return nil, err
	}

	var rows []overview.Row
	if len(opts.overview) > 0 {
		rows, err = source.OverviewTables{Paths: opts.overview, Log: logger}.Rows(ctx)
		if err != nil {
			return nil, err
		}
	}

	builder := catalog.NewBuilder(
		catalog.WithDictionary(dict),
		catalog.WithWorkers(opts.workers),
		catalog.WithLogger(logger),
	)
	cat, err := builder.Build(ctx, lines, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	logger.Info().
		Str("source", opts.source).
		Int("lines", len(lines)).
		Int("modules", len(cat.Records)).
		Int("overview_rows", len(rows)).
		Msg("parsed catalog")
	for _, code := range cat.OverviewDuplicates {
		logger.Warn().Str("code", code).Msg("overview table lists module more than once; using the last row")
	}
	return cat, nil
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a module catalog into records",
		Long: `Parse a module catalog text export into one record per module.

Modules are written in catalog order. Module codes that occur more than once
are reported as warnings, or as an error with --strict.

Example:
  modcat parse --source catalog.txt
  modcat parse --source catalog.txt --pages 5-120 --overview overview.csv -o modules.json
  modcat parse --source catalog.txt --format summary --sqlite runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readInputFlags(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")
			sqlitePath, _ := cmd.Flags().GetString("sqlite")
			strict, _ := cmd.Flags().GetBool("strict")
			if !cmd.Flags().Changed("format") {
				format = cfg.Parse.Format
			}
			if !cmd.Flags().Changed("sqlite") {
				sqlitePath = cfg.Store.SQLite
			}
			if !cmd.Flags().Changed("strict") {
				strict = cfg.Parse.Strict
			}

			dict, _, err := loadDictionary(opts.profiles)
			if err != nil {
				return err
			}
			return runParse(cmd.Context(), cmd.OutOrStdout(), opts, dict, parseOutput{
				path:   output,
				format: format,
				sqlite: sqlitePath,
				strict: strict,
			})
		},
	}

	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringP("format", "f", "json", "Output format (json, summary)")
	cmd.Flags().String("sqlite", "", "Also store the run in this SQLite database")
	cmd.Flags().Bool("strict", false, "Fail when a module code occurs more than once")

	return cmd
}

type parseOutput struct {
	path   string
	format string
	sqlite string
	strict bool
}

func runParse(ctx context.Context, stdout io.Writer, opts inputOptions, dict *heading.Dictionary, out parseOutput) error {
	cat, err := buildCatalog(ctx, opts, dict)
	if err != nil {
		return err
	}

	if out.sqlite != "" {
		db, err := store.OpenSQLite(ctx, out.sqlite, logger)
		if err != nil {
			return err
		}
		runID, err := db.SaveRun(ctx, opts.source, cat.Records)
		db.Close()
		if err != nil {
			return err
		}
		logger.Info().Str("run", runID).Str("db", out.sqlite).Msg("stored run")
	}

	switch out.format {
	case "json":
		if out.path != "" {
			if err := store.WriteJSONFile(out.path, cat.Records); err != nil {
				return err
			}
			logger.Info().Str("path", out.path).Int("modules", len(cat.Records)).Msg("wrote records")
		} else if err := store.WriteJSON(stdout, cat.Records); err != nil {
			return err
		}
	case "summary":
		printSummary(stdout, cat)
	default:
		return fmt.Errorf("unknown format: %s (use json or summary)", out.format)
	}

	if err := cat.Err(); err != nil {
		if out.strict {
			return err
		}
		logger.Warn().Err(err).Msg("catalog has duplicate module codes; all records were kept")
	}
	return nil
}

func printSummary(w io.Writer, cat *catalog.Catalog) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Code", "Name", "ECTS", "Level", "Fields"})
	for i, rec := range cat.Records {
		ects := "-"
		if rec.ECTS != nil {
			ects = strconv.Itoa(*rec.ECTS)
		}
		level := "-"
		if rec.Level != nil {
			level = *rec.Level
		}
		t.AppendRow(table.Row{i + 1, rec.ModuleNo, truncateString(rec.Name, 48), ects, truncateString(level, 20), rec.FilledFields()})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d modules", len(cat.Records)), "", "", ""})
	t.Render()

	for _, c := range cat.Collisions {
		fmt.Fprintf(w, "duplicate code %s at records %v\n", c.Code, c.Positions)
	}
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the modules detected in a catalog",
		Long: `Show where each module was detected: the header grammar that matched,
the header line, the first heading line and the sections found.

Line numbers are 1-based.

Example:
  modcat inspect --source catalog.txt --pages 5-40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readInputFlags(cmd)
			if err != nil {
				return err
			}
			dict, _, err := loadDictionary(opts.profiles)
			if err != nil {
				return err
			}
			lines, err := readLines(cmd.Context(), opts)
			if err != nil {
				return err
			}

			matches := extract.NewDetector(dict).Detect(lines)
			blocks := extract.Blocks(lines, matches)
			segmenter := extract.NewSegmenter(dict)

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Code", "Name", "Grammar", "Header", "Content", "Lines", "Sections"})
			for _, b := range blocks {
				t.AppendRow(table.Row{
					b.Code,
					truncateString(b.Name, 40),
					b.Grammar,
					b.HeaderIndex + 1,
					b.Start + 1,
					b.End - b.Start,
					len(segmenter.Split(b.RawText)),
				})
			}
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d modules", len(blocks)), "", "", "", len(lines), ""})
			t.Render()
			return nil
		},
	}

	addInputFlags(cmd)
	return cmd
}

func headingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headings",
		Short: "List known headings, or the headings found per module",
		Long: `Without --source, list every heading phrase the dictionary resolves and
its field. With --source, list the heading lines found in each module.

Example:
  modcat headings
  modcat headings --profiles ./profiles
  modcat headings --source catalog.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _ := cmd.Flags().GetString("source")
			profiles, _ := cmd.Flags().GetString("profiles")
			if !cmd.Flags().Changed("profiles") {
				profiles = cfg.Parse.Profiles
			}

			dict, _, err := loadDictionary(profiles)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)

			if src == "" {
				t.AppendHeader(table.Row{"Heading", "Field"})
				for _, e := range dict.Entries() {
					t.AppendRow(table.Row{e.Phrase, e.Field})
				}
				t.Render()
				return nil
			}

			opts, err := readInputFlags(cmd)
			if err != nil {
				return err
			}
			lines, err := readLines(cmd.Context(), opts)
			if err != nil {
				return err
			}
			blocks := extract.Blocks(lines, extract.NewDetector(dict).Detect(lines))

			t.AppendHeader(table.Row{"Code", "Line", "Heading", "Field"})
			for _, b := range blocks {
				for _, hit := range extract.TraceHeadings(b.RawText, dict) {
					t.AppendRow(table.Row{b.Code, b.Start + hit.Line.Index + 1, hit.Line.Text, hit.Field})
				}
				t.AppendSeparator()
			}
			t.Render()
			return nil
		},
	}

	addInputFlags(cmd)
	return cmd
}

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two parses of a catalog",
		Long: `Compare two record sets and report added, removed and modified modules
with a unified diff of every changed field.

The base and target are JSON files written by parse, or run ids when
--sqlite is given.

Example:
  modcat compare --base modules-2023.json --target modules-2024.json
  modcat compare --sqlite runs.db --base <run-id> --target <run-id> --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _ := cmd.Flags().GetString("base")
			target, _ := cmd.Flags().GetString("target")
			formatStr, _ := cmd.Flags().GetString("format")
			sqlitePath, _ := cmd.Flags().GetString("sqlite")
			noColor, _ := cmd.Flags().GetBool("no-color")

			if base == "" || target == "" {
				return fmt.Errorf("--base and --target flags are required")
			}

			baseRecords, targetRecords, err := loadComparison(cmd.Context(), sqlitePath, base, target)
			if err != nil {
				return err
			}

			report := compare.Compare(base, target, baseRecords, targetRecords)
			switch formatStr {
			case "text":
				return report.Render(cmd.OutOrStdout(), !noColor && !color.NoColor)
			case "json":
				data, err := report.ToJSON()
				if err != nil {
					return fmt.Errorf("failed to serialize JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			default:
				return fmt.Errorf("unknown format: %s (use text or json)", formatStr)
			}
		},
	}

	cmd.Flags().String("base", "", "Base records (JSON file or run id)")
	cmd.Flags().String("target", "", "Target records (JSON file or run id)")
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	cmd.Flags().String("sqlite", "", "Read base and target runs from this SQLite database")
	cmd.Flags().Bool("no-color", false, "Disable coloured output")

	return cmd
}

func loadComparison(ctx context.Context, sqlitePath, base, target string) ([]catalog.Record, []catalog.Record, error) {
	if sqlitePath == "" {
		baseRecords, err := store.ReadJSONFile(base)
		if err != nil {
			return nil, nil, err
		}
		targetRecords, err := store.ReadJSONFile(target)
		if err != nil {
			return nil, nil, err
		}
		return baseRecords, targetRecords, nil
	}

	db, err := store.OpenSQLite(ctx, sqlitePath, logger)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	baseRecords, err := db.Modules(ctx, base)
	if err != nil {
		return nil, nil, fmt.Errorf("base run %s: %w", base, err)
	}
	targetRecords, err := db.Modules(ctx, target)
	if err != nil {
		return nil, nil, fmt.Errorf("target run %s: %w", target, err)
	}
	return baseRecords, targetRecords, nil
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-parse a catalog whenever its inputs change",
		Long: `Parse the catalog once, then again whenever the text export, an
overview table or a heading profile changes. Stops on Ctrl-C.

Example:
  modcat watch --source catalog.txt --overview overview.csv -o modules.json
  modcat watch --source catalog.txt --profiles ./profiles -o modules.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readInputFlags(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			debounce, _ := cmd.Flags().GetDuration("debounce")
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Watch.Debounce
			}
			if output == "" {
				return fmt.Errorf("--output flag is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, registry, err := loadDictionary(opts.profiles)
			if err != nil {
				return err
			}

			out := parseOutput{path: output, format: "json", sqlite: cfg.Store.SQLite}
			var mu sync.Mutex
			reparse := func(ctx context.Context, reason string) error {
				mu.Lock()
				defer mu.Unlock()

				dict := heading.Default()
				if registry != nil {
					d, err := registry.Dictionary()
					if err != nil {
						return fmt.Errorf("failed to build heading dictionary: %w", err)
					}
					dict = d
				}
				start := time.Now()
				if err := runParse(ctx, cmd.OutOrStdout(), opts, dict, out); err != nil {
					return err
				}
				logger.Info().Str("reason", reason).Dur("took", time.Since(start)).Msg("catalog re-parsed")
				return nil
			}

			if err := reparse(ctx, "initial"); err != nil {
				return err
			}

			if registry != nil {
				registry.SetOnChange(func(event string, profile *heading.Profile) {
					if err := reparse(ctx, "profile "+event); err != nil {
						logger.Error().Err(err).Msg("re-parse after profile change failed")
					}
				})
				if err := registry.Watch(); err != nil {
					return err
				}
				defer registry.StopWatch()
			}

			paths := append([]string{opts.source}, opts.overview...)
			w, err := watch.New(paths, watch.WithDebounce(debounce), watch.WithLogger(logger))
			if err != nil {
				return err
			}
			return w.Run(ctx, func(ctx context.Context, changed []string) error {
				names := make([]string, len(changed))
				for i, p := range changed {
					names[i] = filepath.Base(p)
				}
				return reparse(ctx, fmt.Sprintf("changed %v", names))
			})
		},
	}

	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output JSON file")
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Wait this long for writes to settle")

	return cmd
}

// truncateString shortens a string to a maximum number of runes.
func truncateString(inputStr string, maxLength int) string {
	runes := []rune(inputStr)
	if len(runes) <= maxLength {
		return inputStr
	}
	return string(runes[:maxLength-3]) + "..."
}
