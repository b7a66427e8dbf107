package catalog

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/modcat/pkg/extract"
	"github.com/coolbeans/modcat/pkg/heading"
	"github.com/coolbeans/modcat/pkg/overview"
)

// Option configures a Builder.
type Option func(*Builder)

// WithDictionary resolves headings with dict instead of the built-in dictionary.
func WithDictionary(dict *heading.Dictionary) Option {
	return func(b *Builder) {
		if dict != nil {
			b.dict = dict
		}
	}
}

// WithWorkers bounds how many modules are segmented concurrently. Values
// below one use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.log = logger
	}
}

// Builder turns catalog lines into records.
type Builder struct {
	dict    *heading.Dictionary
	workers int
	log     zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		dict: heading.Default(),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	return b
}

// Build detects the modules in lines, segments each one and overlays the
// matching overview rows. Records keep document order. The only error is
// ctx's, when it is cancelled before every module has been segmented; module
// code collisions are reported through Catalog.Err.
func (b *Builder) Build(ctx context.Context, lines []string, rows []overview.Row) (*Catalog, error) {
	matches := extract.NewDetector(b.dict).Detect(lines)
	blocks := extract.Blocks(lines, matches)
	b.log.Debug().
		Int("lines", len(lines)).
		Int("modules", len(blocks)).
		Msg("detected modules")

	records := make([]Record, len(blocks))
	segmenter := extract.NewSegmenter(b.dict)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, block := range blocks {
		i, block := i, block
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = NewRecord(block.Code, block.Name, segmenter.Split(block.RawText))
			b.traceBlock(block)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := overview.NewIndex(rows)
	merged := 0
	for i := range records {
		if row, ok := idx.Lookup(records[i].ModuleNo); ok {
			Merge(&records[i], row)
			merged++
		}
	}
	if len(rows) > 0 {
		b.log.Debug().
			Int("rows", len(rows)).
			Int("merged", merged).
			Msg("applied overview table")
	}

	cat := &Catalog{
		Records:            records,
		Blocks:             blocks,
		Collisions:         findCollisions(records),
		OverviewDuplicates: idx.Duplicates(),
	}
	for _, c := range cat.Collisions {
		b.log.Warn().Str("code", c.Code).Ints("positions", c.Positions).Msg("module code occurs more than once")
	}
	return cat, nil
}

func (b *Builder) traceBlock(block extract.Block) {
	if b.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	hits := extract.TraceHeadings(block.RawText, b.dict)
	arr := zerolog.Arr()
	for _, h := range hits {
		arr.Str(h.Line.Text + " -> " + string(h.Field))
	}
	b.log.Debug().
		Str("code", block.Code).
		Str("grammar", string(block.Grammar)).
		Int("header_line", block.HeaderIndex).
		Array("headings", arr).
		Msg("segmented module")
}
