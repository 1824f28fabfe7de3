package filters

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfstream/ir/raw"
	"github.com/wudi/pdfstream/scratch"
)

// DecodeAll decodes many independent streams concurrently, bounded by
// GOMAXPROCS, and returns their decoded bytes in input order. The first
// failure cancels the remaining work. The scratch space, when non-nil,
// is shared by all workers; its allocation is already concurrency-safe.
func (p *Pipeline) DecodeAll(ctx context.Context, streams []raw.Stream, space *scratch.ScratchSpace, opts Options) ([][]byte, error) {
	out := make([][]byte, len(streams))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range streams {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, err := p.Decode(ctx, s, space, opts)
			if err != nil {
				return fmt.Errorf("stream %d: %w", i, err)
			}
			data, err := io.ReadAll(ds)
			if cerr := ds.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("stream %d: %w", i, err)
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
