package authoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProvisionRequest duplicates one template for many markets at once.
type ProvisionRequest struct {
	Drug       string
	SourcePath string
	// Defaults to every configured market.
	Markets []string
	Workers int
}

type ProvisionResult struct {
	Market string `json:"market"`
	Path   string `json:"path,omitempty"`
	Error  error  `json:"-"`
}

func (r ProvisionResult) Success() bool { return r.Error == nil }

func (r *ProvisionRequest) Validate(markets Markets) error {
	if err := requirePath("source_path", r.SourcePath); err != nil {
		return err
	}
	for _, m := range r.Markets {
		if !markets.Has(m) {
			return invalid("markets", "%s is not one of %s", quote(m), markets)
		}
	}
	if r.Workers < 0 {
		return invalid("workers", "must not be negative")
	}
	return nil
}

// Provision runs DuplicateTemplate for each market.  Markets are independent targets, so they
// run in parallel, and one failing doesn't stop the rest.  If progress is non-nil a progress
// bar is drawn on it.  Results come back sorted by market.
func (b *Builder) Provision(ctx context.Context, req ProvisionRequest, progress io.Writer) ([]ProvisionResult, error) {
	if err := req.Validate(b.Markets); err != nil {
		return nil, err
	}

	markets := req.Markets
	if len(markets) == 0 {
		markets = b.Markets.List()
	}
	workers := req.Workers
	if workers == 0 {
		workers = 4
	}

	var bar *mpb.Bar
	var p *mpb.Progress
	if progress != nil {
		// mpb only refreshes terminals by itself; redirected stderr gets frames too.
		p = mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(progress), mpb.WithAutoRefresh())
		bar = p.AddBar(int64(len(markets)),
			mpb.PrependDecorators(
				decor.Name("markets:", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d/%d) "),
				decor.NewPercentage("%d"),
			),
		)
	}

	var mu sync.Mutex
	results := make([]ProvisionResult, 0, len(markets))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for _, market := range markets {
		grp.Go(func() error {
			dest, err := b.DuplicateTemplate(gctx, DuplicateTemplateRequest{
				MarketRegion: market,
				Drug:         req.Drug,
				SourcePath:   req.SourcePath,
			})
			if err != nil {
				b.Logger.Warn("provisioning failed", zap.String("market", market), zap.Error(err))
			}

			mu.Lock()
			results = append(results, ProvisionResult{Market: market, Path: dest, Error: err})
			mu.Unlock()

			if bar != nil {
				bar.Increment()
			}
			// Only cancellation stops the others.
			if errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := grp.Wait()
	if p != nil {
		if err != nil {
			bar.Abort(false)
		}
		p.Wait()
	}
	if err != nil {
		return nil, fmt.Errorf("authoring: provisioning interrupted: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Market < results[j].Market })
	return results, nil
}
