package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/launchthat/storefront/internal/catalog"
	jobmetrics "github.com/launchthat/storefront/internal/jobs"
)

const recountConcurrency = 4

// RecountHandler recomputes the completed-purchase count per product.
type RecountHandler struct {
	catalog catalog.Repository
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewRecountHandler constructs a RecountHandler.
func NewRecountHandler(cat catalog.Repository, metrics *jobmetrics.Metrics, logger *slog.Logger) *RecountHandler {
	return &RecountHandler{catalog: cat, metrics: metrics, logger: logger}
}

// Handle processes TaskProductRecount tasks. Per-product failures are
// logged and counted; the batch keeps going so one bad product cannot
// stall the rest.
func (h *RecountHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ProductRecountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := h.metrics.Track("product_recount")

	ids := payload.ProductIDs
	if len(ids) == 0 {
		all, err := h.catalog.ListProductIDs(ctx)
		if err != nil {
			return tracker.End(err)
		}
		ids = all
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recountConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := h.recountOne(gctx, id); err != nil {
				failed.Add(1)
				h.logger.Warn("recount product",
					slog.String("product_id", id), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	h.metrics.AddItems("product_recount", len(ids)-int(failed.Load()), int(failed.Load()))
	h.logger.Info("product recount finished",
		slog.Int("products", len(ids)), slog.Int64("failed", failed.Load()))
	return tracker.End(nil)
}

func (h *RecountHandler) recountOne(ctx context.Context, productID string) error {
	count, err := h.catalog.CountCompletedPurchases(ctx, productID)
	if err != nil {
		return err
	}
	return h.catalog.SetPurchaseCount(ctx, productID, count)
}
