package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchthat/storefront/internal/catalog"
)

type stubCatalog struct {
	counts    map[string]int64
	stored    map[string]int64
	failCount map[string]bool
	failSet   map[string]bool
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		counts:    make(map[string]int64),
		stored:    make(map[string]int64),
		failCount: make(map[string]bool),
		failSet:   make(map[string]bool),
	}
}

func (s *stubCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCatalog) ListProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	return nil, nil
}

func (s *stubCatalog) ListProductIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.counts))
	for id := range s.counts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stubCatalog) HasCompletedPurchase(ctx context.Context, userID, productID string) (bool, error) {
	return false, nil
}

func (s *stubCatalog) ListCompletedPurchasers(ctx context.Context, productID string) ([]string, error) {
	return nil, nil
}

func (s *stubCatalog) HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	return false, nil
}

func (s *stubCatalog) ListActiveEnrollees(ctx context.Context, courseID string) ([]string, error) {
	return nil, nil
}

func (s *stubCatalog) CountCompletedPurchases(ctx context.Context, productID string) (int64, error) {
	if s.failCount[productID] {
		return 0, errors.New("count failed")
	}
	return s.counts[productID], nil
}

func (s *stubCatalog) SetPurchaseCount(ctx context.Context, productID string, count int64) error {
	if s.failSet[productID] {
		return errors.New("write failed")
	}
	s.stored[productID] = count
	return nil
}

func recountTask(t *testing.T, ids []string) *asynq.Task {
	t.Helper()
	task, err := NewProductRecountTask(ProductRecountPayload{ProductIDs: ids})
	require.NoError(t, err)
	return task
}

func TestRecountHandlerUpdatesCounts(t *testing.T) {
	cat := newStubCatalog()
	cat.counts["prod-1"] = 7
	cat.counts["prod-2"] = 0
	h := NewRecountHandler(cat, nil, slog.Default())

	err := h.Handle(context.Background(), recountTask(t, []string{"prod-1", "prod-2"}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), cat.stored["prod-1"])
	assert.Equal(t, int64(0), cat.stored["prod-2"])
}

func TestRecountHandlerContinuesPastFailures(t *testing.T) {
	cat := newStubCatalog()
	cat.counts["prod-1"] = 3
	cat.counts["prod-2"] = 5
	cat.counts["prod-3"] = 9
	cat.failCount["prod-2"] = true
	h := NewRecountHandler(cat, nil, slog.Default())

	err := h.Handle(context.Background(), recountTask(t, []string{"prod-1", "prod-2", "prod-3"}))
	require.NoError(t, err)

	// The failing product is skipped; the rest still land.
	assert.Equal(t, int64(3), cat.stored["prod-1"])
	assert.Equal(t, int64(9), cat.stored["prod-3"])
	_, ok := cat.stored["prod-2"]
	assert.False(t, ok)
}

func TestRecountHandlerEmptyPayloadSweepsCatalog(t *testing.T) {
	cat := newStubCatalog()
	cat.counts["prod-1"] = 1
	cat.counts["prod-2"] = 2
	h := NewRecountHandler(cat, nil, slog.Default())

	err := h.Handle(context.Background(), recountTask(t, nil))
	require.NoError(t, err)
	assert.Len(t, cat.stored, 2)
}
