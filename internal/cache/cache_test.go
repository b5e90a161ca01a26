package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farm-platform/farm-dashboard/internal/alerting"
	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/internal/testutil"
)

func newTestCache(gw *testutil.MockGateway) *Cache {
	return New(gw, nil, nil, nil)
}

func readyCache(t *testing.T, items ...domain.InventoryItem) (*Cache, *testutil.MockGateway) {
	t.Helper()
	gw := testutil.NewMockGateway()
	gw.SetItems(testutil.TenantA, items...)
	c := newTestCache(gw)
	c.Initialize(testutil.TenantA)
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, StatusReady, c.Snapshot().Status)
	return c, gw
}

func ids(items []domain.InventoryItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestNew_StartsIdleWithoutTenant(t *testing.T) {
	c := newTestCache(testutil.NewMockGateway())

	snap := c.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.False(t, snap.HasTenant())
	assert.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
}

func TestInitialize_CreatesEmptyIdleSnapshot(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)

	c.Initialize(testutil.TenantB)

	snap := c.Snapshot()
	assert.Equal(t, testutil.TenantB, snap.TenantID)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Items)
	assert.Nil(t, snap.LastError)
	assert.True(t, snap.FetchedAt.IsZero())
}

func TestRefresh_Success(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)

	snap := c.Snapshot()
	assert.Equal(t, []string{"1", "2"}, ids(snap.Items))
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Nil(t, snap.LastError)
}

func TestRefresh_SetsLoadingImmediately(t *testing.T) {
	gw := testutil.NewMockGateway()
	gate := testutil.NewGate()
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		gate.Wait()
		return testutil.SeedItems(), nil
	}
	c := newTestCache(gw)
	c.Initialize(testutil.TenantA)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()

	<-gate.Entered()
	assert.Equal(t, StatusLoading, c.Snapshot().Status)

	gate.Release()
	require.NoError(t, <-done)
	assert.Equal(t, StatusReady, c.Snapshot().Status)
}

func TestRefresh_FailureRetainsItems(t *testing.T) {
	items := []domain.InventoryItem{
		testutil.NewTestItem("1", "Seed A", domain.CategorySeeds, 5, 10),
		testutil.NewTestItem("2", "Pump", domain.CategoryEquipment, 20, 5),
		testutil.NewTestItem("3", "Diesel", domain.CategoryFuel, 100, 50),
	}
	c, gw := readyCache(t, items...)
	fetchedAt := c.Snapshot().FetchedAt

	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		return nil, domain.NewNetworkError("list_items", errors.New("connection refused"))
	}

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)

	snap := c.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Len(t, snap.Items, 3)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, domain.KindNetwork, snap.LastError.Kind)
	assert.Equal(t, "inventory service unreachable", snap.LastError.Message)
	assert.Equal(t, fetchedAt, snap.FetchedAt)
}

func TestRefresh_ServerRejectedSurfacesReason(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		return nil, domain.NewServerRejected("tenant suspended")
	}

	assert.ErrorIs(t, c.Refresh(context.Background()), domain.ErrServerRejected)

	snap := c.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, "tenant suspended", snap.LastError.Message)
}

func TestRefresh_RecoversAfterError(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	fail := true
	var mu sync.Mutex
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, domain.NewNetworkError("list_items", errors.New("timeout"))
		}
		return testutil.SeedItems()[:1], nil
	}

	require.Error(t, c.Refresh(context.Background()))
	mu.Lock()
	fail = false
	mu.Unlock()
	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Nil(t, snap.LastError)
	assert.Equal(t, []string{"1"}, ids(snap.Items))
}

func TestRefresh_ConcurrentCallsIssueOneRequest(t *testing.T) {
	gw := testutil.NewMockGateway()
	gate := testutil.NewGate()
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		gate.Wait()
		return testutil.SeedItems(), nil
	}
	c := newTestCache(gw)
	c.Initialize(testutil.TenantA)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-gate.Entered()

	// the second refresh is dropped while the first is outstanding
	assert.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 1, gw.Calls("list_items"))

	gate.Release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.Calls("list_items"))

	// the guard is released once the first refresh completes
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 2, gw.Calls("list_items"))
}

func TestRefresh_StaleResponseAfterTenantSwitchIsDiscarded(t *testing.T) {
	gw := testutil.NewMockGateway()
	gate := testutil.NewGate()
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		if tenantID == testutil.TenantA {
			gate.Wait()
			return testutil.SeedItems(), nil
		}
		return []domain.InventoryItem{
			{ID: "b1", TenantID: testutil.TenantB, Name: "Hay", Category: domain.CategoryFeed, Quantity: 3, Threshold: 1},
		}, nil
	}
	c := newTestCache(gw)
	c.Initialize(testutil.TenantA)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-gate.Entered()

	c.Initialize(testutil.TenantB)
	require.NoError(t, c.Refresh(context.Background()))

	gate.Release()
	require.NoError(t, <-done)

	snap := c.Snapshot()
	assert.Equal(t, testutil.TenantB, snap.TenantID)
	assert.Equal(t, []string{"b1"}, ids(snap.Items))
	assert.Equal(t, StatusReady, snap.Status)
}

func TestReset_DiscardsInFlightRefresh(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gate := testutil.NewGate()
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		gate.Wait()
		return testutil.SeedItems(), nil
	}

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-gate.Entered()
	require.Equal(t, StatusLoading, c.Snapshot().Status)

	c.Reset()
	gate.Release()
	require.NoError(t, <-done)

	snap := c.Snapshot()
	assert.False(t, snap.HasTenant())
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Items)
}

func TestReset_LaterCallsFailWithoutDispatch(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	c.Reset()

	assert.ErrorIs(t, c.Refresh(context.Background()), domain.ErrMissingTenant)
	_, err := c.AddItem(context.Background(), domain.Draft{Name: "Hay", Category: domain.CategoryFeed, Quantity: 3})
	assert.ErrorIs(t, err, domain.ErrMissingTenant)
	_, err = c.UpdateItem(context.Background(), "1", domain.Patch{Quantity: testutil.IntPtr(4)})
	assert.ErrorIs(t, err, domain.ErrMissingTenant)
	assert.ErrorIs(t, c.DeleteItem(context.Background(), "1"), domain.ErrMissingTenant)

	assert.Equal(t, 1, gw.Calls("list_items"), "only the initial refresh")
	assert.Zero(t, gw.Calls("create_item"))
	assert.Zero(t, gw.Calls("update_item"))
	assert.Zero(t, gw.Calls("delete_item"))
}

func TestRefreshSession_SkipsEndedSession(t *testing.T) {
	gw := testutil.NewMockGateway()
	gw.SetItems(testutil.TenantA, testutil.SeedItems()...)
	c := newTestCache(gw)

	epoch := c.Initialize(testutil.TenantA)
	c.Reset()
	require.NoError(t, c.RefreshSession(context.Background(), epoch))

	second := c.Initialize(testutil.TenantA)
	require.NoError(t, c.RefreshSession(context.Background(), epoch))
	assert.Zero(t, gw.Calls("list_items"))
	assert.Equal(t, StatusIdle, c.Snapshot().Status)

	require.NoError(t, c.RefreshSession(context.Background(), second))
	assert.Equal(t, 1, gw.Calls("list_items"))
	assert.Equal(t, StatusReady, c.Snapshot().Status)
}

func TestRefresh_SanitizesItems(t *testing.T) {
	gw := testutil.NewMockGateway()
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		return []domain.InventoryItem{
			{ID: "1", Name: "Seed A", Category: domain.CategorySeeds, Quantity: 5, Threshold: 10},
			{ID: "1", Name: "Seed A copy", Category: domain.CategorySeeds, Quantity: 9, Threshold: 10},
			{ID: "2", Name: "Broken", Category: domain.CategoryTools, Quantity: -1, Threshold: 0},
			{ID: "", Name: "No id", Category: domain.CategoryTools},
		}, nil
	}
	c := newTestCache(gw)
	c.Initialize(testutil.TenantA)

	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Seed A", snap.Items[0].Name)
	assert.Equal(t, testutil.TenantA, snap.Items[0].TenantID)
}

func TestMissingTenant_FailsFastWithoutCalls(t *testing.T) {
	gw := testutil.NewMockGateway()
	c := newTestCache(gw)
	ctx := context.Background()

	assert.ErrorIs(t, c.Refresh(ctx), domain.ErrMissingTenant)
	_, err := c.AddItem(ctx, testutil.NewTestDraft())
	assert.ErrorIs(t, err, domain.ErrMissingTenant)
	_, err = c.UpdateItem(ctx, "1", domain.Patch{Quantity: testutil.IntPtr(1)})
	assert.ErrorIs(t, err, domain.ErrMissingTenant)
	assert.ErrorIs(t, c.DeleteItem(ctx, "1"), domain.ErrMissingTenant)

	assert.Zero(t, gw.Calls("list_items"))
	assert.Zero(t, gw.Calls("create_item"))
	assert.Zero(t, gw.Calls("update_item"))
	assert.Zero(t, gw.Calls("delete_item"))
}

func TestAddItem_AppendsConfirmedItem(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)
	before := c.Snapshot()

	item, err := c.AddItem(context.Background(), domain.Draft{
		Name: "  Urea ", Category: "Fertilizers", Quantity: 40, Threshold: 10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Urea", item.Name)
	assert.Equal(t, domain.CategoryFertilizers, item.Category)

	snap := c.Snapshot()
	assert.Equal(t, []string{"1", "2", item.ID}, ids(snap.Items))
	assert.Equal(t, StatusReady, snap.Status)
	assert.Greater(t, snap.Version, before.Version)
	assert.Len(t, before.Items, 2, "published snapshots are never mutated")
}

func TestAddItem_FailureLeavesItemsUnchanged(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gw.CreateItemFunc = func(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
		return domain.InventoryItem{}, domain.NewServerRejected("duplicate name")
	}
	before := c.Snapshot()

	_, err := c.AddItem(context.Background(), testutil.NewTestDraft())
	assert.ErrorIs(t, err, domain.ErrServerRejected)
	assert.Equal(t, before, c.Snapshot())
}

func TestAddItem_InvalidDraftIsRejectedLocally(t *testing.T) {
	c, gw := readyCache(t)

	_, err := c.AddItem(context.Background(), domain.Draft{Name: "", Category: domain.CategorySeeds, Quantity: -2})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, gw.Calls("create_item"))
}

func TestAddItem_SendsTenant(t *testing.T) {
	c, gw := readyCache(t)
	var sent string
	gw.CreateItemFunc = func(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
		sent = tenantID
		return domain.InventoryItem{ID: "x", Name: draft.Name, Category: draft.Category}, nil
	}

	item, err := c.AddItem(context.Background(), testutil.NewTestDraft())
	require.NoError(t, err)
	assert.Equal(t, testutil.TenantA, sent)
	assert.Equal(t, testutil.TenantA, item.TenantID)
}

func TestMutation_InvalidConfirmedItemIsRejected(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gw.CreateItemFunc = func(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
		return domain.InventoryItem{ID: "", Name: draft.Name, Category: draft.Category, Quantity: draft.Quantity}, nil
	}
	gw.UpdateItemFunc = func(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error) {
		return testutil.NewTestItem(id, "Seed A", domain.CategorySeeds, -5, 10), nil
	}
	before := c.Snapshot()

	_, err := c.AddItem(context.Background(), testutil.NewTestDraft())
	assert.ErrorIs(t, err, domain.ErrServerRejected)

	_, err = c.UpdateItem(context.Background(), "1", domain.Patch{Quantity: testutil.IntPtr(3)})
	assert.ErrorIs(t, err, domain.ErrServerRejected)

	assert.Equal(t, before, c.Snapshot(), "invalid items are never cached")
}

func TestUpdateItem_ReplacesWithCanonicalValue(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gw.UpdateItemFunc = func(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error) {
		// the service rounds quantities; the cache must keep the server's value
		return testutil.NewTestItem(id, "Seed A", domain.CategorySeeds, 50, 10), nil
	}

	item, err := c.UpdateItem(context.Background(), "1", domain.Patch{Quantity: testutil.IntPtr(49)})
	require.NoError(t, err)
	assert.Equal(t, 50, item.Quantity)

	snap := c.Snapshot()
	assert.Equal(t, []string{"1", "2"}, ids(snap.Items))
	assert.Equal(t, 50, snap.Items[0].Quantity)
	assert.Empty(t, c.LowStockItems())
	assert.Equal(t, alerting.StatusAllInStock, c.Status())
}

func TestUpdateItem_UnknownIDFailsBeforeDispatch(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)

	_, err := c.UpdateItem(context.Background(), "missing", domain.Patch{Quantity: testutil.IntPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, gw.Calls("update_item"))
}

func TestUpdateItem_EmptyPatchIsValidationError(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)

	_, err := c.UpdateItem(context.Background(), "1", domain.Patch{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, gw.Calls("update_item"))
}

func TestUpdateItem_FailureLeavesItemsUnchanged(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gw.UpdateItemFunc = func(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error) {
		return domain.InventoryItem{}, domain.NewNetworkError("update_item", errors.New("reset by peer"))
	}
	before := c.Snapshot()

	_, err := c.UpdateItem(context.Background(), "1", domain.Patch{Quantity: testutil.IntPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, StatusReady, c.Snapshot().Status, "mutation failures never change status")
}

func TestDeleteItem_RemovesItem(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)

	require.NoError(t, c.DeleteItem(context.Background(), "1"))

	assert.Equal(t, []string{"2"}, ids(c.Snapshot().Items))
	assert.Equal(t, alerting.StatusAllInStock, c.Status())
}

func TestDeleteItem_FailureLeavesSnapshotUnchanged(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gw.DeleteItemFunc = func(ctx context.Context, tenantID, id string) error {
		return domain.NewServerRejected("item has open orders")
	}
	before := c.Snapshot()

	err := c.DeleteItem(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrServerRejected)
	assert.Equal(t, before, c.Snapshot())
}

func TestMutation_StaleResponseIsDiscarded(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gate := testutil.NewGate()
	gw.CreateItemFunc = func(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
		gate.Wait()
		return domain.InventoryItem{ID: "late", TenantID: tenantID, Name: draft.Name, Category: draft.Category}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.AddItem(context.Background(), testutil.NewTestDraft())
		done <- err
	}()
	<-gate.Entered()

	c.Initialize(testutil.TenantB)
	gate.Release()

	assert.ErrorIs(t, <-done, domain.ErrStaleResponse)
	snap := c.Snapshot()
	assert.Equal(t, testutil.TenantB, snap.TenantID)
	assert.Empty(t, snap.Items)
}

func TestMutationDuringRefresh_LaterResponseWins(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gate := testutil.NewGate()
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		gate.Wait()
		// the list was read before the create landed
		return testutil.SeedItems(), nil
	}

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-gate.Entered()

	item, err := c.AddItem(context.Background(), testutil.NewTestDraft())
	require.NoError(t, err)
	assert.Contains(t, ids(c.Snapshot().Items), item.ID)
	assert.Equal(t, StatusLoading, c.Snapshot().Status)

	gate.Release()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"1", "2"}, ids(c.Snapshot().Items))
}

func TestUpdateItem_UpsertsWhenRefreshRemovedItem(t *testing.T) {
	c, gw := readyCache(t, testutil.SeedItems()...)
	gate := testutil.NewGate()
	gw.UpdateItemFunc = func(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error) {
		gate.Wait()
		return testutil.NewTestItem(id, "Seed A", domain.CategorySeeds, 99, 10), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.UpdateItem(context.Background(), "1", domain.Patch{Quantity: testutil.IntPtr(99)})
		done <- err
	}()
	<-gate.Entered()

	gw.SetItems(testutil.TenantA, testutil.SeedItems()[1])
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, []string{"2"}, ids(c.Snapshot().Items))

	gate.Release()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"2", "1"}, ids(c.Snapshot().Items))
}

func TestSubscribe_ReceivesSnapshotsInOrder(t *testing.T) {
	gw := testutil.NewMockGateway()
	gw.SetItems(testutil.TenantA, testutil.SeedItems()...)
	c := newTestCache(gw)

	var mu sync.Mutex
	var received []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	})

	c.Initialize(testutil.TenantA)
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.DeleteItem(context.Background(), "2"))

	unsubscribe()
	unsubscribe()
	c.Initialize(testutil.TenantB)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 4)
	assert.Equal(t, StatusIdle, received[0].Status)
	assert.Equal(t, StatusLoading, received[1].Status)
	assert.Equal(t, StatusReady, received[2].Status)
	assert.Equal(t, []string{"1"}, ids(received[3].Items))
	for i := 1; i < len(received); i++ {
		assert.Greater(t, received[i].Version, received[i-1].Version)
	}
}

func TestSubscribe_ListenerMayCallBackIntoCache(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)

	var statuses []alerting.StockStatus
	c.Subscribe(func(s Snapshot) {
		statuses = append(statuses, c.DerivedFor(s).Status)
		if s.Status == StatusReady && len(s.Items) == 2 {
			// a synchronous mutation from a listener is queued, not deadlocked
			_ = c.DeleteItem(context.Background(), "1")
		}
	})

	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, []string{"2"}, ids(c.Snapshot().Items))
	assert.Equal(t, []alerting.StockStatus{
		alerting.StatusAttentionNeeded,
		alerting.StatusAttentionNeeded,
		alerting.StatusAllInStock,
	}, statuses)
}

func TestSubscribe_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)
	c.Subscribe(func(Snapshot) { panic("boom") })

	var got int
	c.Subscribe(func(Snapshot) { got++ })

	require.NoError(t, c.DeleteItem(context.Background(), "1"))
	assert.Equal(t, 1, got)
}

func TestDerivedAccessors_Scenario(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)

	low := c.LowStockItems()
	require.Len(t, low, 1)
	assert.Equal(t, "1", low[0].ID)

	suggestions := c.ReorderSuggestions()
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Order Seed A within 5 days if required", suggestions[0].Message)

	dist := c.StockDistribution()
	require.Len(t, dist, 2)
	assert.Equal(t, domain.CategorySeeds, dist[0].Category)
	assert.Equal(t, 1, dist[0].Value)
	assert.Equal(t, domain.CategoryEquipment, dist[1].Category)
	assert.Equal(t, 1, dist[1].Value)

	assert.Equal(t, alerting.StatusAttentionNeeded, c.Status())
}

func TestDerived_MemoizedPerSnapshot(t *testing.T) {
	c, _ := readyCache(t, testutil.SeedItems()...)

	first := c.Derived()
	second := c.Derived()
	require.NotEmpty(t, first.LowStock)
	assert.Same(t, &first.LowStock[0], &second.LowStock[0])

	require.NoError(t, c.DeleteItem(context.Background(), "2"))
	third := c.Derived()
	assert.NotSame(t, &first.LowStock[0], &third.LowStock[0])
}

func TestConfig_HorizonDays(t *testing.T) {
	gw := testutil.NewMockGateway()
	gw.SetItems(testutil.TenantA, testutil.SeedItems()...)
	c := New(gw, &Config{ReorderHorizonDays: 7}, nil, nil)
	c.Initialize(testutil.TenantA)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, "Order Seed A within 7 days if required", c.ReorderSuggestions()[0].Message)
}

func TestRefresh_HonoursContextViaGateway(t *testing.T) {
	gw := testutil.NewMockGateway()
	gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		<-ctx.Done()
		return nil, domain.NewNetworkError("list_items", ctx.Err())
	}
	c := newTestCache(gw)
	c.Initialize(testutil.TenantA)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, c.Refresh(ctx), domain.ErrNetwork)
	assert.Equal(t, StatusError, c.Snapshot().Status)
}
