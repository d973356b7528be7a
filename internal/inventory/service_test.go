package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/pkg/config"
	dbpkg "github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *dbpkg.Client) {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := dbpkg.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&models.Listing{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewService(NewRepository(client.DB()), nil), client
}

func seedListing(t *testing.T, client *dbpkg.Client, available int) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:                uuid.New(),
		AgentID:           uuid.New(),
		SellingPrice:      decimal.NewFromInt(1200),
		DeliveryFee:       decimal.NewFromInt(100),
		AvailableQuantity: available,
		IsAvailable:       true,
	}
	if err := client.DB().Create(listing).Error; err != nil {
		t.Fatalf("seeding listing: %v", err)
	}
	return listing
}

func reloadListing(t *testing.T, client *dbpkg.Client, id uuid.UUID) models.Listing {
	t.Helper()
	var listing models.Listing
	if err := client.DB().Where("id = ?", id).First(&listing).Error; err != nil {
		t.Fatalf("reloading listing: %v", err)
	}
	return listing
}

func TestReserveMovesStockToReserved(t *testing.T) {
	svc, client := newTestService(t)
	listing := seedListing(t, client, 5)

	if err := svc.Reserve(context.Background(), listing.ID, 2); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	got := reloadListing(t, client, listing.ID)
	if got.AvailableQuantity != 3 {
		t.Fatalf("expected available 3, got %d", got.AvailableQuantity)
	}
	if got.ReservedQuantity != 2 {
		t.Fatalf("expected reserved 2, got %d", got.ReservedQuantity)
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	svc, client := newTestService(t)
	listing := seedListing(t, client, 1)

	err := svc.Reserve(context.Background(), listing.ID, 2)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	got := reloadListing(t, client, listing.ID)
	if got.AvailableQuantity != 1 || got.ReservedQuantity != 0 {
		t.Fatalf("stock must be untouched on failure, got available=%d reserved=%d",
			got.AvailableQuantity, got.ReservedQuantity)
	}
}

func TestReserveUnavailableListing(t *testing.T) {
	svc, client := newTestService(t)
	listing := seedListing(t, client, 5)
	if err := client.DB().Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Update("is_available", false).Error; err != nil {
		t.Fatalf("updating listing: %v", err)
	}

	err := svc.Reserve(context.Background(), listing.ID, 1)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReserveMissingListing(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Reserve(context.Background(), uuid.New(), 1)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommitFinalizesReservation(t *testing.T) {
	svc, client := newTestService(t)
	listing := seedListing(t, client, 5)

	if err := svc.Reserve(context.Background(), listing.ID, 2); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := svc.Commit(context.Background(), listing.ID, 2); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	got := reloadListing(t, client, listing.ID)
	if got.AvailableQuantity != 3 || got.ReservedQuantity != 0 {
		t.Fatalf("unexpected stock after commit available=%d reserved=%d",
			got.AvailableQuantity, got.ReservedQuantity)
	}
	if got.TotalOrders != 1 {
		t.Fatalf("expected total_orders 1, got %d", got.TotalOrders)
	}
}

func TestCommitWithoutReservationFails(t *testing.T) {
	svc, client := newTestService(t)
	listing := seedListing(t, client, 5)

	err := svc.Commit(context.Background(), listing.ID, 1)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReleaseRestoresReservedStock(t *testing.T) {
	svc, client := newTestService(t)
	listing := seedListing(t, client, 5)

	if err := svc.Reserve(context.Background(), listing.ID, 3); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := svc.Release(context.Background(), listing.ID, 3); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	got := reloadListing(t, client, listing.ID)
	if got.AvailableQuantity != 5 || got.ReservedQuantity != 0 {
		t.Fatalf("unexpected stock after release available=%d reserved=%d",
			got.AvailableQuantity, got.ReservedQuantity)
	}
}

func TestReleaseAfterCommitRestoresAvailabilityOnly(t *testing.T) {
	svc, client := newTestService(t)
	listing := seedListing(t, client, 5)

	if err := svc.Reserve(context.Background(), listing.ID, 2); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := svc.Commit(context.Background(), listing.ID, 2); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := svc.Release(context.Background(), listing.ID, 2); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	got := reloadListing(t, client, listing.ID)
	if got.AvailableQuantity != 5 {
		t.Fatalf("expected available 5, got %d", got.AvailableQuantity)
	}
	if got.ReservedQuantity != 0 {
		t.Fatalf("reserved must not go negative, got %d", got.ReservedQuantity)
	}
}
