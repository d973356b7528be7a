package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/internal/inventory"
	"github.com/gaslink-africa/gaslink-backend/internal/wallet"
	"github.com/gaslink-africa/gaslink-backend/pkg/config"
	dbpkg "github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/outbox"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

func newTestService(t *testing.T) (*Service, *dbpkg.Client) {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := dbpkg.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(
		&models.Listing{}, &models.Order{}, &models.Wallet{},
		&models.WalletTransaction{}, &models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	svc := NewService(
		client,
		NewRepository(client.DB()),
		inventory.NewService(inventory.NewRepository(client.DB()), nil),
		wallet.NewService(wallet.NewRepository(client.DB()), nil),
		outbox.NewService(outbox.NewRepository(client.DB()), nil),
		nil,
	)
	return svc, client
}

func seedOrder(t *testing.T, client *dbpkg.Client, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     fmt.Sprintf("ORD260830-%s", uuid.NewString()[:8]),
		CustomerID:      uuid.New(),
		AgentID:         uuid.New(),
		ListingID:       uuid.New(),
		Quantity:        2,
		UnitPrice:       decimal.NewFromInt(1200),
		TotalPrice:      decimal.NewFromInt(2400),
		DeliveryFee:     decimal.NewFromInt(100),
		GrandTotal:      decimal.NewFromInt(2500),
		DeliveryAddress: "14 Moi Avenue, Nakuru",
		Status:          status,
		PaymentStatus:   enums.OrderPaymentStatusPending,
		PaymentMethod:   enums.PaymentMethodCash,
	}
	if err := client.DB().Create(order).Error; err != nil {
		t.Fatalf("seeding order: %v", err)
	}
	return order
}

func agentOf(order *models.Order) types.Principal {
	return types.Principal{UserID: order.AgentID, Role: enums.ActorRoleAgent}
}

func customerOf(order *models.Order) types.Principal {
	return types.Principal{UserID: order.CustomerID, Role: enums.ActorRoleCustomer}
}

func TestUpdateStatusConfirm(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusPending)

	notes := "confirmed, dispatch tomorrow"
	updated, err := svc.UpdateStatusByAgent(context.Background(), agentOf(order), order.ID, UpdateStatusInput{
		Target:     enums.OrderStatusConfirmed,
		AgentNotes: &notes,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}
	if updated.AgentNotes == nil || *updated.AgentNotes != notes {
		t.Fatalf("expected agent notes recorded")
	}
}

func TestUpdateStatusInvalidTransitionLeavesOrderUnchanged(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusPending)

	_, err := svc.UpdateStatusByAgent(context.Background(), agentOf(order), order.ID, UpdateStatusInput{
		Target: enums.OrderStatusDelivered,
	})
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var got models.Order
	if err := client.DB().Where("id = ?", order.ID).First(&got).Error; err != nil {
		t.Fatalf("reloading order: %v", err)
	}
	if got.Status != enums.OrderStatusPending {
		t.Fatalf("status must be unchanged, got %s", got.Status)
	}
}

func TestUpdateStatusRejectsForeignAgent(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusPending)

	stranger := types.Principal{UserID: uuid.New(), Role: enums.ActorRoleAgent}
	_, err := svc.UpdateStatusByAgent(context.Background(), stranger, order.ID, UpdateStatusInput{
		Target: enums.OrderStatusConfirmed,
	})
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeliveredCreditsAgentWallet(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusDispatched)

	updated, err := svc.UpdateStatusByAgent(context.Background(), agentOf(order), order.ID, UpdateStatusInput{
		Target: enums.OrderStatusDelivered,
	})
	if err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if updated.DeliveredAt == nil {
		t.Fatalf("delivered_at must be stamped")
	}

	var agentWallet models.Wallet
	if err := client.DB().Where("agent_id = ?", order.AgentID).First(&agentWallet).Error; err != nil {
		t.Fatalf("wallet not created: %v", err)
	}
	if !agentWallet.Balance.Equal(order.GrandTotal) {
		t.Fatalf("expected balance %s, got %s", order.GrandTotal, agentWallet.Balance)
	}

	// A replayed delivery attempt hits a terminal order and must not credit again.
	_, err = svc.UpdateStatusByAgent(context.Background(), agentOf(order), order.ID, UpdateStatusInput{
		Target: enums.OrderStatusDelivered,
	})
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict on replay, got %v", err)
	}

	if err := client.DB().Where("agent_id = ?", order.AgentID).First(&agentWallet).Error; err != nil {
		t.Fatalf("reloading wallet: %v", err)
	}
	if !agentWallet.Balance.Equal(order.GrandTotal) {
		t.Fatalf("replay must not double-credit, got %s", agentWallet.Balance)
	}
}

func TestAgentCancelFromConfirmedReleasesStock(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusConfirmed)

	listing := &models.Listing{
		ID:                order.ListingID,
		AgentID:           order.AgentID,
		SellingPrice:      decimal.NewFromInt(1200),
		DeliveryFee:       decimal.NewFromInt(100),
		AvailableQuantity: 3,
		ReservedQuantity:  2,
		IsAvailable:       true,
	}
	if err := client.DB().Create(listing).Error; err != nil {
		t.Fatalf("seeding listing: %v", err)
	}

	reason := "out of cylinders"
	if _, err := svc.UpdateStatusByAgent(context.Background(), agentOf(order), order.ID, UpdateStatusInput{
		Target:             enums.OrderStatusCancelled,
		CancellationReason: &reason,
	}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	var got models.Listing
	if err := client.DB().Where("id = ?", listing.ID).First(&got).Error; err != nil {
		t.Fatalf("reloading listing: %v", err)
	}
	if got.AvailableQuantity != 5 || got.ReservedQuantity != 0 {
		t.Fatalf("expected released stock, got available=%d reserved=%d",
			got.AvailableQuantity, got.ReservedQuantity)
	}
}

func TestAddRatingOnceOnDelivered(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusDelivered)

	review := "quick delivery"
	rated, err := svc.AddRating(context.Background(), customerOf(order), order.ID, 5, &review)
	if err != nil {
		t.Fatalf("rating failed: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 5 {
		t.Fatalf("expected rating 5, got %v", rated.Rating)
	}
	if rated.Review == nil || *rated.Review != review {
		t.Fatalf("expected review persisted")
	}

	_, err = svc.AddRating(context.Background(), customerOf(order), order.ID, 4, nil)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("second rating must fail, got %v", err)
	}

	var got models.Order
	if err := client.DB().Where("id = ?", order.ID).First(&got).Error; err != nil {
		t.Fatalf("reloading order: %v", err)
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Fatalf("first rating must survive, got %v", got.Rating)
	}
}

func TestAddRatingRequiresDelivered(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusDispatched)

	_, err := svc.AddRating(context.Background(), customerOf(order), order.ID, 3, nil)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAddRatingValidatesRange(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusDelivered)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.AddRating(context.Background(), customerOf(order), order.ID, rating, nil)
		typed := apperrors.As(err)
		if typed == nil || typed.Code() != apperrors.CodeValidation {
			t.Fatalf("rating %d must fail validation, got %v", rating, err)
		}
	}
}

func TestGetByIDOwnerVisibility(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusPending)

	if _, err := svc.GetByID(context.Background(), customerOf(order), order.ID); err != nil {
		t.Fatalf("customer must see own order: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), agentOf(order), order.ID); err != nil {
		t.Fatalf("agent must see own order: %v", err)
	}

	stranger := types.Principal{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err := svc.GetByID(context.Background(), stranger, order.ID)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Fatalf("stranger must get not found, got %v", err)
	}
}

func TestListFiltersBySideAndStatus(t *testing.T) {
	svc, client := newTestService(t)
	order := seedOrder(t, client, enums.OrderStatusPending)
	other := seedOrder(t, client, enums.OrderStatusConfirmed)

	rows, next, err := svc.List(context.Background(), customerOf(order), ListParams{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != order.ID {
		t.Fatalf("customer list must only contain own orders")
	}
	if next != "" {
		t.Fatalf("single page must not return a cursor")
	}

	rows, _, err = svc.List(context.Background(), agentOf(other), ListParams{Status: "confirmed"})
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != other.ID {
		t.Fatalf("status filter must match seeded order")
	}

	if _, _, err := svc.List(context.Background(), customerOf(order), ListParams{Status: "bogus"}); err == nil {
		t.Fatalf("invalid status filter must fail")
	}
}
