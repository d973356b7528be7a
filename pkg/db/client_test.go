package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
)

func newTestClient(t *testing.T) (*Client, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Wallet{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return &Client{conn: conn}, conn
}

func newWallet() *models.Wallet {
	return &models.Wallet{ID: uuid.New(), AgentID: uuid.New()}
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client, conn := newTestClient(t)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(newWallet()).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := conn.Model(&models.Wallet{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 wallet, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(newWallet()).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := conn.Model(&models.Wallet{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 wallet, got %d", count)
	}
}

func TestIsUniqueViolationDetectsDuplicateAgentWallet(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	wallet := newWallet()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(wallet).Error
	}); err != nil {
		t.Fatalf("creating wallet: %v", err)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Wallet{ID: uuid.New(), AgentID: wallet.AgentID}).Error
	})
	if err == nil {
		t.Fatal("expected duplicate agent wallet to fail")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
