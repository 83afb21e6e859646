package repository

import (
	"testing"

	"gorm.io/gorm"

	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/testutil"
)

// ========== 品牌查询 ==========

func TestGetByKeySkipsInactive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBrandRepository(db)

	brand := testutil.SeedBrand(t, db, "acme", "Acme")

	got, err := repo.GetByKey("acme")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if got.ID != brand.ID {
		t.Errorf("Expected brand %d, got %d", brand.ID, got.ID)
	}

	// 下线后按 key 查不到
	if err := db.Model(brand).Update("is_active", false).Error; err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	_, err = repo.GetByKey("acme")
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("Expected ErrRecordNotFound for inactive brand, got %v", err)
	}
}

func TestListActiveOnly(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBrandRepository(db)

	testutil.SeedBrand(t, db, "acme", "Acme")
	inactive := testutil.SeedBrand(t, db, "retired", "Retired")
	if err := db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	all, err := repo.List(false)
	if err != nil {
		t.Fatalf("List(false) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 brands, got %d", len(all))
	}

	active, err := repo.List(true)
	if err != nil {
		t.Fatalf("List(true) failed: %v", err)
	}
	if len(active) != 1 || active[0].BrandKey != "acme" {
		t.Errorf("Expected only acme, got %+v", active)
	}
}

// ========== 收件人 ==========

func TestActiveRecipientEmails(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBrandRepository(db)
	brand := testutil.SeedBrand(t, db, "acme", "Acme")

	recipients := []*model.BrandRecipient{
		{BrandID: brand.ID, Email: "a@example.com", IsActive: true},
		{BrandID: brand.ID, Email: "b@example.com", IsActive: true},
		{BrandID: brand.ID, Email: "paused@example.com", IsActive: false},
	}
	for _, rec := range recipients {
		if err := repo.AddRecipient(rec); err != nil {
			t.Fatalf("AddRecipient failed: %v", err)
		}
	}

	emails, err := repo.ActiveRecipientEmails(brand.ID)
	if err != nil {
		t.Fatalf("ActiveRecipientEmails failed: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("Expected 2 active emails, got %d: %v", len(emails), emails)
	}
	for _, email := range emails {
		if email == "paused@example.com" {
			t.Error("Inactive recipient leaked into the list")
		}
	}
}

func TestRecipientLifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBrandRepository(db)
	brand := testutil.SeedBrand(t, db, "acme", "Acme")

	rec := &model.BrandRecipient{BrandID: brand.ID, Email: "ops@example.com", Name: "Ops", IsActive: true}
	if err := repo.AddRecipient(rec); err != nil {
		t.Fatalf("AddRecipient failed: %v", err)
	}

	rec.IsActive = false
	if err := repo.UpdateRecipient(rec); err != nil {
		t.Fatalf("UpdateRecipient failed: %v", err)
	}
	got, err := repo.GetRecipient(rec.ID)
	if err != nil {
		t.Fatalf("GetRecipient failed: %v", err)
	}
	if got.IsActive {
		t.Error("Expected recipient to be deactivated")
	}

	if err := repo.RemoveRecipient(rec.ID); err != nil {
		t.Fatalf("RemoveRecipient failed: %v", err)
	}
	if _, err := repo.GetRecipient(rec.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("Expected ErrRecordNotFound after removal, got %v", err)
	}
}
