package storage

import (
	"context"
	"errors"
	"testing"
)

func TestCreateUserDefaultsToFreePlan(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, User{Email: "a@example.com", Username: "a", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("no id assigned")
	}
	if user.Plan != "free" || user.GenerationsLimit != 10 {
		t.Fatalf("defaults = %s/%d", user.Plan, user.GenerationsLimit)
	}

	if _, err := store.CreateUser(ctx, User{Email: "A@Example.com"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate email err = %v", err)
	}
}

func TestUsageCounters(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	user, _ := store.CreateUser(ctx, User{Email: "a@example.com"})
	for i := 0; i < 3; i++ {
		if err := store.IncrementUsage(ctx, user.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	reloaded, _ := store.GetUserByID(ctx, user.ID)
	if reloaded.GenerationsUsed != 3 {
		t.Fatalf("used = %d", reloaded.GenerationsUsed)
	}
	quota := reloaded.Quota()
	if quota.Used != 3 || quota.Limit != 10 || quota.Plan != "free" {
		t.Fatalf("quota = %+v", quota)
	}

	if err := store.ResetUsage(ctx, user.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	reloaded, _ = store.GetUserByID(ctx, user.ID)
	if reloaded.GenerationsUsed != 0 {
		t.Fatalf("used after reset = %d", reloaded.GenerationsUsed)
	}
}

func TestUpdateUserPlan(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	user, _ := store.CreateUser(ctx, User{Email: "a@example.com"})
	if err := store.UpdateUserPlan(ctx, user.ID, "pro", UnlimitedGenerations); err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, _ := store.GetUserByID(ctx, user.ID)
	if reloaded.Plan != "pro" || reloaded.GenerationsLimit != UnlimitedGenerations {
		t.Fatalf("plan = %s/%d", reloaded.Plan, reloaded.GenerationsLimit)
	}

	if err := store.UpdateUserPlan(ctx, "missing", "pro", -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}

func TestDesignLifecycle(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	first, err := store.SaveDesign(ctx, DesignRecord{OwnerID: "u1", Name: "Salon", StyleID: "Modern"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, _ := store.SaveDesign(ctx, DesignRecord{OwnerID: "u1", Name: "Chambre", StyleID: "Cozy"})
	_, _ = store.SaveDesign(ctx, DesignRecord{OwnerID: "u2", Name: "Autre", StyleID: "Vintage"})

	mine, err := store.ListDesigns(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("mine = %d", len(mine))
	}
	// Newest first.
	if mine[0].ID != second.ID {
		t.Fatalf("order = %s, %s", mine[0].Name, mine[1].Name)
	}

	published, _ := store.ListPublished(ctx)
	if len(published) != 0 {
		t.Fatalf("published before publish = %d", len(published))
	}

	if err := store.PublishDesign(ctx, first.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	published, _ = store.ListPublished(ctx)
	if len(published) != 1 || published[0].ID != first.ID {
		t.Fatalf("published = %+v", published)
	}

	if err := store.LikeDesign(ctx, first.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := store.AddView(ctx, first.ID); err != nil {
		t.Fatalf("view: %v", err)
	}
	got, _ := store.GetDesign(ctx, first.ID)
	if got.LikeCount != 1 || got.ViewCount != 1 {
		t.Fatalf("counters = %d/%d", got.LikeCount, got.ViewCount)
	}

	if err := store.DeleteDesign(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetDesign(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted design err = %v", err)
	}
}
