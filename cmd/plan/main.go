package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"xelda/internal/config"
	"xelda/internal/storage"
)

// Monthly generation limits per plan.
var planLimits = map[string]int{
	"free":   10,
	"pro":    storage.UnlimitedGenerations,
	"expert": storage.UnlimitedGenerations,
}

func main() {
	var (
		email      = flag.String("email", "", "User email to update")
		plan       = flag.String("plan", "", "Plan to assign (free/pro/expert)")
		list       = flag.Bool("list", false, "List users")
		resetUsage = flag.Bool("reset-usage", false, "Reset the monthly generation counter")
	)
	flag.Parse()

	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required to manage plans")
	}

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect store: %v", err)
	}
	defer store.Close()

	if *list {
		if err := listUsers(ctx, store); err != nil {
			log.Fatalf("list users: %v", err)
		}
		return
	}

	if *email == "" {
		log.Fatal("email is required (use -email)")
	}

	user, err := store.GetUserByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("find user: %v", err)
	}

	if *resetUsage {
		if err := store.ResetUsage(ctx, user.ID); err != nil {
			log.Fatalf("reset usage: %v", err)
		}
		fmt.Printf("User %s (%s) usage reset\n", user.Email, user.ID)
		return
	}

	name := strings.ToLower(strings.TrimSpace(*plan))
	limit, ok := planLimits[name]
	if !ok {
		log.Fatalf("unknown plan %q (use free, pro or expert)", *plan)
	}

	if err := store.UpdateUserPlan(ctx, user.ID, name, limit); err != nil {
		log.Fatalf("update plan: %v", err)
	}
	fmt.Printf("User %s (%s) plan=%s limit=%d\n", user.Email, user.ID, name, limit)
}

func listUsers(ctx context.Context, store storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-40s %-8s %-10s %-30s\n", "ID", "PLAN", "USED", "EMAIL")
	for _, u := range users {
		used := fmt.Sprintf("%d", u.GenerationsUsed)
		if u.GenerationsLimit != storage.UnlimitedGenerations {
			used = fmt.Sprintf("%d/%d", u.GenerationsUsed, u.GenerationsLimit)
		}
		fmt.Printf("%-40s %-8s %-10s %-30s\n", u.ID, u.Plan, used, u.Email)
	}
	return nil
}
