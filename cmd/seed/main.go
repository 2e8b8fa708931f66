// Package main seeds a shelfkeeper database with a demo library.
//
// It creates (or reuses) a demo account and files a handful of series with
// volumes in assorted ownership and reading states, plus a few unassigned
// volumes.
//
// Usage:
//
//	DATA_PATH=~/shelfkeeper go run ./cmd/seed
//	go run ./cmd/seed -data-path ./data -email demo@example.com -password demo-password
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/shelfkeeper/shelfkeeper/internal/auth"
	"github.com/shelfkeeper/shelfkeeper/internal/config"
	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/errors"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/service"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
	"github.com/shelfkeeper/shelfkeeper/internal/validation"
)

var (
	dataPath = flag.String("data-path", "", "Data directory (default: $DATA_PATH or ~/shelfkeeper)")
	email    = flag.String("email", "demo@example.com", "Demo account email")
	password = flag.String("password", "demo-password", "Demo account password")
)

type seedVolume struct {
	number    float64
	ownership domain.OwnershipStatus
	progress  domain.ProgressStatus
	rating    float64
}

type seedSeries struct {
	title       string
	creator     string
	category    string
	description string
	tags        []string
	status      domain.CollectionStatus
	volumes     []seedVolume
}

var demoSeries = []seedSeries{
	{
		title:       "Berserk",
		creator:     "Kentaro Miura",
		category:    "Manga",
		description: "<p>A lone mercenary and the <em>Band of the Hawk</em>.</p>",
		tags:        []string{"seinen", "dark fantasy"},
		status:      domain.CollectionStatusOngoing,
		volumes: []seedVolume{
			{1, domain.OwnershipOwned, domain.ProgressRead, 9},
			{2, domain.OwnershipOwned, domain.ProgressRead, 9},
			{3, domain.OwnershipOwned, domain.ProgressReading, 0},
			{4, domain.OwnershipWishlist, domain.ProgressUnread, 0},
		},
	},
	{
		title:    "Akira",
		creator:  "Katsuhiro Otomo",
		category: "Manga",
		tags:     []string{"seinen", "cyberpunk"},
		status:   domain.CollectionStatusCompleted,
		volumes: []seedVolume{
			{1, domain.OwnershipOwned, domain.ProgressRead, 10},
			{2, domain.OwnershipOwned, domain.ProgressRead, 8},
			{3, domain.OwnershipOwned, domain.ProgressRead, 8},
			{4, domain.OwnershipOwned, domain.ProgressRead, 9},
			{5, domain.OwnershipOwned, domain.ProgressRead, 9},
			{6, domain.OwnershipOwned, domain.ProgressRead, 10},
		},
	},
	{
		title:    "Claymore",
		creator:  "Norihiro Yagi",
		category: "Manga",
		tags:     []string{"shonen", "dark fantasy"},
		status:   domain.CollectionStatusCompleted,
		volumes: []seedVolume{
			{1, domain.OwnershipOwned, domain.ProgressUnread, 0},
			{2, domain.OwnershipPreordered, domain.ProgressUnread, 0},
		},
	},
	{
		title:       "The Stormlight Archive",
		creator:     "Brandon Sanderson",
		category:    "Novel",
		description: "<h2>Epic fantasy</h2><p>Set on the world of <strong>Roshar</strong>.</p>",
		tags:        []string{"fantasy", "epic"},
		status:      domain.CollectionStatusOngoing,
		volumes: []seedVolume{
			{1, domain.OwnershipOwned, domain.ProgressRead, 10},
			{2, domain.OwnershipOwned, domain.ProgressDropped, 6},
			{2.5, domain.OwnershipForSale, domain.ProgressRead, 7},
		},
	},
	{
		title:    "Kingdom Hearts",
		creator:  "Shiro Amano",
		category: "Manga",
		tags:     []string{"shonen"},
		status:   domain.CollectionStatusHiatus,
	},
}

var demoUnassigned = []string{"Pluto Vol. 1", "Dorohedoro Vol. 1", "Vinland Saga Vol. 1"}

func main() {
	flag.Parse()

	path := *dataPath
	if path == "" {
		path = os.Getenv("DATA_PATH")
	}
	if path == "" {
		path = "~/shelfkeeper"
	}
	path, err := homedir.Expand(path)
	if err != nil {
		log.Fatalf("Invalid data path: %v", err)
	}
	dbPath := config.StoreConfig{DataPath: path}.DBPath()

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, logger.Discard(), store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := seed(ctx, s); err != nil {
		s.Close()
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println("\nSeeding complete!")
}

func seed(ctx context.Context, s *store.Store) error {
	keyHex, err := auth.GenerateKey()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(keyHex, time.Hour)
	if err != nil {
		return err
	}

	v := validation.New()
	authService := service.NewAuthService(s, tokens, auth.NewHasher(auth.DefaultArgon2Params), v, nil)
	collections := service.NewCollectionService(s, v, nil, nil)
	items := service.NewItemService(s, v, nil, nil)

	owner, err := demoUser(ctx, authService)
	if err != nil {
		return err
	}
	fmt.Printf("Seeding library for: %s (%s)\n", owner.Email, owner.ID)

	existing, err := collections.List(ctx, owner.ID, service.ListCollectionsRequest{Limit: 1})
	if err != nil {
		return err
	}
	if existing.Total > 0 {
		fmt.Printf("  Account already has %d collections, skipping\n", existing.Total)
		return nil
	}

	for _, series := range demoSeries {
		req := service.CreateCollectionRequest{
			Title:       series.title,
			Creator:     series.creator,
			Description: series.description,
			Category:    series.category,
			Tags:        series.tags,
			Status:      series.status,
		}
		for _, vol := range series.volumes {
			req.Items = append(req.Items, volumeRequest(series.title, vol))
		}

		created, err := collections.Create(ctx, owner.ID, req)
		if err != nil {
			return fmt.Errorf("create %q: %w", series.title, err)
		}
		fmt.Printf("  Created %s with %d volumes\n", created.Title, len(created.Items))
	}

	for _, title := range demoUnassigned {
		if _, err := items.Create(ctx, owner.ID, service.CreateItemRequest{Title: title, Number: 1}); err != nil {
			return fmt.Errorf("create %q: %w", title, err)
		}
	}
	fmt.Printf("  Created %d unassigned volumes\n", len(demoUnassigned))

	return nil
}

func demoUser(ctx context.Context, authService *service.AuthService) (*domain.User, error) {
	resp, err := authService.Register(ctx, service.RegisterRequest{
		Email:       *email,
		Password:    *password,
		DisplayName: "Demo Reader",
	})
	if errors.Is(err, errors.ErrAlreadyExists) {
		resp, err = authService.Login(ctx, service.LoginRequest{Email: *email, Password: *password})
	}
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func volumeRequest(series string, vol seedVolume) service.CreateItemRequest {
	req := service.CreateItemRequest{
		Title:     fmt.Sprintf("%s Vol. %g", series, vol.number),
		Number:    vol.number,
		Ownership: vol.ownership,
		Progress:  vol.progress,
	}
	if vol.rating > 0 {
		rating := vol.rating
		req.Rating = &rating
	}
	if vol.ownership == domain.OwnershipOwned {
		purchased := time.Now().AddDate(0, 0, -int(vol.number*30)).UTC()
		req.PurchasedAt = &purchased
	}
	return req
}
