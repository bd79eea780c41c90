// Command seed generates a deterministic venue catalog — malls, stores,
// and promotions — for local development and test fixtures. It writes
// JSON files and can optionally insert the catalog into the data service.
//
// Usage:
//
//	go run ./cmd/seed -out data/seed
//	go run ./cmd/seed -out data/seed -insert   # also inserts via SUPABASE_URL
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/plazafinder/mall-radar/internal/adapter/supabase"
	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/domain"
	"github.com/plazafinder/mall-radar/internal/observability"
)

// Fixed date so generated promotion windows are reproducible.
var baseDate = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for JSON fixtures")
	insert := flag.Bool("insert", false, "insert the catalog into the data service")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	malls := seedMalls()
	stores := seedStores()
	promos := seedPromotions()

	for _, f := range []struct {
		name string
		data any
	}{
		{"malls.json", malls},
		{"stores.json", stores},
		{"promotions.json", promos},
	} {
		path := filepath.Join(*out, f.name)
		if err := writeJSON(path, f.data); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		log.Printf("wrote %s", path)
	}
	log.Printf("catalog: %d malls, %d stores, %d promotions", len(malls), len(stores), len(promos))

	if *insert {
		return insertCatalog(malls, stores, promos)
	}
	return nil
}

func seedMalls() []domain.Mall {
	return []domain.Mall{
		{
			ID: "a0000000-0000-4000-8000-000000000001", Name: "Centro Plaza",
			Address: "Av Juarez 100", City: "Ciudad de Mexico",
			Geo:        domain.GeoPoint{Lat: 19.4326, Lon: -99.1332},
			Categories: []string{"fashion", "food", "entertainment"},
		},
		{
			ID: "a0000000-0000-4000-8000-000000000002", Name: "Plaza Norte Shopping",
			Address: "Av Lindavista Norte 400", City: "Ciudad de Mexico",
			Geo:        domain.GeoPoint{Lat: 19.4895, Lon: -99.1272},
			Categories: []string{"fashion", "electronics"},
		},
		{
			ID: "a0000000-0000-4000-8000-000000000003", Name: "Galerias Toluca",
			Address: "Blvd Miguel Aleman 80", City: "Toluca",
			Geo:        domain.GeoPoint{Lat: 19.2926, Lon: -99.6557},
			Categories: []string{"food", "home"},
		},
		{
			ID: "a0000000-0000-4000-8000-000000000004", Name: "Angelopolis Center",
			Address: "Blvd del Nino Poblano 2510", City: "Puebla",
			Geo:        domain.GeoPoint{Lat: 19.0333, Lon: -98.2277},
			Categories: []string{"fashion", "food", "cinema"},
		},
	}
}

func seedStores() []domain.Store {
	return []domain.Store{
		{
			ID: "b0000000-0000-4000-8000-000000000001", MallID: "a0000000-0000-4000-8000-000000000001",
			Name: "Cafe Aroma", Description: "specialty coffee and pastries",
			Floor: "1", Categories: []string{"food"},
		},
		{
			ID: "b0000000-0000-4000-8000-000000000002", MallID: "a0000000-0000-4000-8000-000000000001",
			Name: "Sneaker Loft", Description: "athletic footwear and streetwear",
			Floor: "2", Categories: []string{"fashion"},
		},
		{
			ID: "b0000000-0000-4000-8000-000000000003", MallID: "a0000000-0000-4000-8000-000000000002",
			Name: "Volt Electronics", Description: "phones, laptops, accessories",
			Floor: "1", Categories: []string{"electronics"},
		},
		{
			ID: "b0000000-0000-4000-8000-000000000004", MallID: "a0000000-0000-4000-8000-000000000002",
			Name: "Juice Bar", Description: "fresh juice and smoothies",
			Floor: "3", Categories: []string{"food"},
		},
	}
}

func seedPromotions() []domain.Promotion {
	return []domain.Promotion{
		{
			ID:      "c0000000-0000-4000-8000-000000000001",
			StoreID: "b0000000-0000-4000-8000-000000000001", MallID: "a0000000-0000-4000-8000-000000000001",
			MallName: "Centro Plaza", Title: "2x1 Coffee Mornings",
			Description: "two espressos for the price of one before noon",
			Geo:         domain.GeoPoint{Lat: 19.4326, Lon: -99.1332},
			StartDate:   baseDate, EndDate: baseDate.AddDate(0, 1, 0),
		},
		{
			ID:      "c0000000-0000-4000-8000-000000000002",
			StoreID: "b0000000-0000-4000-8000-000000000003", MallID: "a0000000-0000-4000-8000-000000000002",
			MallName: "Plaza Norte Shopping", Title: "Laptop Week",
			Description: "15% off all laptops",
			Geo:         domain.GeoPoint{Lat: 19.4895, Lon: -99.1272},
			StartDate:   baseDate.AddDate(0, 0, 7), EndDate: baseDate.AddDate(0, 0, 14),
		},
		{
			// Already expired relative to baseDate, for testing the active filter.
			ID:      "c0000000-0000-4000-8000-000000000003",
			StoreID: "b0000000-0000-4000-8000-000000000004", MallID: "a0000000-0000-4000-8000-000000000002",
			MallName: "Plaza Norte Shopping", Title: "New Year Smoothies",
			Description: "seasonal flavors",
			Geo:         domain.GeoPoint{Lat: 19.4895, Lon: -99.1272},
			StartDate:   baseDate.AddDate(0, -2, 0), EndDate: baseDate.AddDate(0, -1, 0),
		},
	}
}

func insertCatalog(malls []domain.Mall, stores []domain.Store, promos []domain.Promotion) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting()
	client := supabase.NewClient(cfg, logger, metrics)
	mallRepo := supabase.NewMallRepository(client)
	storeRepo := supabase.NewStoreRepository(client)
	promoRepo := supabase.NewPromotionRepository(client)

	ctx := context.Background()
	for _, m := range malls {
		if _, err := mallRepo.CreateMall(ctx, m); err != nil {
			return fmt.Errorf("inserting mall %s: %w", m.Name, err)
		}
		log.Printf("inserted mall %s", m.Name)
	}
	for _, s := range stores {
		if _, err := storeRepo.CreateStore(ctx, s); err != nil {
			return fmt.Errorf("inserting store %s: %w", s.Name, err)
		}
		log.Printf("inserted store %s", s.Name)
	}
	for _, p := range promos {
		if _, err := promoRepo.CreatePromotion(ctx, p); err != nil {
			return fmt.Errorf("inserting promotion %s: %w", p.Title, err)
		}
		log.Printf("inserted promotion %s", p.Title)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
