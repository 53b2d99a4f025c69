package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DemoProducts mirrors the rows inserted by the seed migration so the in-memory backend
// serves the same catalog as a freshly migrated database.
var DemoProducts = []Product{
	{
		ID:          uuid.MustParse("6f1c2a52-7d0e-4c3b-9a51-0d2f9b6a1001"),
		Title:       "Noise-Canceling Wireless Headphones X9",
		Price:       199.99,
		Description: "Over-ear Bluetooth headphones with active noise cancellation and 40-hour battery life.",
		Image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e",
	},
	{
		ID:          uuid.MustParse("6f1c2a52-7d0e-4c3b-9a51-0d2f9b6a1002"),
		Title:       "UltraLight Mechanical Keyboard Pro",
		Price:       129.00,
		Description: "Hot-swappable mechanical keyboard with RGB backlight and low-latency wired mode.",
		Image:       "https://images.unsplash.com/photo-1511467687858-23d96c32e4ae",
	},
	{
		ID:          uuid.MustParse("6f1c2a52-7d0e-4c3b-9a51-0d2f9b6a1003"),
		Title:       "4K USB-C Monitor 27-inch",
		Price:       329.50,
		Description: "Crisp 4K display with 95% DCI-P3 color and single-cable USB-C connectivity.",
		Image:       "https://images.unsplash.com/photo-1527443224154-c4a3942d3acf",
	},
	{
		ID:          uuid.MustParse("6f1c2a52-7d0e-4c3b-9a51-0d2f9b6a1004"),
		Title:       "Portable SSD 2TB Gen4",
		Price:       179.99,
		Description: "Compact NVMe external SSD with up to 2000MB/s transfer speed and shock resistance.",
		Image:       "https://images.unsplash.com/photo-1591488320449-011701bb6704",
	},
	{
		ID:          uuid.MustParse("6f1c2a52-7d0e-4c3b-9a51-0d2f9b6a1005"),
		Title:       "Smartwatch Active Pulse",
		Price:       149.99,
		Description: "Fitness smartwatch with heart-rate tracking, GPS and a week of battery life.",
		Image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30",
	},
}

// Seed inserts the given products.
func Seed(ctx context.Context, s ProductStore, products ...Product) error {
	for _, p := range products {
		if _, err := s.CreateProduct(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}
