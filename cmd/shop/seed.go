package main

import (
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/shopspring/decimal"
)

// seedMemoryStore loads the same users and products the SQL seed migration inserts.
func seedMemoryStore(store *repository.MemoryStore) {
	store.PutUser(domain.User{ID: 1, Name: "Alice Martin", Email: "alice@example.com", Phone: "+15550100001"})
	store.PutUser(domain.User{ID: 2, Name: "Bob Chen", Email: "bob@example.com"})
	store.PutUser(domain.User{ID: 3, Name: "Carla Diaz", Email: "carla@example.com", Phone: "+15550100003"})

	now := time.Now().UTC()
	products := []struct {
		id       int64
		name     string
		category string
		price    string
	}{
		{1, "Wireless Mouse", "electronics", "10.00"},
		{2, "USB-C Cable", "electronics", "5.00"},
		{3, "Mechanical Keyboard", "electronics", "89.99"},
		{4, "Coffee Mug", "kitchen", "12.50"},
		{5, "Notebook", "stationery", "3.25"},
	}
	for _, p := range products {
		store.PutProduct(domain.Product{
			ID:        p.id,
			Name:      p.name,
			Category:  p.category,
			Price:     decimal.RequireFromString(p.price),
			CreatedAt: now,
		})
	}
}
