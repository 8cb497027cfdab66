package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findsforliving-lab/finds4livingbot/models"
)

func testProduct() *models.ProductRecord {
	return &models.ProductRecord{
		Title:       "Fone Bluetooth",
		Price:       models.PricePair{Current: 99.90, Original: 149.90, DiscountPercent: 33},
		Images:      []string{"https://cdn.example.com/fone.jpg"},
		Description: "Fone sem fio",
	}
}

func TestDraftLifecycle(t *testing.T) {
	store := NewDraftStore(time.Hour)
	defer store.Stop()

	draft := store.Create("user-1", "https://shop.example.com/fone", testProduct())
	assert.Equal(t, "user-1", draft.UserID)
	assert.Equal(t, 1, store.Count())

	got, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, "Fone Bluetooth", got.Product.Title)

	require.NoError(t, store.Delete("user-1"))
	assert.Equal(t, 0, store.Count())

	_, err = store.Get("user-1")
	assert.Error(t, err)
}

func TestDraftCreateReplacesPrevious(t *testing.T) {
	store := NewDraftStore(time.Hour)
	defer store.Stop()

	store.Create("user-1", "https://shop.example.com/a", testProduct())
	store.Create("user-1", "https://shop.example.com/b", testProduct())

	draft, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/b", draft.URL)
	assert.Equal(t, 1, store.Count())
}

func TestDraftUpdate(t *testing.T) {
	store := NewDraftStore(time.Hour)
	defer store.Stop()

	store.Create("user-1", "https://shop.example.com/fone", testProduct())

	newTitle := "Fone Bluetooth Pro"
	newPrice := 89.90
	draft, err := store.Update("user-1", &models.DraftPatch{
		Title:        &newTitle,
		CurrentPrice: &newPrice,
	})
	require.NoError(t, err)

	assert.Equal(t, "Fone Bluetooth Pro", draft.Product.Title)
	assert.Equal(t, 89.90, draft.Product.Price.Current)
	// untouched fields stay
	assert.Equal(t, 149.90, draft.Product.Price.Original)
	assert.Equal(t, "Fone sem fio", draft.Product.Description)
}

func TestDraftUpdateUnknownUser(t *testing.T) {
	store := NewDraftStore(time.Hour)
	defer store.Stop()

	_, err := store.Update("ghost", &models.DraftPatch{})
	assert.Error(t, err)
}

func TestDraftGetReturnsSnapshot(t *testing.T) {
	store := NewDraftStore(time.Hour)
	defer store.Stop()

	store.Create("user-1", "https://shop.example.com/fone", testProduct())

	got, err := store.Get("user-1")
	require.NoError(t, err)
	got.Product.Title = "mutated by caller"
	got.Product.Images[0] = "mutated"

	again, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, "Fone Bluetooth", again.Product.Title)
	assert.Equal(t, "https://cdn.example.com/fone.jpg", again.Product.Images[0])
}

func TestDraftConcurrentReadAndUpdate(t *testing.T) {
	store := NewDraftStore(time.Hour)
	defer store.Stop()

	store.Create("user-1", "https://shop.example.com/fone", testProduct())

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if draft, err := store.Get("user-1"); err == nil {
				if _, err := json.Marshal(draft); err != nil {
					t.Errorf("failed to marshal draft: %v", err)
					return
				}
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			title := fmt.Sprintf("Fone Bluetooth rev %d", i)
			if _, err := store.Update("user-1", &models.DraftPatch{Title: &title}); err != nil {
				t.Errorf("failed to update draft: %v", err)
				return
			}
		}
	}()

	wg.Wait()
}

func TestDraftSweep(t *testing.T) {
	store := NewDraftStore(time.Hour)
	defer store.Stop()

	store.Create("user-1", "https://shop.example.com/a", testProduct())
	store.Create("user-2", "https://shop.example.com/b", testProduct())

	// age one draft past the TTL and sweep directly
	store.mu.Lock()
	store.drafts["user-1"].UpdatedAt = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	store.sweep()

	assert.Equal(t, 1, store.Count())
	_, err := store.Get("user-1")
	assert.Error(t, err)
	_, err = store.Get("user-2")
	assert.NoError(t, err)
}
