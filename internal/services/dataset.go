package services

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"vendas-dashboard/internal/models"
)

// Dataset is the enriched sales table. It is never mutated after
// construction, so it can be shared across requests without locking.
type Dataset struct {
	records   []models.SaleRecord
	years     []int
	unmatched int
	loadedAt  time.Time
}

func NewDataset(records []models.SaleRecord) *Dataset {
	owned := slices.Clone(records)
	if owned == nil {
		owned = []models.SaleRecord{}
	}

	seen := make(map[int]struct{})
	years := make([]int, 0)
	unmatched := 0
	for _, r := range owned {
		if _, ok := seen[r.Year]; !ok {
			seen[r.Year] = struct{}{}
			years = append(years, r.Year)
		}
		if !r.Matched {
			unmatched++
		}
	}
	slices.Sort(years)

	return &Dataset{
		records:   owned,
		years:     years,
		unmatched: unmatched,
		loadedAt:  time.Now(),
	}
}

func (d *Dataset) Len() int { return len(d.records) }

func (d *Dataset) Unmatched() int { return d.unmatched }

func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Years returns the distinct sale years in ascending order.
func (d *Dataset) Years() []int {
	return slices.Clone(d.years)
}

// Records returns a copy of every record.
func (d *Dataset) Records() []models.SaleRecord {
	return slices.Clone(d.records)
}

// Filter returns a new slice holding the records of year, or all records
// when year is nil.
func (d *Dataset) Filter(year *int) []models.SaleRecord {
	if year == nil {
		return d.Records()
	}
	out := make([]models.SaleRecord, 0)
	for _, r := range d.records {
		if r.Year == *year {
			out = append(out, r)
		}
	}
	return out
}

// Cache builds the dataset at most once. Every caller, concurrent or not,
// gets the result of the first load, including its error.
type Cache struct {
	once  sync.Once
	load  func(context.Context) (*Dataset, error)
	ds    *Dataset
	err   error
	loads atomic.Int32
}

func NewCache(load func(context.Context) (*Dataset, error)) *Cache {
	return &Cache{load: load}
}

func (c *Cache) Get(ctx context.Context) (*Dataset, error) {
	c.once.Do(func() {
		c.loads.Add(1)
		c.ds, c.err = c.load(ctx)
	})
	return c.ds, c.err
}

// Loads reports how many times the loader ran.
func (c *Cache) Loads() int {
	return int(c.loads.Load())
}
