// Package identity holds the appliance's current-identity state shared
// between the recognition loop and the HTTP surface.
package identity

import (
	"sync"

	"github.com/doorwatch-io/doorwatch/internal/domain"
)

// Cell is a concurrency-safe holder for the name most recently produced
// by the recognition loop. The zero value is not usable; construct with
// NewCell.
type Cell struct {
	mu   sync.RWMutex
	name string
}

// NewCell returns a cell primed with the unknown identity.
func NewCell() *Cell {
	return &Cell{name: domain.UnknownName}
}

func (c *Cell) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Cell) Set(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}
