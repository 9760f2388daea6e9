package stock

import (
	"fmt"
	"sort"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LotPick is one (lot, quantity) pair of an allocation
type LotPick struct {
	LotID  uuid.UUID
	Pieces int64
}

// AllocationResult is an ordered list of picks summing exactly to the
// requested quantity. Partial allocations are never produced: when stock is
// insufficient the allocation fails before anything is mutated.
type AllocationResult struct {
	Picks []LotPick
	Total int64
}

// Allocator selects which lots satisfy a required quantity
type Allocator interface {
	// Allocate returns picks summing exactly to required, or an error
	Allocate(required int64, lots []Lot) (*AllocationResult, error)
}

// FIFOAllocator consumes the oldest lots first, ordered by ingress time
// ascending. Lots sharing an identical ingress timestamp are ordered by lot
// ID ascending so the result is deterministic.
type FIFOAllocator struct{}

// NewFIFOAllocator creates a new FIFO allocator
func NewFIFOAllocator() *FIFOAllocator {
	return &FIFOAllocator{}
}

// Allocate greedily takes from the oldest lots until required is exhausted
func (a *FIFOAllocator) Allocate(required int64, lots []Lot) (*AllocationResult, error) {
	if required <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Required quantity must be positive")
	}

	candidates := make([]Lot, 0, len(lots))
	available := int64(0)
	for _, lot := range lots {
		if lot.HasStock() {
			candidates = append(candidates, lot)
			available += lot.Pieces
		}
	}
	if available < required {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Need %d pieces but only %d are available", required, available))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].IngressAt.Equal(candidates[j].IngressAt) {
			return candidates[i].IngressAt.Before(candidates[j].IngressAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	picks := make([]LotPick, 0, len(candidates))
	remaining := required
	for _, lot := range candidates {
		if remaining == 0 {
			break
		}
		take := lot.Pieces
		if take > remaining {
			take = remaining
		}
		picks = append(picks, LotPick{LotID: lot.ID, Pieces: take})
		remaining -= take
	}

	return &AllocationResult{Picks: picks, Total: required}, nil
}

// ManualAllocator validates an operator-chosen set of picks. Every referenced
// lot must belong to the candidate set, every pick must fit within that lot's
// available pieces, and the picks must sum to exactly the required quantity.
type ManualAllocator struct {
	picks []LotPick
}

// NewManualAllocator creates an allocator for explicit operator picks
func NewManualAllocator(picks []LotPick) *ManualAllocator {
	return &ManualAllocator{picks: picks}
}

// Allocate validates the explicit picks against the candidate lots
func (a *ManualAllocator) Allocate(required int64, lots []Lot) (*AllocationResult, error) {
	if required <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Required quantity must be positive")
	}
	if len(a.picks) == 0 {
		return nil, shared.NewDomainError("ALLOCATION_MISMATCH", "Manual allocation requires at least one lot pick")
	}

	byID := make(map[uuid.UUID]*Lot, len(lots))
	for i := range lots {
		byID[lots[i].ID] = &lots[i]
	}

	seen := make(map[uuid.UUID]int64, len(a.picks))
	total := int64(0)
	result := make([]LotPick, 0, len(a.picks))
	for _, pick := range a.picks {
		if pick.Pieces <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Picked quantity must be positive")
		}
		lot, ok := byID[pick.LotID]
		if !ok {
			return nil, shared.NewDomainError("ALLOCATION_MISMATCH",
				"Lot "+pick.LotID.String()+" does not belong to this product and site")
		}
		seen[pick.LotID] += pick.Pieces
		if seen[pick.LotID] > lot.Pieces {
			return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Lot %s has %d pieces, %d picked", lot.ID, lot.Pieces, seen[pick.LotID]))
		}
		total += pick.Pieces
		result = append(result, pick)
	}

	if total != required {
		return nil, shared.NewDomainError("ALLOCATION_MISMATCH",
			fmt.Sprintf("Picks sum to %d but %d pieces are required", total, required))
	}

	return &AllocationResult{Picks: result, Total: required}, nil
}
