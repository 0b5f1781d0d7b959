package inventory

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// AllocationRequest asks for a quantity of one product
type AllocationRequest struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
}

// LotTake is one planned deduction from a product lot
type LotTake struct {
	ProductLotID   uuid.UUID
	LotNumber      string
	Quantity       int64
	RemainingInLot int64
	FullyConsumed  bool
}

// LineAllocation is the planned set of takes satisfying one request
type LineAllocation struct {
	ProductID uuid.UUID
	Quantity  int64
	Takes     []LotTake
}

// AllocationPlan is a complete, not yet applied, allocation. Either
// every request in the plan is fully satisfiable or no plan exists.
type AllocationPlan struct {
	Lines         []LineAllocation
	TotalQuantity int64
}

// FEFOAllocator plans stock deductions first-expiry-first-out.
// Planning never mutates lots; ApplyPlan performs the deductions
// once the caller has decided to commit.
type FEFOAllocator struct{}

// NewFEFOAllocator creates a new FEFO allocator
func NewFEFOAllocator() *FEFOAllocator {
	return &FEFOAllocator{}
}

// PlanAllocation computes the full allocation plan for all requests
// against the given sellable lots. Lots are consumed in order of
// expiry date; lots sharing an expiry date are ordered by lot number,
// then by ID. If any request cannot be fully satisfied the whole plan
// is rejected and no partial plan is returned.
func (a *FEFOAllocator) PlanAllocation(requests []AllocationRequest, lotsByProduct map[uuid.UUID][]ProductLot) (*AllocationPlan, error) {
	if len(requests) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Allocation requires at least one request")
	}

	plan := &AllocationPlan{Lines: make([]LineAllocation, 0, len(requests))}

	// Remaining quantity per lot, so several lines of the same product
	// inside one plan do not double-book a lot.
	remainingByLot := make(map[uuid.UUID]int64)

	for _, req := range requests {
		if req.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_INPUT", "Requested quantity must be positive")
		}

		lots := sortFEFO(availableLots(lotsByProduct[req.ProductID]))

		line := LineAllocation{ProductID: req.ProductID, Quantity: req.Quantity, Takes: make([]LotTake, 0, 2)}
		remaining := req.Quantity

		for i := range lots {
			if remaining == 0 {
				break
			}
			lot := &lots[i]
			held, seen := remainingByLot[lot.ID]
			if !seen {
				held = lot.Quantity
			}
			if held <= 0 {
				continue
			}

			take := remaining
			if held < take {
				take = held
			}

			held -= take
			remainingByLot[lot.ID] = held
			remaining -= take

			line.Takes = append(line.Takes, LotTake{
				ProductLotID:   lot.ID,
				LotNumber:      lot.LotNumber,
				Quantity:       take,
				RemainingInLot: held,
				FullyConsumed:  held == 0,
			})
		}

		if remaining > 0 {
			name := req.ProductName
			if name == "" {
				name = req.ProductID.String()
			}
			return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Insufficient stock for product %s: short %d units", name, remaining))
		}

		plan.Lines = append(plan.Lines, line)
		plan.TotalQuantity += req.Quantity
	}

	return plan, nil
}

// ApplyPlan deducts every planned take from the given lots. Each take
// is applied exactly once; a lot missing from lots or holding less
// than planned is an error and leaves the remaining lots untouched.
func ApplyPlan(lots []*ProductLot, plan *AllocationPlan) error {
	if plan == nil {
		return shared.NewDomainError("INVALID_INPUT", "Allocation plan cannot be nil")
	}

	byID := make(map[uuid.UUID]*ProductLot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}

	for _, line := range plan.Lines {
		for _, take := range line.Takes {
			lot, ok := byID[take.ProductLotID]
			if !ok {
				return shared.NewDomainError("NOT_FOUND", "Planned lot not loaded: "+take.ProductLotID.String())
			}
			if err := lot.Deduct(take.Quantity); err != nil {
				return err
			}
		}
	}

	return nil
}

// LotIDs returns the distinct product lot IDs referenced by the plan
func (p *AllocationPlan) LotIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, line := range p.Lines {
		for _, take := range line.Takes {
			if _, ok := seen[take.ProductLotID]; !ok {
				seen[take.ProductLotID] = struct{}{}
				ids = append(ids, take.ProductLotID)
			}
		}
	}
	return ids
}

func availableLots(lots []ProductLot) []ProductLot {
	out := make([]ProductLot, 0, len(lots))
	for _, lot := range lots {
		if lot.IsAvailable() {
			out = append(out, lot)
		}
	}
	return out
}

func sortFEFO(lots []ProductLot) []ProductLot {
	sorted := make([]ProductLot, len(lots))
	copy(sorted, lots)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ExpiryDate.Equal(sorted[j].ExpiryDate) {
			return sorted[i].ExpiryDate.Before(sorted[j].ExpiryDate)
		}
		if sorted[i].LotNumber != sorted[j].LotNumber {
			return sorted[i].LotNumber < sorted[j].LotNumber
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}
