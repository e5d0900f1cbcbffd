// Package stock is the append-only inventory ledger. Movements are
// immutable facts; current stock for a product is always derived as
// sum(IN quantities) - sum(OUT quantities), never mutated in place.
package stock

import (
	"fmt"
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

type Reason string

const (
	ReasonNew    Reason = "NEW"    // product intake / restock
	ReasonSale   Reason = "SALE"   // order confirmed
	ReasonReturn Reason = "RETURN" // order cancelled after payment
)

type Movement struct {
	ID        string
	ProductID string
	Direction Direction
	Quantity  int
	Reason    Reason
	CreatedAt time.Time
}

func (m Movement) Validate() error {
	if m.Quantity < 0 {
		return fmt.Errorf("stock: negative quantity %d", m.Quantity)
	}
	switch m.Direction {
	case DirectionIn, DirectionOut:
	default:
		return fmt.Errorf("stock: unknown direction %q", m.Direction)
	}
	switch m.Reason {
	case ReasonNew, ReasonSale, ReasonReturn:
	default:
		return fmt.Errorf("stock: unknown reason %q", m.Reason)
	}
	return nil
}

// Net folds a slice of movements into the derived stock level. This is the
// same arithmetic the SQL aggregate performs.
func Net(movements []Movement) int {
	total := 0
	for _, m := range movements {
		switch m.Direction {
		case DirectionIn:
			total += m.Quantity
		case DirectionOut:
			total -= m.Quantity
		}
	}
	return total
}
