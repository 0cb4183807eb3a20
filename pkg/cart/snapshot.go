package cart

import (
	"encoding/json"
	"fmt"
)

// Encode serializes c as the JSON array stored in the snapshot slot.
func Encode(c Cart) ([]byte, error) {
	if c == nil {
		c = Cart{}
	}
	return json.Marshal(c)
}

// Decode parses a snapshot and checks the cart invariants: positive
// amounts and no duplicate line items.
func Decode(data []byte) (Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	seen := make(map[int]struct{}, len(c))
	for _, p := range c {
		if p.Amount < 1 {
			return nil, fmt.Errorf("%w: product %d has amount %d", ErrCorruptSnapshot, p.ID, p.Amount)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product %d", ErrCorruptSnapshot, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	if c == nil {
		c = Cart{}
	}
	return c, nil
}
