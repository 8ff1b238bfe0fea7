package domain

import (
	"encoding/json"
	"fmt"
)

// Percentages is a distribution table, one share per roster slot. It
// encodes as a JSON number array rather than the base64 string encoding/json
// uses for byte slices.
type Percentages []uint8

func (p Percentages) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	shares := make([]int, len(p))
	for i, v := range p {
		shares[i] = int(v)
	}
	return json.Marshal(shares)
}

func (p *Percentages) UnmarshalJSON(data []byte) error {
	var shares []int
	if err := json.Unmarshal(data, &shares); err != nil {
		return err
	}
	if shares == nil {
		*p = nil
		return nil
	}
	out := make(Percentages, len(shares))
	for i, v := range shares {
		if v < 0 || v > 255 {
			return fmt.Errorf("percentage %d out of range", v)
		}
		out[i] = uint8(v)
	}
	*p = out
	return nil
}
