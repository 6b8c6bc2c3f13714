package coupon

import "context"

// StaticLookup serves codes from an in-memory table. Used for tests and for
// deployments where the coupon set ships with the binary.
type StaticLookup struct {
	codes map[string]int
}

func NewStaticLookup(codes map[string]int) *StaticLookup {
	normalized := make(map[string]int, len(codes))
	for code, percent := range codes {
		normalized[Normalize(code)] = percent
	}
	return &StaticLookup{codes: normalized}
}

func (s *StaticLookup) Lookup(_ context.Context, code string) (int, error) {
	percent, ok := s.codes[code]
	if !ok {
		return 0, ErrCouponNotFound
	}
	return percent, nil
}
