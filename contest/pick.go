package contest

import "math/rand"

// picker draws uniformly from a candidate set.
type picker struct {
	intn func(n int) int
}

func newPicker(intn func(n int) int) picker {
	if intn == nil {
		intn = rand.Intn
	}
	return picker{intn: intn}
}

func (p picker) pick(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoProblemsAvailable
	}
	return candidates[p.intn(len(candidates))], nil
}
