package contest

import "context"

type ProblemCatalog interface {
	ListAvailableProblemIDs(ctx context.Context) ([]string, error)
}

// Matchmaker pairs a single player with a random problem. No room is
// involved and every call is an independent draw.
type Matchmaker struct {
	catalog ProblemCatalog
	picker  picker
}

func NewMatchmaker(catalog ProblemCatalog, intn func(n int) int) *Matchmaker {
	return &Matchmaker{catalog: catalog, picker: newPicker(intn)}
}

func (m *Matchmaker) MatchOne(candidates []string) (string, error) {
	return m.picker.pick(candidates)
}

func (m *Matchmaker) MatchOneRandom(ctx context.Context) (string, error) {
	candidates, err := m.catalog.ListAvailableProblemIDs(ctx)
	if err != nil {
		return "", err
	}
	return m.MatchOne(candidates)
}
