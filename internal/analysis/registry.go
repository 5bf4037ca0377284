package analysis

import "fmt"

// All returns every analysis in run order
func All() []Analysis {
	return []Analysis{
		Employment{},
		EPC{},
		Permits{},
		Approvals{},
		LandUse{},
		Projects{},
		Energy{},
	}
}

// ByName resolves an analysis by its registered name
func ByName(name string) (Analysis, error) {
	for _, a := range All() {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown analysis: %s", name)
}
