package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"score/internal/domain"
)

// DecodePlans reads a JSON array of execution plans
func DecodePlans(r io.Reader) ([]*domain.ExecutionPlan, error) {
	var plans []*domain.ExecutionPlan
	if err := json.NewDecoder(r).Decode(&plans); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	return plans, nil
}

func LoadFile(path string) ([]*domain.ExecutionPlan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plans file: %w", err)
	}
	defer f.Close()

	return DecodePlans(f)
}

// CompileAll compiles every plan; the first invalid one aborts
func CompileAll(plans []*domain.ExecutionPlan, registry *Registry) ([]*CompiledPlan, error) {
	compiled := make([]*CompiledPlan, 0, len(plans))
	for _, p := range plans {
		cp, err := Compile(p, registry)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cp)
	}
	return compiled, nil
}
