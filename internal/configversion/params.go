package configversion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"capital-allocator/internal/domain"
)

// LoadParams reads a YAML parameters file over the defaults and validates
// the result. Keys missing from the file keep their default values.
func LoadParams(path string) (domain.Parameters, []string, error) {
	p := domain.DefaultParameters()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, nil, fmt.Errorf("read parameters: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, nil, fmt.Errorf("parse parameters: %w", err)
	}
	warnings, err := Validate(p)
	if err != nil {
		return p, nil, err
	}
	return p, warnings, nil
}
