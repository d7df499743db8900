package analyzer

import (
	"fmt"
	"strings"
)

// NewDetector creates an illustration detector by name.
func NewDetector(variant string, p IllustrationParams) (Detector, error) {
	switch strings.ToLower(variant) {
	case "diversity", "":
		return NewDiversityDetector(p), nil
	case "contrast":
		return NewContrastDetector(p.MinImageSize), nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

// ParsePolicy maps a configuration name to a boundary policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "hierarchical", "":
		return Hierarchical, nil
	case "greedy":
		return Greedy, nil
	default:
		return Hierarchical, fmt.Errorf("unknown boundary policy: %s", name)
	}
}
