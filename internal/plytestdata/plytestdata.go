// Package plytestdata loads the round-trip golden scenarios under
// testdata/*.yaml into Go structs for table-driven tests. It is a
// test-only helper, never imported by production code.
package plytestdata

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ScalarExpectation names one scalar column's expected values after a read.
type ScalarExpectation struct {
	Property string    `yaml:"property"`
	Values   []float64 `yaml:"values"`
}

// ListExpectation names one list column's expected per-row values.
type ListExpectation struct {
	Property string      `yaml:"property"`
	Rows     [][]float64 `yaml:"rows"`
}

// ElementExpectation describes the decoded shape of one element.
type ElementExpectation struct {
	Name    string              `yaml:"name"`
	Count   int                 `yaml:"count"`
	Scalars []ScalarExpectation `yaml:"scalars,omitempty"`
	Lists   []ListExpectation   `yaml:"lists,omitempty"`
}

// ErrorExpectation describes an expected parse failure instead of a
// successful decode.
type ErrorExpectation struct {
	Element  string `yaml:"element,omitempty"`
	Row      int    `yaml:"row"`
	Property string `yaml:"property,omitempty"`
}

// Scenario is one golden round-trip fixture: the literal input bytes,
// and either the elements it should decode to or the error it should
// raise.
type Scenario struct {
	Name     string               `yaml:"name"`
	Input    string               `yaml:"input"`
	Elements []ElementExpectation `yaml:"elements,omitempty"`
	WantErr  *ErrorExpectation    `yaml:"want_err,omitempty"`
}

// Load reads and parses a single scenario fixture from path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
