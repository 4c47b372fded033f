package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"abscc/pkg/asm"
)

// scenarioSuite is one YAML file under testdata/scenarios.
type scenarioSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []scenario `yaml:"tests"`
}

type scenario struct {
	Name   string         `yaml:"name"`
	Target string         `yaml:"target,omitempty"` // linux|windows
	Source string         `yaml:"source"`
	Expect scenarioExpect `yaml:"expect"`
}

type scenarioExpect struct {
	OK          bool           `yaml:"ok"`
	Contains    []string       `yaml:"contains,omitempty"`
	Absent      []string       `yaml:"absent,omitempty"`
	Faults      map[string]int `yaml:"faults,omitempty"` // LEXICAL, SYNTAX or a semantic kind
	Temporaries *int           `yaml:"temporaries,omitempty"`
}

func loadScenarios(t *testing.T) []scenarioSuite {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatalf("no scenario files found")
	}
	var suites []scenarioSuite
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var suite scenarioSuite
		if err := yaml.Unmarshal(data, &suite); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		suites = append(suites, suite)
	}
	return suites
}

// faultCounts tallies the faults of r under the names scenarios use.
func faultCounts(r *Result) map[string]int {
	counts := make(map[string]int)
	if n := len(r.LexErrors); n > 0 {
		counts["LEXICAL"] = n
	}
	if n := len(r.Syntax); n > 0 {
		counts["SYNTAX"] = n
	}
	for _, g := range r.Faults {
		counts[g.Kind.String()] = len(g.Errors)
	}
	return counts
}

func TestScenarios(t *testing.T) {
	for _, suite := range loadScenarios(t) {
		t.Run(suite.Name, func(t *testing.T) {
			for _, sc := range suite.Tests {
				t.Run(sc.Name, func(t *testing.T) {
					target, err := asm.ParsePlatform(sc.Target)
					if err != nil {
						t.Fatal(err)
					}
					res, err := Compile(sc.Name, sc.Source, Options{Target: target})
					if err != nil {
						t.Fatalf("Compile: %v", err)
					}

					if res.OK() != sc.Expect.OK {
						t.Fatalf("OK() = %v, want %v\n%s", res.OK(), sc.Expect.OK, res.FormatFaults())
					}
					for _, want := range sc.Expect.Contains {
						assertContains(t, res.Assembly, want)
					}
					for _, unwanted := range sc.Expect.Absent {
						assertNotContains(t, res.Assembly, unwanted)
					}

					got := faultCounts(res)
					for kind, n := range sc.Expect.Faults {
						if got[kind] != n {
							t.Errorf("%s faults = %d, want %d", kind, got[kind], n)
						}
					}
					if len(got) != len(sc.Expect.Faults) {
						t.Errorf("fault kinds = %v, want %v", got, sc.Expect.Faults)
					}
					if sc.Expect.Temporaries != nil && res.Stats.Temporaries != *sc.Expect.Temporaries {
						t.Errorf("temporaries = %d, want %d", res.Stats.Temporaries, *sc.Expect.Temporaries)
					}
					if !sc.Expect.OK && strings.TrimSpace(res.Assembly) != "" {
						t.Errorf("failed compilation produced assembly")
					}
				})
			}
		})
	}
}
