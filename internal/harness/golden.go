package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares outcome against its stored golden snapshot,
// failing the test on mismatch. Run tests with -update to refresh
// snapshots after an intentional behavior change.
//
// Plain encoding/json is used here rather than internal/codec's
// canonical encoder: retrieval outcomes carry float64 BM25/cosine
// scores, and codec's encoder rejects floats. Struct field order
// already makes json.Marshal output deterministic, so this still
// yields a stable, diffable snapshot.
func AssertGolden(t *testing.T, outcome *Outcome) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden.json"),
	)
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		t.Fatalf("harness: marshal outcome: %v", err)
	}
	g.Assert(t, outcome.ScenarioName, data)
}
