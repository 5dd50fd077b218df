package tree

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/assettree/pkg/model"
)

// siteFixture is:
//
//	L1 Plant
//	├── A1 Pump
//	│   ├── A2 Motor (energy, alert)
//	│   └── A3 Bearing (vibration, operating)
//	└── L2 Warehouse
//	    └── A4 Forklift
//	A5 Generator (energy, operating)   (root asset)
func siteFixture() []*Node {
	locations := []model.Location{
		{ID: "L1", Name: "Plant"},
		{ID: "L2", Name: "Warehouse", ParentID: "L1"},
	}
	assets := []model.Asset{
		{ID: "A1", Name: "Pump", LocationID: "L1"},
		{ID: "A2", Name: "Motor", ParentID: "A1", SensorType: model.SensorEnergy, Status: model.StatusAlert},
		{ID: "A3", Name: "Bearing", ParentID: "A1", SensorType: model.SensorVibration, Status: model.StatusOperating},
		{ID: "A4", Name: "Forklift", LocationID: "L2"},
		{ID: "A5", Name: "Generator", SensorType: model.SensorEnergy, Status: model.StatusOperating},
	}
	return Build(locations, assets)
}

// ids flattens a forest into "id(child,child)" notation for compact assertions.
func ids(forest []*Node) string {
	out := ""
	for i, n := range forest {
		if i > 0 {
			out += ","
		}
		out += n.ID
		if len(n.Children) > 0 {
			out += "(" + ids(n.Children) + ")"
		}
	}
	return out
}

func TestFixtureShape(t *testing.T) {
	if got := ids(siteFixture()); got != "A5,L1(A1(A2,A3),L2(A4))" {
		t.Errorf("fixture = %s", got)
	}
}

func TestFilterByTextEmptyQueryPassesThrough(t *testing.T) {
	forest := siteFixture()
	for _, q := range []string{"", " ", "\t\n "} {
		out := FilterByText(forest, q)
		if !reflect.DeepEqual(forest, out) {
			t.Errorf("query %q changed the forest: %s", q, ids(out))
		}
		if len(out) > 0 && out[0] != forest[0] {
			t.Errorf("query %q: no-op filter should not copy", q)
		}
	}
}

func TestFilterByText(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		// The matching leaf plus both ancestors.
		{"leaf", "motor", "L1(A1(A2))"},
		{"case and whitespace", "  MoToR ", "L1(A1(A2))"},
		// "ar" hits Bearing and Warehouse.
		{"substring", "ar", "L1(A1(A3),L2)"},
		// Plant and Pump match; a matching node still loses the
		// descendants that lead to no match.
		{"matching ancestor is pruned", "p", "L1(A1)"},
		{"no match", "zzz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(FilterByText(siteFixture(), tt.query)); got != tt.want {
				t.Errorf("FilterByText(%q) = %s, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilterByTextNoMatchIsEmptyForest(t *testing.T) {
	out := FilterByText(siteFixture(), "zzz")
	if out == nil || len(out) != 0 {
		t.Errorf("expected an empty, non-nil forest, got %#v", out)
	}
}

func TestFilterByTextLowerCase(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"accented upper case", "produção", 1},
		{"lower-casing keeps ß", "straße", 1},
		{"no full case folding", "strasse", 0},
		{"ss does not match ß", "ss", 0},
	}
	forest := Build([]model.Location{
		{ID: "L1", Name: "ÁREA DE PRODUÇÃO"},
		{ID: "L2", Name: "Straße"},
	}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(FilterByText(forest, tt.query)); got != tt.want {
				t.Errorf("FilterByText(%q) kept %d roots, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestTextMatcher(t *testing.T) {
	if TextMatcher("  ") != nil {
		t.Error("whitespace query should have no matcher")
	}

	match := TextMatcher(" MOT ")
	if match == nil {
		t.Fatal("expected a matcher")
	}
	if !match(&Node{Name: "Motor"}) {
		t.Error("Motor should match")
	}
	if match(&Node{Name: "Pump"}) {
		t.Error("Pump should not match")
	}
}

func TestFilterByTextDoesNotMutateInput(t *testing.T) {
	forest := siteFixture()
	before := ids(forest)
	FilterByText(forest, "motor")
	if after := ids(forest); after != before {
		t.Errorf("input changed from %s to %s", before, after)
	}
}

func TestFilterByTextPreservesFields(t *testing.T) {
	out := FilterByText(siteFixture(), "motor")
	motor := out[0].Children[0].Children[0]
	if motor.Type != model.TypeComponent || motor.ParentType != model.TypeAsset {
		t.Errorf("motor type/parent type = %q/%q", motor.Type, motor.ParentType)
	}
	if motor.Status != model.StatusAlert || motor.SensorType != model.SensorEnergy {
		t.Errorf("motor status/sensor = %q/%q", motor.Status, motor.SensorType)
	}
}

func TestFilterByCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     string
	}{
		{"none is a no-op", Criteria{}, "A5,L1(A1(A2,A3),L2(A4))"},
		{"energy", Criteria{EnergySensors: true}, "A5,L1(A1(A2))"},
		{"critical", Criteria{CriticalStatus: true}, "L1(A1(A2))"},
		{"energy or critical", Criteria{EnergySensors: true, CriticalStatus: true}, "A5,L1(A1(A2))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(FilterByCriteria(siteFixture(), tt.criteria)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFilterByCriteriaInactiveReturnsInput(t *testing.T) {
	forest := siteFixture()
	out := FilterByCriteria(forest, Criteria{})
	if len(out) != len(forest) || out[0] != forest[0] {
		t.Error("inactive criteria should return the input forest")
	}
}

func TestFilterByCriteriaNoMatch(t *testing.T) {
	forest := Build([]model.Location{{ID: "L1", Name: "Empty hall"}}, nil)
	if out := FilterByCriteria(forest, Criteria{CriticalStatus: true}); len(out) != 0 {
		t.Errorf("expected nothing, got %s", ids(out))
	}
}

// TestFilterByCriteriaScenario covers the energy and critical scenarios on
// the plant → pump → motor chain.
func TestFilterByCriteriaScenario(t *testing.T) {
	forest := Build(plantFixture())
	for _, c := range []Criteria{{EnergySensors: true}, {CriticalStatus: true}} {
		if got := ids(FilterByCriteria(forest, c)); got != "L1(A1(A2))" {
			t.Errorf("%+v: got %s, want L1(A1(A2))", c, got)
		}
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"zero query", Query{}, "A5,L1(A1(A2,A3),L2(A4))"},
		{"text only", Query{Text: "gen"}, "A5"},
		{"criteria only", Query{Criteria: Criteria{CriticalStatus: true}}, "L1(A1(A2))"},
		// "r" matches Motor, Bearing, Warehouse, Forklift, Generator; only
		// energy-sensor paths survive the second pass.
		{"text then criteria", Query{Text: "r", Criteria: Criteria{EnergySensors: true}}, "A5,L1(A1(A2))"},
		{"text excludes criteria hit", Query{Text: "bearing", Criteria: Criteria{EnergySensors: true}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Apply(siteFixture(), tt.query)); got != tt.want {
				t.Errorf("Apply(%+v) = %s, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestQueryIsZero(t *testing.T) {
	tests := []struct {
		query Query
		want  bool
	}{
		{Query{Text: "  "}, true},
		{Query{Text: "x"}, false},
		{Query{Criteria: Criteria{EnergySensors: true}}, false},
	}
	for _, tt := range tests {
		if got := tt.query.IsZero(); got != tt.want {
			t.Errorf("%+v.IsZero() = %v, want %v", tt.query, got, tt.want)
		}
	}
}
