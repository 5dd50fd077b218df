package tree

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/assettree/pkg/model"
)

func typeIDs(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestOrderSiblings(t *testing.T) {
	children := []*Node{
		{ID: "c1", Type: model.TypeComponent},
		{ID: "a1", Type: model.TypeAsset},
		{ID: "l1", Type: model.TypeLocation},
		{ID: "c2", Type: model.TypeComponent},
		{ID: "a2", Type: model.TypeAsset},
		{ID: "l2", Type: model.TypeLocation},
	}
	out := OrderSiblings(children)

	if got, want := typeIDs(out), []string{"l1", "l2", "a1", "a2", "c1", "c2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ordered %v, want %v (stable within each type)", got, want)
	}
	if got, want := typeIDs(children), []string{"c1", "a1", "l1", "c2", "a2", "l2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("input reordered to %v", got)
	}
}

func TestOrderSiblingsEmpty(t *testing.T) {
	if out := OrderSiblings(nil); len(out) != 0 {
		t.Errorf("expected empty, got %v", typeIDs(out))
	}
}

func TestSorted(t *testing.T) {
	forest := siteFixture()
	sorted := Sorted(forest)

	// Location roots before asset roots; within L1 the sub-location comes first.
	if got := ids(sorted); got != "L1(L2(A4),A1(A2,A3)),A5" {
		t.Errorf("sorted = %s", got)
	}
	if got := ids(forest); got != "A5,L1(A1(A2,A3),L2(A4))" {
		t.Errorf("Sorted must copy, input is now %s", got)
	}
}
