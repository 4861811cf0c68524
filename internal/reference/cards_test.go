package reference

import (
	"strings"
	"testing"
)

func TestAll_Order(t *testing.T) {
	all := All()
	if len(all) != 11 {
		t.Fatalf("len(All()) = %d, want 11", len(all))
	}
	if all[0].Title != "Unemployment" {
		t.Errorf("first card = %q, want Unemployment", all[0].Title)
	}
	if all[len(all)-1].Title != "Other Emergencies (Natural Calamities, etc.)" {
		t.Errorf("last card = %q", all[len(all)-1].Title)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := All()
	all[0].Title = "mutated"
	if All()[0].Title != "Unemployment" {
		t.Error("All() exposed the backing slice")
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	c, ok := Lookup("  home loan repayment ")
	if !ok {
		t.Fatal("Lookup returned ok=false")
	}
	if !strings.Contains(c.Body, "10 years of contribution") {
		t.Errorf("unexpected body: %q", c.Body)
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, ok := Lookup("Lottery"); ok {
		t.Error("Lookup(Lottery) ok = true, want false")
	}
}

func TestCardsStartWithBoldTitle(t *testing.T) {
	for _, c := range All() {
		if !strings.HasPrefix(c.Body, "**"+c.Title+"**") {
			t.Errorf("card %q body does not start with its bold title", c.Title)
		}
	}
	if got := len(Titles()); got != 11 {
		t.Errorf("len(Titles()) = %d, want 11", got)
	}
}
