package section

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDefaultRegistryCoversAllTypes(t *testing.T) {
	types := Default.Types()
	if len(types) != 21 {
		t.Fatalf("expected 21 registered types, got %d", len(types))
	}
	for _, typ := range types {
		settings, err := Default.Defaults(typ)
		if err != nil {
			t.Fatalf("defaults for %s: %v", typ, err)
		}
		if settings.SectionType() != typ {
			t.Fatalf("defaults for %s report type %s", typ, settings.SectionType())
		}
		if Default.Label(typ) == string(typ) {
			t.Fatalf("expected a human label for %s", typ)
		}
	}
}

func TestDefaultsAreFreshCopies(t *testing.T) {
	a, _ := Default.Defaults(TypeFeatures)
	b, _ := Default.Defaults(TypeFeatures)
	a.(*FeaturesSettings).Items[0].Title = "changed"
	if b.(*FeaturesSettings).Items[0].Title == "changed" {
		t.Fatal("defaults must not share backing arrays")
	}
}

func TestSectionUnmarshalFillsMissingKeys(t *testing.T) {
	raw := []byte(`{"id":"s1","type":"hero","order":2,"settings":{"headline":"Sale","mystery":42}}`)

	var s Section
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	hero, ok := s.Settings.(*HeroSettings)
	if !ok {
		t.Fatalf("expected *HeroSettings, got %T", s.Settings)
	}
	if hero.Headline != "Sale" {
		t.Fatalf("expected stored headline, got %q", hero.Headline)
	}
	if hero.ButtonText != "Order now" {
		t.Fatalf("expected default button text, got %q", hero.ButtonText)
	}
	if s.Order != 2 || s.ID != "s1" {
		t.Fatalf("unexpected identity: %+v", s)
	}
}

func TestSectionUnmarshalWrongFieldTypeKeepsDefault(t *testing.T) {
	raw := []byte(`{"id":"g","type":"gallery","order":1,"settings":{"columns":"four","title":"Looks"}}`)

	var s Section
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	gallery := s.Settings.(*GallerySettings)
	if gallery.Columns != 3 {
		t.Fatalf("expected default columns, got %d", gallery.Columns)
	}
	if gallery.Title != "Looks" {
		t.Fatalf("expected title to survive, got %q", gallery.Title)
	}
}

func TestUnknownTypeRoundTrips(t *testing.T) {
	raw := []byte(`[{"id":"x","type":"marquee","order":1,"settings":{"speed":3}}]`)

	sections, err := DecodeList(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	unknown, ok := sections[0].Settings.(*Unknown)
	if !ok {
		t.Fatalf("expected *Unknown, got %T", sections[0].Settings)
	}
	if unknown.SectionType() != "marquee" {
		t.Fatalf("unexpected type %s", unknown.SectionType())
	}

	encoded, err := json.Marshal(sections)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `[{"id":"x","type":"marquee","order":1,"settings":{"speed":3}}]` {
		t.Fatalf("unexpected round trip: %s", encoded)
	}
}

func TestDecodeStrictReportsTypeErrors(t *testing.T) {
	if _, err := Default.DecodeStrict(TypeSpacer, json.RawMessage(`{"height":"tall"}`)); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if _, err := Default.DecodeStrict("nope", nil); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestSortByOrderIsStable(t *testing.T) {
	in := []Section{
		{ID: "a", Order: 2},
		{ID: "b", Order: 1},
		{ID: "c", Order: 2},
		{ID: "d", Order: 0},
	}
	got := SortByOrder(in)
	want := []string{"d", "b", "a", "c"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if in[0].ID != "a" {
		t.Fatal("SortByOrder must not mutate its input")
	}
}

func TestProductIDs(t *testing.T) {
	sections := []Section{
		{ID: "1", Type: TypeProductGrid, Settings: &ProductGridSettings{ProductIDs: []uint{3, 1}}},
		{ID: "2", Type: TypeHero, Settings: &HeroSettings{}},
		{ID: "3", Type: TypeCheckoutForm, Settings: &CheckoutFormSettings{ProductIDs: []uint{1, 0, 7}}},
	}
	got := ProductIDs(sections)
	want := []uint{3, 1, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDecodeListKeepsMalformedEntries(t *testing.T) {
	raw := []byte(`[
		{"id":"h","type":"hero","order":1},
		{"id":"t","type":5,"order":2},
		{"id":"o","type":"divider","order":"3"},
		{"id":"f","type":"spacer","order":4.0},
		7,
		null
	]`)

	sections, err := DecodeList(raw)
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	if len(sections) != 6 {
		t.Fatalf("expected 6 sections, got %d", len(sections))
	}
	if sections[0].Type != TypeHero || sections[2].Type != TypeDivider || sections[3].Type != TypeSpacer {
		t.Fatalf("valid entries must decode, got %+v", sections)
	}
	if sections[2].Order != 3 || sections[3].Order != 4 {
		t.Fatalf("expected lenient order, got %d and %d", sections[2].Order, sections[3].Order)
	}
	for _, i := range []int{1, 4, 5} {
		if sections[i].Type != TypeInvalid {
			t.Fatalf("entry %d: expected invalid placeholder, got %s", i, sections[i].Type)
		}
		if _, ok := sections[i].Settings.(*Unknown); !ok {
			t.Fatalf("entry %d: expected *Unknown settings, got %T", i, sections[i].Settings)
		}
	}
	if sections[1].ID != "t" || sections[4].ID != "invalid-4" {
		t.Fatalf("unexpected placeholder ids %q %q", sections[1].ID, sections[4].ID)
	}

	if _, err := DecodeList([]byte(`{"id":"h"}`)); err == nil {
		t.Fatal("a non-array list must still fail")
	}
}

func TestInvalidPlaceholderRoundTrips(t *testing.T) {
	sections, err := DecodeList([]byte(`[{"id":"t","type":5,"order":2,"settings":{"a":1}}]`))
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	encoded, err := json.Marshal(sections)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := DecodeList(encoded)
	if err != nil {
		t.Fatalf("DecodeList again: %v", err)
	}
	if len(again) != 1 || again[0].ID != "t" || again[0].Type != TypeInvalid || again[0].Order != 2 {
		t.Fatalf("unexpected round trip %+v", again)
	}
	u, ok := again[0].Settings.(*Unknown)
	if !ok || string(u.Raw) != `{"id":"t","type":5,"order":2,"settings":{"a":1}}` {
		t.Fatalf("original entry must be preserved, got %+v", again[0].Settings)
	}
}
