package fair

import (
	"math"
	"testing"
)

func table(t *testing.T, weights ...float64) []CumulativeItem {
	t.Helper()
	items := make([]WeightedItem, len(weights))
	for i, w := range weights {
		items[i] = WeightedItem{ID: string(rune('a' + i)), Weight: w}
	}
	out, err := BuildCumulative(items)
	if err != nil {
		t.Fatalf("build cumulative: %v", err)
	}
	return out
}

func TestBuildCumulativeNormalizes(t *testing.T) {
	items := table(t, 1, 1, 2)

	want := []float64{0.25, 0.5, 1.0}
	for i, w := range want {
		if math.Abs(items[i].Cumulative-w) > 1e-12 {
			t.Fatalf("item %d: cumulative=%v want %v", i, items[i].Cumulative, w)
		}
	}

	// monotônico não-decrescente
	for i := 1; i < len(items); i++ {
		if items[i].Cumulative < items[i-1].Cumulative {
			t.Fatalf("cumulative decreased at %d", i)
		}
	}
	if items[len(items)-1].Cumulative != 1.0 {
		t.Fatalf("last cumulative must close at 1.0, got %v", items[len(items)-1].Cumulative)
	}
}

func TestBuildCumulativeSkipsNonPositive(t *testing.T) {
	out, err := BuildCumulative([]WeightedItem{
		{ID: "a", Weight: 0},
		{ID: "b", Weight: 1},
		{ID: "c", Weight: -3},
		{ID: "d", Weight: 1},
	})
	if err != nil {
		t.Fatalf("build cumulative: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if out[0].ID != "b" || out[1].ID != "d" {
		t.Fatalf("unexpected items: %+v", out)
	}
}

func TestBuildCumulativeEmpty(t *testing.T) {
	if _, err := BuildCumulative(nil); err != ErrEmptyTable {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if _, err := BuildCumulative([]WeightedItem{{Weight: 0}}); err != ErrEmptyTable {
		t.Fatalf("expected ErrEmptyTable for all-zero weights, got %v", err)
	}
}

func TestSelectBoundaries(t *testing.T) {
	items := table(t, 1, 1, 2)

	cases := []struct {
		roll float64
		want string
	}{
		{0, "a"},
		{0.25, "a"},
		{0.3, "b"}, // roll 0.3 cai no segundo item da tabela [1,1,2]
		{0.5, "b"},
		{0.500001, "c"},
		{0.999999999, "c"},
	}
	for _, tc := range cases {
		got, err := Select(tc.roll, items)
		if err != nil {
			t.Fatalf("select(%v): %v", tc.roll, err)
		}
		if got.ID != tc.want {
			t.Fatalf("select(%v) = %q, want %q", tc.roll, got.ID, tc.want)
		}
	}
}

func TestSelectLastItemFallback(t *testing.T) {
	// roll exatamente 1.0 (2^32-1 no gerador) e deriva acima de 1.0 devem
	// cair no último item pelo ramo explícito de fallback
	items := table(t, 1, 1, 2)

	got, err := Select(1.0, items)
	if err != nil {
		t.Fatalf("select(1.0): %v", err)
	}
	if got.ID != "c" {
		t.Fatalf("select(1.0) = %q, want last item", got.ID)
	}

	got, err = Select(1.0000001, items)
	if err != nil {
		t.Fatalf("select above 1.0: %v", err)
	}
	if got.ID != "c" {
		t.Fatalf("fallback did not return last item, got %q", got.ID)
	}
}

func TestSelectEmptyTable(t *testing.T) {
	if _, err := Select(0.5, nil); err != ErrEmptyTable {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestSelectCoversFullRange(t *testing.T) {
	items := table(t, 3, 7, 1, 9)
	for roll := 0.0; roll < 1.0; roll += 0.001 {
		if _, err := Select(roll, items); err != nil {
			t.Fatalf("select(%v) returned error: %v", roll, err)
		}
	}
}
