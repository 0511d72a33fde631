package utils

import "testing"

func TestNewPage(t *testing.T) {
	cases := []struct {
		page, limit string
		want        Page
	}{
		{"", "", Page{1, 10}},
		{"3", "25", Page{3, 25}},
		{"0", "-1", Page{1, 10}},
		{"x", "1000", Page{1, MaxLimit}},
	}
	for _, c := range cases {
		if got := NewPage(c.page, c.limit); got != c.want {
			t.Errorf("NewPage(%q, %q) = %+v, want %+v", c.page, c.limit, got, c.want)
		}
	}
}

func TestOffsetAndTotalPages(t *testing.T) {
	if got := (Page{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := TotalPages(21, 10); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
	if got := TotalPages(0, 10); got != 0 {
		t.Fatalf("expected 0 pages, got %d", got)
	}
}

func TestNumericSearch(t *testing.T) {
	if n, ok := NumericSearch(" 42 "); !ok || n != 42 {
		t.Fatalf("expected 42, got %d %v", n, ok)
	}
	if n, ok := NumericSearch("42.9"); !ok || n != 42 {
		t.Fatalf("expected 42 from decimal, got %d %v", n, ok)
	}
	for _, s := range []string{"", "abc", "42abc", "NaN", "Inf"} {
		if _, ok := NumericSearch(s); ok {
			t.Errorf("expected %q to be non-numeric", s)
		}
	}
}

func TestLooseInt(t *testing.T) {
	cases := map[string]int64{"12abc": 12, " 7 ": 7, "-3": -3, "abc": 0, "": 0, "1.9": 1}
	for in, want := range cases {
		if got := LooseInt(in); got != want {
			t.Errorf("LooseInt(%q) = %d, want %d", in, got, want)
		}
	}
}
