package domain

import "testing"

func TestMergedWith_PerCallWins(t *testing.T) {
	defaults := ConnOptions{Host: "localhost", Port: 9200, Index: "main", Type: "doc", Prefix: "qa"}
	override := ConnOptions{Host: "search.prod", Index: "users"}

	merged := override.MergedWith(defaults)

	if merged.Host != "search.prod" {
		t.Errorf("expected per-call host to win, got %q", merged.Host)
	}
	if merged.Port != 9200 {
		t.Errorf("expected default port to fill, got %d", merged.Port)
	}
	if merged.Index != "users" {
		t.Errorf("expected per-call index to win, got %q", merged.Index)
	}
	if merged.Type != "doc" || merged.Prefix != "qa" {
		t.Errorf("expected defaults to fill type/prefix, got %+v", merged)
	}
}

func TestMergedWith_DoesNotMutateReceiver(t *testing.T) {
	o := ConnOptions{Host: "a"}
	_ = o.MergedWith(ConnOptions{Host: "b", Port: 1})
	if o.Port != 0 {
		t.Error("MergedWith must not modify the receiver")
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		opts ConnOptions
		want string
	}{
		{ConnOptions{Host: "localhost", Port: 9200}, "http://localhost:9200"},
		{ConnOptions{Host: "https://search.internal", Port: 443}, "https://search.internal:443"},
	}
	for _, tc := range tests {
		if got := tc.opts.BaseURL(); got != tc.want {
			t.Errorf("BaseURL(%+v) = %q, want %q", tc.opts, got, tc.want)
		}
	}
}
