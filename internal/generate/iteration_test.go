package generate

import "testing"

func TestIterationFromPath(t *testing.T) {
	cases := []struct {
		path string
		want int
	}{
		{"data/BO_R1.csv", 1},
		{"./data/BO_R0.csv", 0},
		{"/abs/path/BO_R12.csv", 12},
		{"BO_R7", 7},
		{"suggestions.csv", 0},
		{"BO_Rx.csv", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := IterationFromPath(tc.path); got != tc.want {
			t.Fatalf("IterationFromPath(%q) = %d, want %d", tc.path, got, tc.want)
		}
	}
}
