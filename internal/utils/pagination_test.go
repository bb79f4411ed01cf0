package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 1, 1},        // absent query param
		{"3", 1, 3},       // typical page number
		{"20", 0, 20},     // typical page size
		{"-2", 1, -2},     // negatives parse; clamping is the caller's job
		{"007", 99, 7},    // leading zeros
		{"two", 20, 20},   // garbage -> default
		{" 5", 20, 20},    // no trimming
		{"5;drop", 1, 1},  // injection-looking input is just garbage
		{"99999999999999999999", 20, 20}, // overflow -> default
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}
