package core

import "testing"

func TestCombineConfidence(t *testing.T) {
	tests := []struct {
		keyword float64
		llm     float64
		want    float64
	}{
		{0, 0, 0},
		{1, 1, 1},
		{0.3, 0.6, 0.51},
		{0.3, 0.1, 0.16},
		{1, 0, 0.3},
		{0, 1, 0.7},
	}

	for _, tt := range tests {
		got := CombineConfidence(tt.keyword, tt.llm)
		if !almostEqual(got, tt.want) {
			t.Errorf("CombineConfidence(%v, %v) = %v, want %v", tt.keyword, tt.llm, got, tt.want)
		}
		if got < 0 || got > 1 {
			t.Errorf("CombineConfidence(%v, %v) = %v, outside [0,1]", tt.keyword, tt.llm, got)
		}
	}
}
