package confidence

import (
	"math"
	"testing"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		tokens []int
		want   float64
	}{
		{
			name:   "filters zero and negative sentinels",
			tokens: []int{95, 0, 87, -1, 92},
			want:   91.333333,
		},
		{
			name:   "plain mean",
			tokens: []int{95, 87, 92, 88},
			want:   90.5,
		},
		{
			name:   "empty input",
			tokens: []int{},
			want:   0.0,
		},
		{
			name:   "nil input",
			tokens: nil,
			want:   0.0,
		},
		{
			name:   "all sentinels",
			tokens: []int{0, -1, 0, -1},
			want:   0.0,
		},
		{
			name:   "single value",
			tokens: []int{73},
			want:   73.0,
		},
		{
			name:   "uniform values",
			tokens: []int{80, 75, 85},
			want:   80.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.tokens)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Aggregate(%v) = %f, want %f", tt.tokens, got, tt.want)
			}
		})
	}
}
