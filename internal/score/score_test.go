package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Score
		wantErr bool
	}{
		{in: "-1hard/0soft", want: Of(-1, 0)},
		{in: "-2hard", want: OfHard(-2)},
		{in: "5soft", want: OfSoft(5)},
		{in: "7", want: OfSoft(7)},
		{in: " 3hard / -4soft ", want: Of(3, -4)},
		{in: "", wantErr: true},
		{in: "xhard", wantErr: true},
		{in: "1medium", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	s := Of(-3, 12)
	text, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "-3hard/12soft", string(text))

	var back Score
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, s, back)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Score
		want int
	}{
		{name: "equal", a: Of(1, 2), b: Of(1, 2), want: 0},
		{name: "hard dominates", a: Of(0, -100), b: Of(-1, 100), want: 1},
		{name: "soft breaks tie", a: Of(-1, -5), b: Of(-1, -3), want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := Of(1, 2)
	assert.Equal(t, Of(3, 5), a.Add(Of(2, 3)))
	assert.Equal(t, Of(-1, -1), a.Subtract(Of(2, 3)))
	assert.Equal(t, Of(4, 8), a.Multiply(4))
	assert.Equal(t, Of(-1, -2), a.Negate())
	assert.True(t, Zero.IsZero())
	assert.True(t, OfSoft(-10).IsFeasible())
	assert.False(t, OfHard(-1).IsFeasible())
}

func TestImpactTypeSigned(t *testing.T) {
	w := Of(2, 1)
	assert.Equal(t, Of(-2, -1), Penalty.Signed(w))
	assert.Equal(t, w, Reward.Signed(w))
	assert.Equal(t, "penalty", Penalty.String())
	assert.Equal(t, "reward", Reward.String())
}
