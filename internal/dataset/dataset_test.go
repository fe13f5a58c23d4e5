package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"36.25", NumberValue(36.25)},
		{" 7.1999876E+00 ", NumberValue(7.1999876)},
		{"-1", NumberValue(-1)},
		{"01/03/2024-12:00:00", TextValue("01/03/2024-12:00:00")},
		{"", TextValue("")},
		{"HP3458A", TextValue("HP3458A")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.in))
		})
	}
}

func TestDataset_OrderAndReplace(t *testing.T) {
	d := New()
	d.Append("TIME", TextValue("a"))
	d.Append("TEMP", NumberValue(23))
	d.SetFloats("CAL_72", []float64{100})
	d.SetFloats("TEMP", []float64{24})

	assert.Equal(t, []string{"TIME", "TEMP", "CAL_72"}, d.Names())
	assert.Equal(t, 1, d.Len())
	assert.True(t, d.Has("CAL_72"))
	assert.False(t, d.Has("CAL_1_1"))

	temp, err := d.Floats("TEMP")
	require.NoError(t, err)
	assert.Equal(t, []float64{24}, temp)
}

func TestDataset_Validate(t *testing.T) {
	d := New()
	err := d.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	d.SetFloats("TEMP", []float64{1, 2, 3})
	d.SetFloats("CAL_72", []float64{1, 2})
	err = d.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "CAL_72", verr.Series)

	d.SetFloats("CAL_72", []float64{1, 2, 3})
	assert.NoError(t, d.Validate())
}

func TestDataset_Floats(t *testing.T) {
	d := New()
	d.Set("TEMP", []Value{NumberValue(23), TextValue("n/a")})

	_, err := d.Floats("TEMP")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = d.Floats("CAL_72")
	assert.True(t, errors.Is(err, ErrValidation))

	s, err := d.Strings("TEMP")
	require.NoError(t, err)
	assert.Equal(t, []string{"23", "n/a"}, s)
}

func TestDataset_Scalars(t *testing.T) {
	d := New()
	_, ok := d.Scalar("tempco")
	assert.False(t, ok)

	d.SetScalar("tempco", -0.5)
	v, ok := d.Scalar("tempco")
	assert.True(t, ok)
	assert.Equal(t, -0.5, v)
}
