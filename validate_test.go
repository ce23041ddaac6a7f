package tatami_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-web/tatami"
)

func TestValidateWire_bool(t *testing.T) {
	t.Parallel()

	truthy := []string{"true", "True", "TRUE", "1", "yes", "YES", "on", "On"}
	for _, s := range truthy {
		v, err := tatami.ValidateWire(s, reflect.TypeFor[bool](), "flag")
		require.NoError(t, err, "input %q", s)
		assert.Equal(t, true, v, "input %q", s)
	}

	falsy := []string{"false", "False", "0", "no", "NO", "off", "Off", ""}
	for _, s := range falsy {
		v, err := tatami.ValidateWire(s, reflect.TypeFor[bool](), "flag")
		require.NoError(t, err, "input %q", s)
		assert.Equal(t, false, v, "input %q", s)
	}

	_, err := tatami.ValidateWire("maybe", reflect.TypeFor[bool](), "flag")
	require.Error(t, err)
}

func TestValidateWire_numbers(t *testing.T) {
	t.Parallel()

	v, err := tatami.ValidateWire("42", reflect.TypeFor[int](), "n")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = tatami.ValidateWire("3.5", reflect.TypeFor[float64](), "f")
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	_, err = tatami.ValidateWire("abc", reflect.TypeFor[int](), "n")
	require.Error(t, err)

	// JSON numbers arrive as float64; whole values convert to ints,
	// fractional ones do not.
	v, err = tatami.ValidateWire(float64(7), reflect.TypeFor[int](), "n")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = tatami.ValidateWire(7.5, reflect.TypeFor[int](), "n")
	require.Error(t, err)
}

func TestValidateWire_optionalPointer(t *testing.T) {
	t.Parallel()

	v, err := tatami.ValidateWire(nil, reflect.TypeFor[*int](), "n")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = tatami.ValidateWire("9", reflect.TypeFor[*int](), "n")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 9, *v.(*int))
}

func TestValidateWire_richScalars(t *testing.T) {
	t.Parallel()

	v, err := tatami.ValidateWire("2024-06-01T12:00:00Z", reflect.TypeFor[time.Time](), "at")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), v)

	v, err = tatami.ValidateWire("1h30m", reflect.TypeFor[time.Duration](), "d")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, v)

	v, err = tatami.ValidateWire("19.99", reflect.TypeFor[decimal.Decimal](), "price")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.99").Equal(v.(decimal.Decimal)))

	_, err = tatami.ValidateWire("not-a-date", reflect.TypeFor[time.Time](), "at")
	require.Error(t, err)
}

func TestValidateWire_errorCarriesContext(t *testing.T) {
	t.Parallel()

	_, err := tatami.ValidateWire("abc", reflect.TypeFor[int](), "post_id")
	require.Error(t, err)

	var fe *tatami.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "post_id", fe.Field)
	assert.Equal(t, "abc", fe.InputValue)
	assert.Equal(t, "int", fe.ExpectedType)
	assert.Contains(t, fe.Message, "not a valid integer")
}

func TestValidateWire_nestedModel(t *testing.T) {
	t.Parallel()

	type address struct {
		City string `json:"city"`
	}
	type person struct {
		Name    string  `json:"name" required:"true"`
		Age     int     `json:"age"`
		Address address `json:"address"`
	}

	raw := map[string]any{
		"name":    "ada",
		"age":     float64(36),
		"address": map[string]any{"city": "london"},
	}

	v, err := tatami.ValidateWire(raw, reflect.TypeFor[person](), "body")
	require.NoError(t, err)

	p := v.(person)
	assert.Equal(t, "ada", p.Name)
	assert.Equal(t, 36, p.Age)
	assert.Equal(t, "london", p.Address.City)
}
