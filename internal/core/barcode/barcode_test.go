package barcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsKnownCodes(t *testing.T) {
	cases := map[string]Format{
		"5701234567899":   EAN13,
		"4006381333931":   EAN13,
		"96385074":        EAN8,
		" 5000112637922 ": EAN13,
	}
	for code, format := range cases {
		b, err := Validate(code)
		require.NoError(t, err, code)
		assert.Equal(t, format, b.Format())
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"5701234567890": "checksum mismatch",
		"96385075":      "checksum mismatch",
		"12345":         "must be 8 or 13 digits",
		"57012345678A9": "must contain only digits",
		"":              "empty",
	}
	for code, reason := range cases {
		_, err := Validate(code)
		require.Error(t, err, code)
		assert.True(t, errors.Is(err, ErrInvalidBarcode))

		var invalid *InvalidBarcodeError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, reason, invalid.Reason)
	}
}

func TestValidateTrimsWhitespace(t *testing.T) {
	b, err := Validate("\t5701234567899\n")
	require.NoError(t, err)
	assert.Equal(t, "5701234567899", b.String())
}

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, 9, CheckDigit("570123456789"))
	assert.Equal(t, 4, CheckDigit("9638507"))
}

func TestRegionPolicy(t *testing.T) {
	policy, err := NewRegionPolicy(DefaultPriorityPrefixes)
	require.NoError(t, err)

	danish, err := Validate("5701234567899")
	require.NoError(t, err)
	german, err := Validate("4006381333931")
	require.NoError(t, err)

	assert.True(t, policy.IsPriority(danish))
	assert.False(t, policy.IsPriority(german))
	assert.False(t, policy.IsPriority(Barcode{}))
}

func TestRegionPolicySinglePrefix(t *testing.T) {
	policy, err := NewRegionPolicy([]string{"400"})
	require.NoError(t, err)

	german, err := Validate("4006381333931")
	require.NoError(t, err)
	assert.True(t, policy.IsPriority(german))
}

func TestRegionPolicyRejectsBadRanges(t *testing.T) {
	_, err := NewRegionPolicy([]string{"57-579"})
	assert.Error(t, err)

	_, err = NewRegionPolicy([]string{"579-570"})
	assert.Error(t, err)
}
