package secrets

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxRoundTrip(t *testing.T) {
	box, err := NewBox(hex.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)

	sealed, err := box.Seal([]byte(`{"token":"secret"}`))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "secret")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"secret"}`, string(opened))
}

func TestBoxNoncesDiffer(t *testing.T) {
	box, err := NewBox(hex.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	a, err := box.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := box.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBoxRejectsTamperedCiphertext(t *testing.T) {
	box, err := NewBox(hex.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	sealed, err := box.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = box.Open("AAAA" + sealed[4:])
	assert.Error(t, err)
}

func TestBoxInvalidKey(t *testing.T) {
	_, err := NewBox("too-short")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = NewBox(hex.EncodeToString(make([]byte, 16)))
	assert.ErrorIs(t, err, ErrInvalidKey)
}
