package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddress(t *testing.T) {
	t.Run("creates address with all fields", func(t *testing.T) {
		addr, err := NewAddress("TR", "İstanbul", "Kadıköy", "34710")
		require.NoError(t, err)

		assert.Equal(t, "TR", addr.CountryCode())
		assert.Equal(t, "İstanbul", addr.Region())
		assert.Equal(t, "Kadıköy", addr.City())
		assert.Equal(t, "34710", addr.PostalCode())
	})

	t.Run("normalizes country code to upper case", func(t *testing.T) {
		addr, err := NewAddress("tr", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "TR", addr.CountryCode())
	})

	t.Run("trims whitespace", func(t *testing.T) {
		addr, err := NewAddress(" TR ", " İstanbul ", " Kadıköy ", " 34710 ")
		require.NoError(t, err)
		assert.Equal(t, "İstanbul", addr.Region())
		assert.Equal(t, "34710", addr.PostalCode())
	})

	t.Run("fails with empty country code", func(t *testing.T) {
		_, err := NewAddress("", "İstanbul", "", "")
		require.Error(t, err)
	})

	t.Run("fails with non alpha-2 country code", func(t *testing.T) {
		_, err := NewAddress("TUR", "", "", "")
		require.Error(t, err)
	})
}

func TestAddressJSON(t *testing.T) {
	t.Run("round trips through JSON", func(t *testing.T) {
		addr := MustNewAddress("TR", "İstanbul", "Kadıköy", "34710")

		data, err := json.Marshal(addr)
		require.NoError(t, err)

		var decoded Address
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, addr.Equals(decoded))
	})

	t.Run("omits empty optional fields", func(t *testing.T) {
		addr := MustNewAddress("DE", "", "", "")

		data, err := json.Marshal(addr)
		require.NoError(t, err)
		assert.JSONEq(t, `{"country_code":"DE"}`, string(data))
	})

	t.Run("rejects invalid country on unmarshal", func(t *testing.T) {
		var decoded Address
		err := json.Unmarshal([]byte(`{"country_code":""}`), &decoded)
		require.Error(t, err)
	})
}

func TestAddressString(t *testing.T) {
	addr := MustNewAddress("TR", "İstanbul", "Kadıköy", "34710")
	assert.Equal(t, "Kadıköy, İstanbul, 34710, TR", addr.String())
}
