package lightmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	t.Run("地址编码", func(t *testing.T) {
		v, err := ParseAddress("1111")
		require.NoError(t, err)
		assert.Equal(t, uint8(0x00), v)

		v, err = ParseAddress("4444")
		require.NoError(t, err)
		assert.Equal(t, uint8(0xff), v)

		v, err = ParseAddress("1234")
		require.NoError(t, err)
		assert.Equal(t, uint8(0x1b), v)

		v, err = ParseAddress("12")
		require.NoError(t, err)
		assert.Equal(t, uint8(0x01), v)
	})

	t.Run("住宅码编码", func(t *testing.T) {
		v, err := ParseHousecode("11111111")
		require.NoError(t, err)
		assert.Equal(t, uint16(0x0000), v)

		v, err = ParseHousecode("44444444")
		require.NoError(t, err)
		assert.Equal(t, uint16(0xffff), v)

		v, err = ParseHousecode("12341234")
		require.NoError(t, err)
		assert.Equal(t, uint16(0x1b1b), v)
	})

	t.Run("非法输入", func(t *testing.T) {
		for _, s := range []string{"", "1", "123", "9999", "1150", "12a4", "111111111111"} {
			_, err := ParseHousecode(s)
			assert.ErrorIs(t, err, ErrInvalidCode, s)
		}
		_, err := ParseAddress("111111")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestCodeRoundTrip(t *testing.T) {
	digits := []byte{'1', '2', '3', '4'}
	for _, a := range digits {
		for _, b := range digits {
			for _, c := range digits {
				for _, d := range digits {
					s := string([]byte{a, b, c, d})
					v, err := ParseCode(s, 4)
					require.NoError(t, err)
					assert.Equal(t, s, FormatCode(v, 4))
				}
			}
		}
	}
}

func TestFormatHousecode(t *testing.T) {
	assert.Equal(t, "11111111", FormatHousecode(0))
	assert.Equal(t, "44444444", FormatHousecode(0xffff))
	assert.Equal(t, "11111234", FormatHousecode(0x001b))
}

func TestToBCD(t *testing.T) {
	assert.Equal(t, byte(0x00), toBCD(0))
	assert.Equal(t, byte(0x09), toBCD(9))
	assert.Equal(t, byte(0x59), toBCD(59))
	assert.Equal(t, byte(0x24), toBCD(24))
}
