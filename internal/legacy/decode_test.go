package legacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDPlainString(t *testing.T) {
	assert.Equal(t, "65a1b2c3", ID("65a1b2c3"))
}

func TestIDObjectWrapped(t *testing.T) {
	assert.Equal(t, "65a1b2c3", ID(map[string]interface{}{"$oid": "65a1b2c3"}))
}

func TestIDNil(t *testing.T) {
	assert.Equal(t, "", ID(nil))
}

func TestDateEpochWrapperMatchesRawEpoch(t *testing.T) {
	wrapped, ok := Date(map[string]interface{}{"$date": float64(1700000000000)})
	require.True(t, ok)

	raw, ok := Date(float64(1700000000000))
	require.True(t, ok)

	assert.Equal(t, raw, wrapped)
	assert.Equal(t, int64(1700000000000), wrapped.UnixMilli())
}

func TestDateWrapperWithStringValue(t *testing.T) {
	parsed, ok := Date(map[string]interface{}{"$date": "2023-11-14T22:13:20Z"})
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), parsed.UnixMilli())
}

func TestDateTimestampSeconds(t *testing.T) {
	parsed, ok := Date(map[string]interface{}{"$timestamp": map[string]interface{}{"t": float64(1700000000)}})
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), parsed.UnixMilli())
}

func TestDateISODateWrapper(t *testing.T) {
	parsed, ok := Date(`ISODate("2023-11-14T22:13:20Z")`)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), parsed.UnixMilli())
}

func TestDatePlainString(t *testing.T) {
	parsed, ok := Date("2023-11-14")
	require.True(t, ok)
	assert.Equal(t, 2023, parsed.Year())
	assert.Equal(t, time.November, parsed.Month())
}

func TestDateUnparseable(t *testing.T) {
	_, ok := Date("not a date at all")
	assert.False(t, ok)

	_, ok = Date(nil)
	assert.False(t, ok)

	_, ok = Date(map[string]interface{}{"$unknown": true})
	assert.False(t, ok)
}

func TestDisplayPlaceholder(t *testing.T) {
	assert.Equal(t, InvalidDatePlaceholder, Display("garbage"))
	assert.Equal(t, InvalidDatePlaceholder, Display(nil))
}

func TestDisplayFormats(t *testing.T) {
	assert.Equal(t, "14.11.2023 22:13", Display(map[string]interface{}{"$date": float64(1700000000000)}))
}
