package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-asset/internal/domain"
)

func TestDecodeSignal(t *testing.T) {
	sig, err := DecodeSignal([]byte(`{"asset_id":" WC001 ","location":"ICU","event_type":"ENTER","timestamp":"2025-07-01T08:30:00.123456"}`))
	require.NoError(t, err)
	assert.Equal(t, "WC001", sig.AssetCode)
	assert.Equal(t, DirectionEnter, sig.Direction)
	assert.Equal(t, time.Date(2025, 7, 1, 8, 30, 0, 123456000, time.UTC), sig.Timestamp)

	sig, err = DecodeSignal([]byte(`{"asset_id":"WC001","location":"Storage","event_type":"exit","timestamp":"2025-07-01T10:30:00+02:00"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 8, 30, 0, 0, time.UTC), sig.Timestamp)

	sig, err = DecodeSignal([]byte(`{"asset_id":"WC001","location":"ICU","event_type":"enter"}`))
	require.NoError(t, err)
	assert.True(t, sig.Timestamp.IsZero())
}

func TestDecodeSignal_Malformed(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"location":"ICU","event_type":"enter"}`,
		`{"asset_id":"WC001","event_type":"enter"}`,
		`{"asset_id":"WC001","location":"ICU","event_type":"wave"}`,
		`{"asset_id":"WC001","location":"ICU","event_type":"enter","timestamp":"yesterday"}`,
	} {
		_, err := DecodeSignal([]byte(raw))
		assert.ErrorIs(t, err, domain.ErrMalformedSignal, raw)
		assert.ErrorIs(t, err, domain.ErrAssetNotFound, raw)
	}
}
