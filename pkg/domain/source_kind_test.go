package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

func TestParseSourceKind(t *testing.T) {
	t.Run("accepts supported kinds", func(t *testing.T) {
		for _, s := range []string{"passport_stamp", "email_booking", "manual"} {
			k, err := ParseSourceKind(s)
			require.NoError(t, err)
			assert.Equal(t, s, k.String())
		}
	})

	t.Run("rejects empty and unknown", func(t *testing.T) {
		for _, s := range []string{"", "ocr", "PASSPORT_STAMP", "stamp"} {
			_, err := ParseSourceKind(s)
			require.Error(t, err, "input %q", s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})
}

// Manual entries must outrank stamps, which outrank bookings; this ordering
// is what conflict tie-breaking is built on.
func TestSourceKindPriority(t *testing.T) {
	assert.Greater(t, SourceManual.Priority(), SourcePassportStamp.Priority())
	assert.Greater(t, SourcePassportStamp.Priority(), SourceEmailBooking.Priority())
	assert.Equal(t, 0, SourceKind("bogus").Priority())
}
