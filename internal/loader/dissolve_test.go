package loader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDissolveBundleValid(t *testing.T) {
	const doc = `{"dissolve_patterns": {"0": [[0,100,0,4],[200,100,5,9]], "1": []}}`
	patterns, err := LoadDissolveBundle([]byte(doc))
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	p0 := patterns[0]
	require.Len(t, p0.Bands, 2)
	require.Equal(t, 0, p0.Bands[0].DelayMs)
	require.Equal(t, 4, p0.Bands[0].EndLED)

	p1 := patterns[1]
	require.True(t, p1.IsInstantaneous())
}

func TestLoadDissolveBundleSwapsInvertedRange(t *testing.T) {
	const doc = `{"dissolve_patterns": {"0": [[0,100,9,3]]}}`
	patterns, err := LoadDissolveBundle([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 3, patterns[0].Bands[0].StartLED)
	require.Equal(t, 9, patterns[0].Bands[0].EndLED)
}

func TestLoadDissolveBundleRejectsBadKey(t *testing.T) {
	const doc = `{"dissolve_patterns": {"oops": [[0,100,0,4]]}}`
	_, err := LoadDissolveBundle([]byte(doc))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
