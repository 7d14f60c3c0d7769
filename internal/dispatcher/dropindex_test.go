package dispatcher

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintql/dispatch-api/internal/compute"
)

func TestDropIndexJobIDRoundTrip(t *testing.T) {
	for _, status := range []string{
		compute.JobStateSuccess,
		compute.JobStateFailed,
		compute.JobStateCancelled,
		"",
	} {
		encoded := encodeDropIndexJobID(status)

		decoded, err := decodeDropIndexJobID(encoded)
		require.NoError(t, err, "status %q", status)
		assert.Equal(t, status, decoded)
	}
}

func TestDropIndexJobIDEncodingsDiffer(t *testing.T) {
	// The random prefix keeps ids textually distinct, but both must decode
	// to the same status.
	first := encodeDropIndexJobID(compute.JobStateSuccess)
	second := encodeDropIndexJobID(compute.JobStateSuccess)
	assert.NotEqual(t, first, second)

	for _, id := range []string{first, second} {
		decoded, err := decodeDropIndexJobID(id)
		require.NoError(t, err)
		assert.Equal(t, compute.JobStateSuccess, decoded)
	}
}

func TestDecodeDropIndexJobIDRejectsMalformedInput(t *testing.T) {
	_, err := decodeDropIndexJobID("not base64!!!")
	assert.Error(t, err)

	// Valid base64 but shorter than the random prefix.
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	_, err = decodeDropIndexJobID(short)
	assert.Error(t, err)
}

func TestDropIndexResultShapes(t *testing.T) {
	success := dropIndexResult(compute.JobStateSuccess)
	assert.Equal(t, compute.JobStateSuccess, success.Status)
	assert.Empty(t, success.Error)
	require.NotNil(t, success.Data)
	assert.Contains(t, success.Data, "result")
	assert.Contains(t, success.Data, "schema")

	failed := dropIndexResult(compute.JobStateFailed)
	assert.Equal(t, compute.JobStateFailed, failed.Status)
	assert.Equal(t, "failed to drop index", failed.Error)
	assert.Nil(t, failed.Data)
}
