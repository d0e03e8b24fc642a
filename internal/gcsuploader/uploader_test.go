package gcsuploader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2025, time.March, 4, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "receipts/u-1/2025/03/abc-till.jpg", ObjectName("u-1", "till.jpg", at, "abc"))
	assert.Equal(t, "receipts/a_b/2025/03/abc-.._x.png", ObjectName("a/b", "../x.png", at, "abc"))
	assert.Equal(t, "receipts/unnamed/2025/03/abc-unnamed", ObjectName(" ", "", at, "abc"))
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := ParseGCSURI("gs://my-bucket/receipts/u/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "receipts/u/a.jpg", object)

	for _, bad := range []string{"s3://b/o", "gs://bucket", "gs://bucket/", "gs:///o"} {
		_, _, err := ParseGCSURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestGCSURIRoundTrip(t *testing.T) {
	uri := GCSURI("b", "receipts/x/y.jpg")
	assert.Equal(t, "gs://b/receipts/x/y.jpg", uri)
	assert.Equal(t, "y.jpg", ExtractFilenameFromGCSURI(uri))
	assert.Equal(t, "bucket", ExtractFilenameFromGCSURI("gs://bucket"))
}
