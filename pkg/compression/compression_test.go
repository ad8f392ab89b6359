package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("id\tname\n1\tada\n"), 500)

	for _, alg := range []Algorithm{None, Gzip, Zstd} {
		t.Run(string(alg), func(t *testing.T) {
			c, err := New(alg)
			require.NoError(t, err)
			assert.Equal(t, alg, c.Algorithm())

			compressed, err := c.Compress(payload)
			require.NoError(t, err)
			if alg != None {
				assert.Less(t, len(compressed), len(payload))
			}

			got, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestContentEncoding(t *testing.T) {
	c, err := New(None)
	require.NoError(t, err)
	assert.Empty(t, c.ContentEncoding())

	c, err = New(Gzip)
	require.NoError(t, err)
	assert.Equal(t, "gzip", c.ContentEncoding())

	c, err = New(Zstd)
	require.NoError(t, err)
	assert.Equal(t, "zstd", c.ContentEncoding())
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := New(Algorithm("lz4"))
	require.Error(t, err)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	c, err := New(Gzip)
	require.NoError(t, err)
	_, err = c.Decompress([]byte("not gzip"))
	assert.Error(t, err)

	c, err = New(Zstd)
	require.NoError(t, err)
	_, err = c.Decompress([]byte("not zstd"))
	assert.Error(t, err)
}

func TestConcurrentCompress(t *testing.T) {
	c, err := New(Gzip)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("row\n"), 1000)
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			compressed, err := c.Compress(payload)
			if err != nil {
				done <- err
				return
			}
			got, err := c.Decompress(compressed)
			if err == nil && !bytes.Equal(got, payload) {
				err = assert.AnError
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
