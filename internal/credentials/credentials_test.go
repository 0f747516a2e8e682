package credentials

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	hash, salt, err := Hash("s3cret")
	require.NoError(t, err)
	require.Len(t, hash, keyLen)
	require.Len(t, salt, saltLen)
	require.NotContains(t, string(hash), "s3cret")

	require.True(t, Verify("s3cret", hash, salt))
	require.False(t, Verify("S3cret", hash, salt))
	require.False(t, Verify("", hash, salt))
	require.False(t, Verify("s3cret", nil, salt))
}

func TestHash_UsesFreshSalt(t *testing.T) {
	t.Parallel()

	h1, s1, err := Hash("same")
	require.NoError(t, err)
	h2, s2, err := Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, s1, s2)
	require.NotEqual(t, h1, h2)
}
