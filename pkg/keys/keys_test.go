package keys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landlock/pkg/domain"
)

func TestGenerateRoundTrip(t *testing.T) {
	pub, priv, err := Generate()
	require.NoError(t, err)

	parsed, err := domain.ParsePublicKey(pub.String())
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)
	assert.Equal(t, pub, PublicOf(priv))
}

func TestSaveLoadPrivateKey(t *testing.T) {
	_, priv, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "registrar.key")
	require.NoError(t, SavePrivateKey(path, priv))

	loaded, err := LoadPrivateKey(path)
	require.NoError(t, err)
	assert.Equal(t, priv, loaded)
}

func TestLoadPrivateKeyRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.key")
	require.NoError(t, SavePrivateKey(path, make([]byte, 64)))

	// Truncate to an invalid size.
	short := filepath.Join(t.TempDir(), "short.key")
	require.NoError(t, SavePrivateKey(short, make([]byte, 12)))
	_, err := LoadPrivateKey(short)
	assert.Error(t, err)
}
