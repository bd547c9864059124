package ontology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadata/steward/errors"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"amount", "date", "email", "id", "pii"}, reg.Types())

	email, ok := reg.Lookup("email")
	require.True(t, ok)
	assert.Contains(t, email.RequiredValidations, "format")
	assert.True(t, email.Forbids("coalesce"))
	assert.False(t, email.Forbids("cast_integer"))
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	_, ok := reg.Lookup("PII")
	assert.True(t, ok)

	_, ok = reg.Lookup("geolocation")
	assert.False(t, ok, "unknown semantic type is out of policy scope, not an error")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.yaml")
	content := `
phone:
  required_validations: [format]
  forbidden_transformations: [replace]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)

	phone, ok := reg.Lookup("phone")
	require.True(t, ok)
	assert.Equal(t, []string{"format"}, phone.RequiredValidations)
	assert.True(t, phone.Forbids("replace"))

	_, ok = reg.Lookup("email")
	assert.False(t, ok, "an explicit ontology file fully replaces the default")
}

func TestLoadFailuresAreConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsConfigError(err))
	})

	t.Run("malformed document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{[not yaml"), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsConfigError(err))
	})

	t.Run("empty document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsConfigError(err))
	})
}
