package cookie_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mauv0809/apa-scorekeeper/internal/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileJar_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")

	jar, err := cookie.OpenFileJar(path)
	require.NoError(t, err)
	assert.Empty(t, jar.Names())

	require.True(t, jar.Set("apa9_current_match", "p1abc"))
	require.True(t, jar.Set("apa9_match_history", "z1def"))
	jar.Delete("apa9_match_history")

	reopened, err := cookie.OpenFileJar(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"apa9_current_match"}, reopened.Names())
	v, ok := reopened.Get("apa9_current_match")
	assert.True(t, ok)
	assert.Equal(t, "p1abc", v)
}

func TestFileJar_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	jar, err := cookie.OpenFileJar(path)
	require.NoError(t, err)
	assert.Empty(t, jar.Names())
}

func TestSizeOf(t *testing.T) {
	jar := cookie.NewMemoryJar()
	jar.Set("a", "123")
	jar.Set("bb", "")

	// "a=123; " + "bb=; "
	assert.Equal(t, 7+5, cookie.SizeOf(jar))
}
