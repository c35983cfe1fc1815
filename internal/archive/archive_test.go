package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestOverlayZipStripsTopLevel(t *testing.T) {
	src := filepath.Join(t.TempDir(), "boilerplate.zip")
	writeZip(t, src, map[string]string{
		"boilerplate/client/src/App.jsx": "export default function App() {}\n",
		"boilerplate/README.md":          "# boilerplate\n",
	})

	dest := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "client", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "client", "src", "App.jsx"), []byte("old"), 0o644))

	n, err := Overlay(src, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "export default function App() {}\n", read(t, filepath.Join(dest, "client", "src", "App.jsx")))
	assert.Equal(t, "# boilerplate\n", read(t, filepath.Join(dest, "README.md")))
	assert.NoDirExists(t, filepath.Join(dest, "boilerplate"))
}

func TestOverlayTarGzKeepsMultipleRoots(t *testing.T) {
	src := filepath.Join(t.TempDir(), "extra.tar.gz")
	writeTarGz(t, src, map[string]string{
		"server/seed.js": "seed()\n",
		"client/.env":    "VITE_X=1\n",
	})

	dest := t.TempDir()
	n, err := Overlay(src, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "seed()\n", read(t, filepath.Join(dest, "server", "seed.js")))
	assert.Equal(t, "VITE_X=1\n", read(t, filepath.Join(dest, "client", ".env")))
}

func TestOverlayRejectsEscapingEntries(t *testing.T) {
	src := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, src, map[string]string{"../evil.txt": "pwned"})

	dest := t.TempDir()
	_, err := Overlay(src, dest)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil.txt"))
}

func TestOverlayDirectory(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "client", "public"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "client", "public", "robots.txt"), []byte("User-agent: *\n"), 0o644))

	dest := t.TempDir()
	n, err := Overlay(src, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "User-agent: *\n", read(t, filepath.Join(dest, "client", "public", "robots.txt")))
}

func TestOverlayUnsupported(t *testing.T) {
	src := filepath.Join(t.TempDir(), "template.rar")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	_, err := Overlay(src, t.TempDir())
	assert.ErrorContains(t, err, "unsupported archive format")
	assert.False(t, Supported(src))

	_, err = Overlay(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	tests := map[string]string{
		"a.zip":      ".zip",
		"a.7z":       ".7z",
		"a.tar":      ".tar",
		"a.TAR.GZ":   ".tar.gz",
		"a.tgz":      ".tgz",
		"a.tar.bz2":  ".tar.bz2",
		"a.tar.xz":   ".tar.xz",
		"a.gz":       "",
		"a.template": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, format(in), in)
	}
}
