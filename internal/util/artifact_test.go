package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpeners(t *testing.T) {
	t.Parallel()

	xlsx := "/tmp/Progresiones MMAA - Agosto.xlsx"
	assert.Equal(t, [][]string{
		{"xdg-open", xlsx},
		{"gio", "open", xlsx},
		{"libreoffice", "--calc", xlsx},
	}, openers("linux", xlsx))

	zip := "/tmp/Progresiones MMAA - Agosto.zip"
	assert.Equal(t, []string{"xdg-open", "/tmp"}, openers("linux", zip)[2])
	assert.Equal(t, [][]string{{"open", zip}, {"open", "-R", zip}}, openers("darwin", zip))
	assert.Len(t, openers("darwin", xlsx), 1)

	win := `C:\out\Progresiones.CSV`
	got := openers("windows", win)
	assert.Equal(t, []string{"rundll32", "url.dll,FileProtocolHandler", win}, got[0])
	assert.Equal(t, []string{"explorer", "/select,", win}, got[1])
}

func TestOpenArtifact_RejectsMissingAndDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	assert.Error(t, OpenArtifact(filepath.Join(dir, "nope.xlsx")))
	assert.Error(t, OpenArtifact(dir))
}
