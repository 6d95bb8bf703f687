package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToUTF8PassesThroughUTF8(t *testing.T) {
	body := []byte("<html><body>Größe €</body></html>")

	out, err := ToUTF8(body, "text/html; charset=utf-8")
	assert.NoError(t, err)
	assert.Equal(t, string(body), out)
}

func TestToUTF8ConvertsLatin1(t *testing.T) {
	// "Größe" in ISO-8859-1
	body := []byte{'<', 'p', '>', 'G', 'r', 0xf6, 0xdf, 'e', '<', '/', 'p', '>'}

	out, err := ToUTF8(body, "text/html; charset=iso-8859-1")
	assert.NoError(t, err)
	assert.Equal(t, "<p>Größe</p>", out)
}

func TestToUTF8UsesMetaCharset(t *testing.T) {
	body := []byte(`<html><head><meta charset="windows-1252"></head><body>caf` + "\xe9" + `</body></html>`)

	out, err := ToUTF8(body, "text/html")
	assert.NoError(t, err)
	assert.Contains(t, out, "café")
}
