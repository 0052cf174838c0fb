package pathutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devin-clone/core-backend/internal/files/domain"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"adds leading slash", "src/main.py", "/src/main.py"},
		{"keeps leading slash", "/src/main.py", "/src/main.py"},
		{"collapses duplicate separators", "src//lib///util.py", "/src/lib/util.py"},
		{"trims trailing slash", "/src/", "/src"},
		{"converts backslashes", `src\win\file.py`, "/src/win/file.py"},
		{"resolves dot segments", "/src/./main.py", "/src/main.py"},
		{"trims whitespace", "  /src/main.py  ", "/src/main.py"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeRejections(t *testing.T) {
	for _, in := range []string{"", "   ", "/", "//", "../etc/passwd", "/src/../../etc", "src/..", ".."} {
		t.Run(in, func(t *testing.T) {
			_, err := Normalize(in)
			assert.ErrorIs(t, err, domain.ErrInvalidPath)
		})
	}
}

func TestJoin(t *testing.T) {
	got, err := Join("/src", "main.py")
	require.NoError(t, err)
	assert.Equal(t, "/src/main.py", got)

	got, err = Join("/", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "/README.md", got)

	_, err = Join("/src", "..")
	assert.ErrorIs(t, err, domain.ErrInvalidPath)
}

func TestDirAndBase(t *testing.T) {
	assert.Equal(t, "/src", Dir("/src/main.py"))
	assert.Equal(t, "/", Dir("/main.py"))
	assert.Equal(t, "main.py", Base("/src/main.py"))
}

func TestLanguage(t *testing.T) {
	lang := Language("main.py")
	require.NotNil(t, lang)
	assert.Equal(t, "python", *lang)

	lang = Language("App.TSX")
	require.NotNil(t, lang)
	assert.Equal(t, "typescript", *lang)

	assert.Nil(t, Language("Makefile"))
	assert.Nil(t, Language("photo.png"))
}

func TestMimeType(t *testing.T) {
	mt := MimeType("data.json")
	require.NotNil(t, mt)
	assert.Equal(t, "application/json", *mt)

	mt = MimeType("Index.HTML")
	require.NotNil(t, mt)
	assert.True(t, strings.HasPrefix(*mt, "text/html"))

	assert.Nil(t, MimeType("Makefile"))
}
