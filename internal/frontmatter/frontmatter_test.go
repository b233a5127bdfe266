package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\nkey: value\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
	require.False(t, had)
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\r\nkey: value\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyFrontmatter(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\nbody\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("body\n"), body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\ntitle: x\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: x\n"), fm)
	require.Empty(t, body)
}

func TestSplit_IgnoresBOM(t *testing.T) {
	_, body, had, err := Split([]byte("\xEF\xBB\xBF---\ntitle: x\n---\nbody"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("body"), body)
}

func TestParse_DecodesFields(t *testing.T) {
	doc, err := Parse([]byte("---\ntitle: Germinal\ncreator:\n  en: Emile Zola\n  fr: Émile Zola\n---\n# Germinal\n"))
	require.NoError(t, err)
	assert.True(t, doc.HadFrontmatter)
	assert.Equal(t, "Germinal", doc.Fields["title"])
	m, ok := StringMap(doc.Fields["creator"])
	require.True(t, ok)
	assert.Equal(t, map[string]string{"en": "Emile Zola", "fr": "Émile Zola"}, m)
	assert.Equal(t, []byte("# Germinal\n"), doc.Body)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: [unclosed\n---\n"))
	require.Error(t, err)
}

func TestParseYAML_BlankIsEmptyMap(t *testing.T) {
	fields, err := ParseYAML([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, fields)
	assert.NotNil(t, fields)
}

func TestScalar(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{"x", "x", true},
		{true, "true", true},
		{1885, "1885", true},
		{1.5, "1.5", true},
		{time.Date(1885, 3, 2, 0, 0, 0, 0, time.UTC), "1885-03-02", true},
		{[]any{"a"}, "", false},
		{nil, "", false},
	}
	for _, tc := range cases {
		got, ok := Scalar(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"a"}, Strings("a"))
	assert.Equal(t, []string{"a", "2"}, Strings([]any{"a", 2, " ", map[string]any{}}))
	assert.Nil(t, Strings(map[string]any{"en": "x"}))
}
