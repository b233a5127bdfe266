package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain words", "Hello World", "hello_world"},
		{"diacritics", "Élodie Müller", "elodie_muller"},
		{"punctuation run", "a  --  b!!c", "a_--_b_c"},
		{"keeps underscore and hyphen", "foo_bar-baz", "foo_bar-baz"},
		{"surrounding whitespace", "  Émile Zola \t", "emile_zola"},
		{"apostrophe", "L'Assommoir", "l_assommoir"},
		{"non latin", "東京 tower", "_tower"},
		{"blank", "   ", Unknown},
		{"empty", "", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	inputs := []string{"Émile Zola", "Les Rougon-Macquart", "  Victor   Hugo  "}
	for _, in := range inputs {
		first := Normalize(in)
		for range 5 {
			assert.Equal(t, first, Normalize(in))
		}
		assert.Equal(t, first, Normalize(first), "slug of a slug is stable")
	}
}

func TestUnique(t *testing.T) {
	taken := sets.New("index", "germinal", "germinal_2", "nana")

	assert.Equal(t, "assommoir", Unique("assommoir", taken, ""))
	assert.Equal(t, "germinal_3", Unique("germinal", taken, ""))
	assert.Equal(t, "germinal", Unique("germinal", taken, "germinal"), "own previous name is reusable")
	assert.Equal(t, "nana_2", Unique("nana", taken, "germinal"))
	assert.Equal(t, "index_2", Unique("index", taken, ""))
	assert.Equal(t, "x", Unique("x", nil, ""))
}
