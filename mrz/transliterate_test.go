package mrz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransliterate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Doe", "DOE"},
		{"John Allen", "JOHN ALLEN"},
		{"Müller", "MULLER"},
		{"José María", "JOSE MARIA"},
		{"Ørsted", "ORSTED"},
		{"Straße", "STRASSE"},
		{"O'Brien-Smith", "O BRIEN SMITH"},
		{"  van   der  Berg ", "VAN DER BERG"},
		{"Łukasz", "LUKASZ"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, Transliterate(tt.input))
		})
	}
}

func TestTransliteratedNamesEncodeCleanly(t *testing.T) {
	in := validInput()
	in.Surname = Transliterate("Gómez-Núñez")
	in.GivenNames = Transliterate("Zoë")

	lines, err := Generate(in)
	require.NoError(t, err)
	require.Equal(t, "P<USAGOMEZ<NUNEZ<<ZOE<<<<<<<<<<<<<<<<<<<<<<<", lines[0])
}
