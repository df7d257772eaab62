package postcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Postcode{
		"BT1 5GS":   {Outward: "BT1", Inward: "5GS"},
		"bt15gs":    {Outward: "BT1", Inward: "5GS"},
		" bt48 7nn": {Outward: "BT48", Inward: "7NN"},
		"BT9":       {Outward: "BT9"},
		"bt 79":     {Outward: "BT79"},
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	pc, err := Parse("bt15gs")
	require.NoError(t, err)
	require.Equal(t, "BT1 5GS", pc.String())
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "12345", "BT", "BTX 1AA", "hello world"} {
		_, err := Parse(in)
		require.ErrorIs(t, err, ErrInvalidPostcode, in)
	}
	for _, in := range []string{"SW1A 1AA", "B1 1AA", "BS1"} {
		_, err := Parse(in)
		require.ErrorIs(t, err, ErrOutsideCoverage, in)
	}
}
