package sound

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMatrix(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Path
		wantErr error
	}{
		{name: "empty", raw: "  ", wantErr: ErrEmptyPath},
		{name: "command", raw: "#no_sound", want: Path{Kind: KindCommand, Name: "#no_sound"}},
		{name: "voice letter", raw: "&.a", want: Voice("a")},
		{name: "voice phrase", raw: "&.gwah", want: Voice("gwah")},
		{name: "voice without sprite", raw: "&", wantErr: ErrMalformedPath},
		{name: "instrument note", raw: "%.48", want: Instrument(48)},
		{name: "instrument without note", raw: "%.x", want: Path{Kind: KindInstrument}},
		{name: "sfx", raw: "sfx.enter", want: Sfx("enter")},
		{name: "generic one", raw: "chime", want: Generic("chime")},
		{name: "generic two", raw: "f2.b", want: Generic("f2", "b")},
		{name: "generic three", raw: "inst.girl.nah", want: Generic("inst", "girl", "nah")},
		{name: "four components", raw: "a.b.c.d", wantErr: ErrMalformedPath},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestPathStringRoundTrip(t *testing.T) {
	for _, raw := range []string{"#show_window", "&.z", "%.71", "sfx.tab", "inst.girl", "zzz.nope"} {
		p, err := Parse(raw)
		require.NoError(t, err)
		require.Equal(t, raw, p.String())
	}
}

func TestCommandAddsPrefix(t *testing.T) {
	require.Equal(t, "#no_sound", Command("no_sound").String())
	require.Equal(t, "#no_sound", Command("#no_sound").String())
}
