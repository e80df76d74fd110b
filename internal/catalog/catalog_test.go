package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoiceSpriteOffsets(t *testing.T) {
	c := New(Options{})

	tests := []struct {
		key      string
		offset   float64
		duration float64
	}{
		{key: "a", offset: 0, duration: 200},
		{key: "z", offset: 5000, duration: 200},
		{key: "1", offset: 5200, duration: 200},
		{key: "0", offset: 7000, duration: 200},
		{key: "ok", offset: 7200, duration: 600},
		{key: "gwah", offset: 7800, duration: 600},
		{key: "deska", offset: 8400, duration: 600},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			entry, err := c.Lookup(Ref{Bank: BankVoice, Sub: "m3", Key: tc.key})
			require.NoError(t, err)
			require.Equal(t, "voice/m3.ogg", entry.Container)
			require.Equal(t, tc.offset, entry.OffsetMs)
			require.Equal(t, tc.duration, entry.DurationMs)
		})
	}
}

func TestSfxTable(t *testing.T) {
	c := New(Options{Extension: ".wav"})

	names := SfxNames()
	require.Len(t, names, 29)
	require.Equal(t, "default", names[21])

	entry, err := c.Lookup(Ref{Bank: BankSfx, Key: "percent"})
	require.NoError(t, err)
	require.Equal(t, Entry{Container: "sfx.wav", OffsetMs: 600 * 28, DurationMs: 600}, entry)
}

func TestInstrumentBanks(t *testing.T) {
	c := New(Options{})

	keys, err := c.InstrumentKeys("girl")
	require.NoError(t, err)
	require.Equal(t, []string{"me", "me2", "nah", "now", "oh", "oh2", "way"}, keys)

	entry, err := c.Lookup(Ref{Bank: BankInstrument, Sub: "girl", Key: "way"})
	require.NoError(t, err)
	require.Equal(t, Entry{Container: "instrument/girl.ogg", OffsetMs: 6000, DurationMs: 2000}, entry)

	keys, err = c.InstrumentKeys("organ")
	require.NoError(t, err)
	require.Equal(t, []string{"organ"}, keys)

	entry, err = c.Lookup(Ref{Bank: BankInstrument, Sub: "organ", Key: "organ"})
	require.NoError(t, err)
	require.Equal(t, Entry{Container: "instrument/organ.ogg", OffsetMs: 0, DurationMs: 1000}, entry)

	again, err := c.InstrumentKeys("organ")
	require.NoError(t, err)
	require.Equal(t, keys, again)
}

func TestLookupUnknown(t *testing.T) {
	c := New(Options{})

	for _, ref := range []Ref{
		{Bank: BankVoice, Sub: "x9", Key: "a"},
		{Bank: BankVoice, Sub: "f1", Key: "nope"},
		{Bank: BankSfx, Key: "nope"},
		{Bank: BankInstrument, Sub: "kazoo", Key: "nah"},
		{Bank: BankGeneric},
	} {
		_, err := c.Lookup(ref)
		require.ErrorIs(t, err, ErrUnknownSprite, ref.String())
	}
}

func TestResolveGeneric(t *testing.T) {
	c := New(Options{})

	ref, err := c.ResolveGeneric([]string{"f2", "b"})
	require.NoError(t, err)
	require.Equal(t, Ref{Bank: BankVoice, Sub: "f2", Key: "b"}, ref)

	ref, err = c.ResolveGeneric([]string{"inst", "boy", "oh"})
	require.NoError(t, err)
	require.Equal(t, Ref{Bank: BankInstrument, Sub: "boy", Key: "oh"}, ref)

	ref, err = c.ResolveGeneric([]string{"chime"})
	require.NoError(t, err)
	entry, err := c.Lookup(ref)
	require.NoError(t, err)
	require.Equal(t, Entry{Container: "chime.ogg"}, entry)

	_, err = c.ResolveGeneric([]string{"zzz", "nope"})
	require.ErrorIs(t, err, ErrUnknownSprite)
}

func TestContainersListsEveryBank(t *testing.T) {
	containers := New(Options{}).Containers()
	require.Len(t, containers, len(VoiceTypes)+len(SingingInstruments)+len(PlainInstruments)+1)
	require.Contains(t, containers, "sfx.ogg")
	require.Contains(t, containers, "voice/f1.ogg")
	require.Contains(t, containers, "instrument/whistle.ogg")
}
