package playback

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/sound"
)

// Mode selects the substitution policy applied to every play request.
type Mode int

const (
	ModeNormal Mode = iota
	// ModeVoiceOnly silences SFX triggers.
	ModeVoiceOnly
	// ModeSfxOnly silences voice triggers.
	ModeSfxOnly
	ModeRandom
)

var modeNames = map[Mode]string{
	ModeNormal:    "normal",
	ModeVoiceOnly: "voice_only",
	ModeSfxOnly:   "sfx_only",
	ModeRandom:    "random",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode accepts a mode name or its numeric code.
func ParseMode(raw string) (Mode, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for mode, name := range modeNames {
		if raw == name || raw == strconv.Itoa(int(mode)) {
			return mode, nil
		}
	}
	return ModeNormal, fmt.Errorf("unknown playback mode %q", raw)
}

const (
	silencedSfx    = "default"
	randomNoteBase = 36
	randomNoteSpan = 36
)

type policy interface {
	substitute(p sound.Path, r *rand.Rand) sound.Path
}

type normalPolicy struct{}

func (normalPolicy) substitute(p sound.Path, _ *rand.Rand) sound.Path { return p }

type voiceOnlyPolicy struct{}

func (voiceOnlyPolicy) substitute(p sound.Path, _ *rand.Rand) sound.Path {
	if p.Kind == sound.KindSfx {
		return sound.Sfx(silencedSfx)
	}
	return p
}

type sfxOnlyPolicy struct{}

func (sfxOnlyPolicy) substitute(p sound.Path, _ *rand.Rand) sound.Path {
	if p.Kind == sound.KindVoice {
		return sound.Sfx(silencedSfx)
	}
	return p
}

type randomPolicy struct {
	letters []string
	sfx     []string
}

func (rp randomPolicy) substitute(p sound.Path, r *rand.Rand) sound.Path {
	switch p.Kind {
	case sound.KindVoice:
		return sound.Voice(rp.letters[r.IntN(len(rp.letters))])
	case sound.KindInstrument:
		return sound.Instrument(randomNoteBase + r.IntN(randomNoteSpan))
	case sound.KindSfx:
		return sound.Sfx(rp.sfx[r.IntN(len(rp.sfx))])
	default:
		return p
	}
}

func policyFor(mode Mode, noRandom bool) policy {
	switch mode {
	case ModeVoiceOnly:
		return voiceOnlyPolicy{}
	case ModeSfxOnly:
		return sfxOnlyPolicy{}
	case ModeRandom:
		if noRandom {
			return normalPolicy{}
		}
		return randomPolicy{letters: catalog.VoiceLetters(), sfx: catalog.SfxNames()}
	default:
		return normalPolicy{}
	}
}
