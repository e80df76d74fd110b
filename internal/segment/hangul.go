package segment

import "strings"

const (
	nucleusCount = 21
	codaCount    = 28
)

var (
	onsets = []string{"ㄱ", "ㄲ", "ㄴ", "ㄷ", "ㄸ", "ㄹ", "ㅁ", "ㅂ", "ㅃ", "ㅅ", "ㅆ", "ㅇ", "ㅈ", "ㅉ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ"}
	nuclei = []string{"ㅏ", "ㅐ", "ㅑ", "ㅒ", "ㅓ", "ㅔ", "ㅕ", "ㅖ", "ㅗ", "ㅘ", "ㅙ", "ㅚ", "ㅛ", "ㅜ", "ㅝ", "ㅞ", "ㅟ", "ㅠ", "ㅡ", "ㅢ", "ㅣ"}
	codas  = []string{"", "ㄱ", "ㄲ", "ㄳ", "ㄴ", "ㄵ", "ㄶ", "ㄷ", "ㄹ", "ㄺ", "ㄻ", "ㄼ", "ㄽ", "ㄾ", "ㄿ", "ㅀ", "ㅁ", "ㅂ", "ㅄ", "ㅅ", "ㅆ", "ㅇ", "ㅈ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ"}
)

// jamoLatin maps each jamo to the letters voiced for it. The silent ㅇ maps
// to nothing.
var jamoLatin = map[string]string{
	"ㄱ": "g", "ㄲ": "kk", "ㄳ": "gs",
	"ㄴ": "n", "ㄵ": "nj", "ㄶ": "nh",
	"ㄷ": "d", "ㄸ": "dd",
	"ㄹ": "r", "ㄺ": "rg", "ㄻ": "rm", "ㄼ": "rb", "ㄽ": "rs", "ㄾ": "rt", "ㄿ": "rp", "ㅀ": "rh",
	"ㅁ": "m",
	"ㅂ": "b", "ㅃ": "bb", "ㅄ": "bs",
	"ㅅ": "s", "ㅆ": "ss",
	"ㅇ": "",
	"ㅈ": "j", "ㅉ": "jj",
	"ㅊ": "ch",
	"ㅋ": "k",
	"ㅌ": "t",
	"ㅍ": "p",
	"ㅎ": "h",

	"ㅏ": "a", "ㅐ": "ae", "ㅑ": "ya", "ㅒ": "yae",
	"ㅓ": "eo", "ㅔ": "e", "ㅕ": "yeo", "ㅖ": "ye",
	"ㅗ": "o", "ㅘ": "wa", "ㅙ": "wae", "ㅚ": "wi", "ㅛ": "yo",
	"ㅜ": "u", "ㅝ": "wo", "ㅞ": "we", "ㅟ": "wi", "ㅠ": "yu",
	"ㅡ": "eu", "ㅢ": "ui", "ㅣ": "i",
}

// Decompose splits Hangul syllables into onset, nucleus and coda jamo. An
// empty coda is omitted; anything else passes through as-is.
func Decompose(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		if r < hangulSyllableFirst || r > hangulSyllableLast {
			out = append(out, string(r))
			continue
		}
		idx := int(r - hangulSyllableFirst)
		out = append(out, onsets[idx/(nucleusCount*codaCount)])
		out = append(out, nuclei[(idx%(nucleusCount*codaCount))/codaCount])
		if coda := codas[idx%codaCount]; coda != "" {
			out = append(out, coda)
		}
	}
	return out
}

// Romanize decomposes text and maps every jamo to Latin letters. Unmapped
// units pass through unchanged.
func Romanize(text string) string {
	var b strings.Builder
	for _, unit := range Decompose(text) {
		if latin, ok := jamoLatin[unit]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteString(unit)
	}
	return b.String()
}
