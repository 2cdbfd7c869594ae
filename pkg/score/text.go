package score

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// DecodeText converts SMF meta text to UTF-8. Meta events carry no
// encoding; text that is not valid UTF-8 is read as Shift_JIS, which is
// what Japanese sequencers write.
func DecodeText(raw string) string {
	if utf8.ValidString(raw) {
		return strings.TrimRight(raw, "\x00")
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().String(raw)
	if err != nil {
		return strings.ToValidUTF8(raw, "?")
	}
	return strings.TrimRight(decoded, "\x00")
}
