// Package textenc turns raw process output into valid UTF-8 text.
//
// Valid UTF-8 passes through untouched. Otherwise the charset is detected and,
// when detection is confident enough, the bytes are transcoded. Anything else
// is decoded lossily, with invalid sequences replaced by U+FFFD.
package textenc

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

const (
	// MinDetectLen is the shortest input worth running detection on
	MinDetectLen = 16
	// MinConfidence is the chardet confidence (0-100) required to transcode
	MinConfidence = 60
)

// Decode converts b to a UTF-8 string
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	if len(b) >= MinDetectLen {
		if s, ok := transcode(b); ok {
			return s
		}
	}
	return Lossy(b)
}

// Lossy decodes b as UTF-8, replacing each invalid sequence with U+FFFD
func Lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// DetectCharset returns the best-guess charset name and its confidence
func DetectCharset(b []byte) (string, int) {
	result, err := chardet.NewTextDetector().DetectBest(b)
	if err != nil || result == nil {
		return "utf-8", 0
	}
	return strings.ToLower(result.Charset), result.Confidence
}

func transcode(b []byte) (string, bool) {
	name, confidence := DetectCharset(b)
	if confidence < MinConfidence || name == "utf-8" {
		return "", false
	}
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}
