package terminal

import (
	"bytes"
	"net/url"
	"strings"
)

var (
	oscDirPrefix = []byte("\x1b]7;")
	oscStart     = []byte("\x1b]")
	bel          = []byte{0x07}
	st           = []byte("\x1b\\")
)

// maxCarry bounds the unterminated sequence kept between reads
const maxCarry = 4096

// dirTracker extracts OSC 7 directory reports from a PTY byte stream.
// Sequences split across reads are reassembled. Not safe for concurrent use.
type dirTracker struct {
	carry []byte
}

// Feed scans chunk and returns the last directory it completes, if any
func (t *dirTracker) Feed(chunk []byte) (string, bool) {
	data := chunk
	if len(t.carry) > 0 {
		data = make([]byte, 0, len(t.carry)+len(chunk))
		data = append(data, t.carry...)
		data = append(data, chunk...)
		t.carry = nil
	}

	var dir string
	found := false
	for {
		i := bytes.Index(data, oscDirPrefix)
		if i < 0 {
			t.carry = partialPrefix(data)
			return dir, found
		}
		body := data[i+len(oscDirPrefix):]
		end, width := terminator(body)
		// a new OSC before the terminator means this one was truncated
		if next := bytes.Index(body, oscStart); next >= 0 && (end < 0 || next < end) {
			data = body[next:]
			continue
		}
		if end < 0 {
			if len(data)-i <= maxCarry {
				t.carry = bytes.Clone(data[i:])
			}
			return dir, found
		}
		if path, ok := parseFileURL(string(body[:end])); ok {
			dir, found = path, true
		}
		data = body[end+width:]
	}
}

// terminator locates the first BEL or ST in b
func terminator(b []byte) (int, int) {
	end, width := bytes.Index(b, bel), len(bel)
	if s := bytes.Index(b, st); s >= 0 && (end < 0 || s < end) {
		end, width = s, len(st)
	}
	return end, width
}

// partialPrefix returns the tail of data that could begin an OSC 7 prefix
func partialPrefix(data []byte) []byte {
	for k := len(oscDirPrefix) - 1; k > 0; k-- {
		if bytes.HasSuffix(data, oscDirPrefix[:k]) {
			return bytes.Clone(data[len(data)-k:])
		}
	}
	return nil
}

// parseFileURL turns file://host/some%20path into /some path
func parseFileURL(raw string) (string, bool) {
	rest, ok := strings.CutPrefix(raw, "file://")
	if !ok {
		return "", false
	}
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return "", false
	}
	path := rest[slash:]
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	return path, true
}
