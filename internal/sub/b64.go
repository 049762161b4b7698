package sub

import (
	"encoding/base64"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	errUnknownScheme = errors.New("unknown link scheme")
	errBadLink       = errors.New("malformed link")
)

func decodeB64ToString(s string) (string, error) {
	b, err := decodeB64ToBytes(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded content is not valid utf-8")
	}
	return string(b), nil
}

func decodeB64ToBytes(s string) ([]byte, error) {
	// Try standard alphabet (with padding) first, then URL-safe, then raw
	// (no padding). Sources are inconsistent about all three.
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func parseHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	portInt, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", 0, err
	}
	if portInt < 1 || portInt > 65535 {
		return "", 0, errors.New("port out of range")
	}
	return host, portInt, nil
}

// cutFragment splits off the #name fragment and percent-decodes it.
// A fragment that fails to decode is used verbatim; node names are
// display-only.
func cutFragment(s string) (rest, name string) {
	rest, frag, ok := strings.Cut(s, "#")
	if !ok {
		return rest, ""
	}
	decoded, err := url.PathUnescape(frag)
	if err != nil {
		decoded = frag
	}
	name = strings.TrimSpace(decoded)
	if strings.ContainsAny(name, "\r\n\x00") {
		name = ""
	}
	return rest, name
}

func stripUTF8BOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// parseQueryLoose splits a raw query into key/value pairs the way the
// sources actually write them: '&'-separated, '='-cut, values kept
// verbatim (no percent-decoding), pairs without '=' dropped.
func parseQueryLoose(query string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
