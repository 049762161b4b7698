// Package sub parses raw proxy-source content into model.Proxy nodes.
//
// Free-list sources are dirty: mixed protocols, stray text, whole-body
// or per-line base64 wrapping, sometimes a full Clash document. Parsing
// is therefore lenient — an unparseable line is skipped and counted, and
// only the caller decides whether "nothing parsed at all" is fatal.
package sub

import (
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// ParseSourceText parses one fetched source body. sourceURL is only used
// for diagnostics. skipped counts lines that looked like node links but
// could not be parsed.
func ParseSourceText(sourceURL, content string) (proxies []model.Proxy, skipped int) {
	s := stripUTF8BOM(content)

	// A Clash document wins over line-wise parsing: sources that publish
	// full configs would otherwise look like a wall of unparseable lines.
	if looksLikeClashDoc(s) {
		if nodes := parseClashDoc(s); len(nodes) > 0 {
			return nodes, 0
		}
	}

	return parseLines(sourceURL, s)
}

func parseLines(sourceURL, s string) (proxies []model.Proxy, skipped int) {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Whole-line base64 usually wraps a nested list of links.
		if looksLikeBase64(line) {
			if decoded, err := decodeB64ToString(line); err == nil && isText(decoded) {
				nested, nestedSkipped := parseLines(sourceURL, stripUTF8BOM(decoded))
				proxies = append(proxies, nested...)
				skipped += nestedSkipped
				continue
			}
			// Not valid base64 after all; fall through and try it as a link.
		}

		p, err := parseLink(line)
		if err != nil {
			skipped++
			continue
		}
		proxies = append(proxies, p)
	}
	return proxies, skipped
}

func parseLink(line string) (model.Proxy, error) {
	switch {
	case strings.HasPrefix(line, "ss://"):
		return parseSS(line)
	case strings.HasPrefix(line, "vmess://"):
		return parseVMess(line)
	case strings.HasPrefix(line, "vless://"):
		return parseVLESS(line)
	case strings.HasPrefix(line, "trojan://"):
		return parseTrojan(line)
	case strings.HasPrefix(line, "hy2://"):
		return parseHysteria2(line)
	case strings.HasPrefix(line, "tuic://"):
		return parseTUIC(line)
	default:
		return model.Proxy{}, errUnknownScheme
	}
}

// looksLikeBase64 matches the original heuristic: base64 alphabet only
// and a length divisible by four. Link lines always contain ':' so they
// never match.
func looksLikeBase64(s string) bool {
	if len(s) == 0 || len(s)%4 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '+' || c == '/' || c == '=':
		default:
			return false
		}
	}
	return true
}

// isText rejects decoded blobs that are clearly binary; base64-looking
// lines occasionally decode "successfully" into garbage.
func isText(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || c == '\r' || c == '\t' {
			continue
		}
		if c < 0x20 {
			return false
		}
	}
	return true
}
