package sub

import (
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// parseSS handles both SIP002 form (ss://b64(method:password)@host:port)
// and the legacy whole-base64 form (ss://b64(method:password@host:port)).
// The plugin query parameter is dropped; the raw link keeps it for
// proxies.txt consumers.
func parseSS(line string) (model.Proxy, error) {
	rest, name := cutFragment(strings.TrimPrefix(line, "ss://"))
	// Query (plugin options) is not modeled.
	rest, _, _ = strings.Cut(rest, "?")
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		return model.Proxy{}, errBadLink
	}

	var method, password, hostPort string
	if userB64, hostPart, ok := strings.Cut(rest, "@"); ok {
		if userB64 == "" || hostPart == "" {
			return model.Proxy{}, errBadLink
		}
		decoded, err := decodeB64ToString(userB64)
		if err != nil {
			return model.Proxy{}, err
		}
		m, p, ok := strings.Cut(decoded, ":")
		if !ok {
			return model.Proxy{}, errBadLink
		}
		method, password, hostPort = m, p, hostPart
	} else {
		decoded, err := decodeB64ToString(rest)
		if err != nil {
			return model.Proxy{}, err
		}
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return model.Proxy{}, errBadLink
		}
		m, p, ok := strings.Cut(decoded[:at], ":")
		if !ok {
			return model.Proxy{}, errBadLink
		}
		method, password, hostPort = m, p, decoded[at+1:]
	}

	method = strings.TrimSpace(method)
	password = strings.TrimSpace(password)
	if method == "" {
		return model.Proxy{}, errBadLink
	}

	server, port, err := parseHostPort(hostPort)
	if err != nil {
		return model.Proxy{}, err
	}

	if name == "" {
		name = "Shadowsocks-" + hostPort
	}
	return model.Proxy{
		Type:     "ss",
		Name:     name,
		Server:   server,
		Port:     port,
		Cipher:   method,
		Password: password,
		Raw:      line,
	}, nil
}
