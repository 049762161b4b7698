package sub

import (
	"fmt"
	"net/url"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// parseTrojan handles trojan://password@host:port?sni=...#name. Trojan
// always runs over TLS.
func parseTrojan(line string) (model.Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return model.Proxy{}, err
	}
	if u.User == nil || u.Hostname() == "" || u.Port() == "" {
		return model.Proxy{}, errBadLink
	}

	server, port, err := parseHostPort(u.Host)
	if err != nil {
		return model.Proxy{}, err
	}

	name := ""
	if u.Fragment != "" {
		name = u.Fragment
	}
	if name == "" {
		name = fmt.Sprintf("Trojan-%s:%d", server, port)
	}

	p := model.Proxy{
		Type:     "trojan",
		Name:     name,
		Server:   server,
		Port:     port,
		Password: u.User.Username(),
		TLS:      true,
		Raw:      line,
	}

	params := parseQueryLoose(u.RawQuery)
	if sni, ok := params["sni"]; ok {
		p.ServerName = sni
	} else if peer, ok := params["peer"]; ok {
		// Older clients write peer= instead of sni=.
		p.ServerName = peer
	}
	return p, nil
}
