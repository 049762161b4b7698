package sub

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// parseTUIC handles tuic://b64(password@host:port?query)#name.
func parseTUIC(line string) (model.Proxy, error) {
	rest, name := cutFragment(strings.TrimPrefix(line, "tuic://"))

	decoded, err := decodeB64ToString(rest)
	if err != nil {
		return model.Proxy{}, err
	}

	main, query, _ := strings.Cut(decoded, "?")
	password, hostPort, ok := strings.Cut(main, "@")
	if !ok {
		return model.Proxy{}, errBadLink
	}
	server, port, err := parseHostPort(hostPort)
	if err != nil {
		return model.Proxy{}, err
	}

	if name == "" {
		name = fmt.Sprintf("TUIC-%s:%d", server, port)
	}
	p := model.Proxy{
		Type:     "tuic",
		Name:     name,
		Server:   server,
		Port:     port,
		Password: password,
		Raw:      line,
	}

	params := parseQueryLoose(query)
	if v, ok := params["version"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.TUICVersion = n
		}
	}
	if v, ok := params["udp_relay_mode"]; ok {
		p.UDPRelayMode = v
	}
	if v, ok := params["disable_sni"]; ok {
		p.DisableSNI = strings.ToLower(v) == "1"
	}
	if v, ok := params["congestion_controller"]; ok {
		p.CongestionController = v
	}
	if v, ok := params["alpn"]; ok && v != "" {
		p.ALPN = strings.Split(v, ",")
	}
	if v, ok := params["sni"]; ok {
		p.ServerName = v
	}
	if v, ok := params["skip_cert_verify"]; ok {
		p.SkipCertVerify = strings.ToLower(v) == "1"
	}
	return p, nil
}
