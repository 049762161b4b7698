package sub

import (
	"fmt"
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// parseVLESS handles vless://uuid@host:port?query#name.
func parseVLESS(line string) (model.Proxy, error) {
	rest, name := cutFragment(strings.TrimPrefix(line, "vless://"))

	uuid, remaining, ok := strings.Cut(rest, "@")
	if !ok || uuid == "" {
		return model.Proxy{}, errBadLink
	}
	hostPort, query, _ := strings.Cut(remaining, "?")
	params := parseQueryLoose(query)

	server, port, err := parseHostPort(strings.TrimSuffix(hostPort, "/"))
	if err != nil {
		return model.Proxy{}, err
	}

	p := model.Proxy{
		Type:    "vless",
		Name:    name,
		Server:  server,
		Port:    port,
		UUID:    uuid,
		TLS:     params["security"] == "tls",
		Flow:    params["flow"],
		Network: params["type"],
		Raw:     line,
	}
	if p.Network == "" {
		p.Network = "tcp"
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("VLESS-%s:%d", server, port)
	}

	switch p.Network {
	case "ws":
		p.WSPath = params["path"]
		if p.WSPath == "" {
			p.WSPath = "/"
		}
		p.WSHost = params["host"]
		if p.WSHost == "" {
			p.WSHost = server
		}
	case "grpc":
		p.GRPCServiceName = params["serviceName"]
		p.GRPCMode = params["mode"]
		if p.GRPCMode == "" {
			p.GRPCMode = "gun"
		}
	}

	// SNI: explicit sni first; host doubles as SNI except for ws, where
	// it is the Host header.
	if sni, ok := params["sni"]; ok {
		p.ServerName = sni
	} else if host, ok := params["host"]; ok && p.Network != "ws" {
		p.ServerName = host
	}
	return p, nil
}
