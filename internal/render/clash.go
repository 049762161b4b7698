package render

import (
	"strconv"
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// RenderClashConfig renders the full Clash document: every node, one
// "Proxy" select group with DIRECT plus all node names, and the fixed
// MATCH rule.
func RenderClashConfig(proxies []model.Proxy) string {
	group := model.Group{
		Name:    "Proxy",
		Type:    "select",
		Members: make([]string, 0, len(proxies)+1),
	}
	group.Members = append(group.Members, "DIRECT")
	for _, p := range proxies {
		group.Members = append(group.Members, p.Name)
	}
	rules := []model.Rule{{Type: "MATCH", Action: group.Name}}

	lines := make([]string, 0, len(proxies)*8+16)

	if len(proxies) == 0 {
		lines = append(lines, "proxies: []")
	} else {
		lines = append(lines, "proxies:")
		for _, p := range proxies {
			lines = append(lines, proxyLines(p)...)
		}
	}

	lines = append(lines, "proxy-groups:")
	lines = append(lines, groupLines(group)...)

	lines = append(lines, "rules:")
	for _, r := range rules {
		lines = append(lines, "- "+yamlDQ(r.String()))
	}

	return strings.Join(lines, "\n") + "\n"
}

func groupLines(g model.Group) []string {
	out := make([]string, 0, len(g.Members)+3)
	out = append(out, "- name: "+yamlDQ(g.Name))
	out = append(out, "  type: "+g.Type)
	out = append(out, "  proxies:")
	for _, m := range g.Members {
		out = append(out, "    - "+yamlDQ(m))
	}
	return out
}

func proxyLines(p model.Proxy) []string {
	out := make([]string, 0, 8)
	out = append(out, "- name: "+yamlDQ(p.Name))
	out = append(out, "  type: "+p.Type)
	out = append(out, "  server: "+yamlDQ(p.Server))
	out = append(out, "  port: "+strconv.Itoa(p.Port))

	if p.UUID != "" {
		out = append(out, "  uuid: "+yamlDQ(p.UUID))
	}
	if p.Type == "vmess" {
		out = append(out, "  alterId: "+strconv.Itoa(p.AlterID))
	}
	if p.Cipher != "" {
		out = append(out, "  cipher: "+yamlDQ(strings.ToLower(p.Cipher)))
	}
	// Always quote the password so YAML never reads it as a number.
	if p.Password != "" {
		out = append(out, "  password: "+yamlDQ(p.Password))
	}
	switch p.Type {
	case "vmess", "vless", "trojan", "hysteria2":
		out = append(out, "  tls: "+strconv.FormatBool(p.TLS))
	}
	if p.Network != "" {
		out = append(out, "  network: "+yamlDQ(p.Network))
	}
	if p.WSPath != "" {
		out = append(out, "  ws-path: "+yamlDQ(p.WSPath))
	}
	if p.WSHost != "" {
		out = append(out, "  ws-headers:")
		out = append(out, "    Host: "+yamlDQ(p.WSHost))
	}
	if p.Flow != "" {
		out = append(out, "  flow: "+yamlDQ(p.Flow))
	}
	if p.ServerName != "" {
		out = append(out, "  servername: "+yamlDQ(p.ServerName))
	}
	if p.GRPCServiceName != "" {
		out = append(out, "  grpc-serviceName: "+yamlDQ(p.GRPCServiceName))
	}
	if p.GRPCMode != "" {
		out = append(out, "  grpc-mode: "+yamlDQ(p.GRPCMode))
	}

	if p.Type == "tuic" {
		if p.TUICVersion != 0 {
			out = append(out, "  version: "+strconv.Itoa(p.TUICVersion))
		}
		if p.UDPRelayMode != "" {
			out = append(out, "  udp-relay-mode: "+yamlDQ(p.UDPRelayMode))
		}
		if p.DisableSNI {
			out = append(out, "  disable-sni: true")
		}
		if p.CongestionController != "" {
			out = append(out, "  congestion-controller: "+yamlDQ(p.CongestionController))
		}
		if len(p.ALPN) > 0 {
			out = append(out, "  alpn:")
			for _, a := range p.ALPN {
				out = append(out, "    - "+yamlDQ(a))
			}
		}
	}
	if p.SkipCertVerify {
		out = append(out, "  skip-cert-verify: true")
	}
	return out
}

func yamlDQ(s string) string {
	// Minimal YAML double-quoted scalar escaping.
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
