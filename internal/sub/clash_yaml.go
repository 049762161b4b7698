package sub

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/airfreed/proxypipe-go/internal/model"
)

func looksLikeClashDoc(s string) bool {
	return strings.Contains(s, "proxies:") || strings.Contains(s, "proxy-groups:")
}

type clashDoc struct {
	Proxies []map[string]any `yaml:"proxies"`
}

// parseClashDoc lifts the nodes out of a Clash-style document. Nodes
// missing type/server/port are skipped. Since a Clash document carries
// no share links, Raw is rebuilt deterministically so proxies.txt still
// has a line for these nodes.
func parseClashDoc(s string) []model.Proxy {
	var doc clashDoc
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil
	}

	out := make([]model.Proxy, 0, len(doc.Proxies))
	for _, m := range doc.Proxies {
		typ := asString(m["type"])
		server := asString(m["server"])
		port := asInt(m["port"])
		if typ == "" || server == "" || port < 1 || port > 65535 {
			continue
		}

		p := model.Proxy{
			Type:                 typ,
			Name:                 asString(m["name"]),
			Server:               server,
			Port:                 port,
			Cipher:               asString(m["cipher"]),
			Password:             asString(m["password"]),
			UUID:                 asString(m["uuid"]),
			AlterID:              asInt(m["alterId"]),
			Flow:                 asString(m["flow"]),
			Network:              asString(m["network"]),
			TLS:                  asBool(m["tls"]),
			WSPath:               asString(m["ws-path"]),
			GRPCServiceName:      asString(m["grpc-serviceName"]),
			GRPCMode:             asString(m["grpc-mode"]),
			ServerName:           asString(m["servername"]),
			SkipCertVerify:       asBool(m["skip-cert-verify"]),
			TUICVersion:          asInt(m["version"]),
			UDPRelayMode:         asString(m["udp-relay-mode"]),
			DisableSNI:           asBool(m["disable-sni"]),
			CongestionController: asString(m["congestion-controller"]),
			ALPN:                 asStringSlice(m["alpn"]),
		}
		if headers, ok := m["ws-headers"].(map[string]any); ok {
			p.WSHost = asString(headers["Host"])
		}
		if p.Name == "" {
			p.Name = model.DefaultName(typ, server, port)
		}
		p.Raw = rebuildLink(p)
		out = append(out, p)
	}
	return out
}

// rebuildLink reconstructs a share link from a node that came without
// one. Round-tripping through rebuildLink and the link parsers is not
// guaranteed to be lossless for every protocol; the result is only meant
// to be a usable line in proxies.txt.
func rebuildLink(p model.Proxy) string {
	hostPort := p.Server + ":" + strconv.Itoa(p.Port)
	frag := "#" + escapeFragment(p.Name)

	switch p.Type {
	case "ss":
		creds := base64.RawURLEncoding.EncodeToString([]byte(p.Cipher + ":" + p.Password))
		return "ss://" + creds + "@" + hostPort + frag

	case "vmess":
		payload := vmessPayload{
			PS:   p.Name,
			Add:  p.Server,
			Port: flexInt(p.Port),
			ID:   p.UUID,
			Aid:  flexInt(p.AlterID),
			Net:  p.Network,
			Path: p.WSPath,
			Host: p.WSHost,
		}
		if p.TLS {
			payload.TLS = "tls"
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return "vmess://" + hostPort
		}
		return "vmess://" + base64.RawStdEncoding.EncodeToString(b)

	case "trojan":
		link := "trojan://" + p.Password + "@" + hostPort
		if p.ServerName != "" {
			link += "?sni=" + p.ServerName
		}
		return link + frag

	case "vless":
		var params []string
		if p.TLS {
			params = append(params, "security=tls")
		}
		if p.Network != "" {
			params = append(params, "type="+p.Network)
		}
		if p.Flow != "" {
			params = append(params, "flow="+p.Flow)
		}
		if p.WSPath != "" {
			params = append(params, "path="+p.WSPath)
		}
		if p.WSHost != "" {
			params = append(params, "host="+p.WSHost)
		}
		if p.GRPCServiceName != "" {
			params = append(params, "serviceName="+p.GRPCServiceName)
		}
		if p.ServerName != "" {
			params = append(params, "sni="+p.ServerName)
		}
		link := "vless://" + p.UUID + "@" + hostPort
		if len(params) > 0 {
			link += "?" + strings.Join(params, "&")
		}
		return link + frag

	case "hysteria2":
		payload := hy2Payload{
			Server:   p.Server,
			Port:     flexInt(p.Port),
			Password: p.Password,
		}
		payload.TLS.SNI = p.ServerName
		payload.TLS.Insecure = p.SkipCertVerify
		b, err := json.Marshal(payload)
		if err != nil {
			return "hy2://" + hostPort
		}
		return "hy2://" + base64.RawURLEncoding.EncodeToString(b) + frag

	case "tuic":
		var params []string
		if p.TUICVersion != 0 {
			params = append(params, "version="+strconv.Itoa(p.TUICVersion))
		}
		if p.UDPRelayMode != "" {
			params = append(params, "udp_relay_mode="+p.UDPRelayMode)
		}
		if p.DisableSNI {
			params = append(params, "disable_sni=1")
		}
		if p.CongestionController != "" {
			params = append(params, "congestion_controller="+p.CongestionController)
		}
		if len(p.ALPN) > 0 {
			params = append(params, "alpn="+strings.Join(p.ALPN, ","))
		}
		if p.ServerName != "" {
			params = append(params, "sni="+p.ServerName)
		}
		if p.SkipCertVerify {
			params = append(params, "skip_cert_verify=1")
		}
		main := p.Password + "@" + hostPort
		if len(params) > 0 {
			main += "?" + strings.Join(params, "&")
		}
		return "tuic://" + base64.RawURLEncoding.EncodeToString([]byte(main)) + frag

	default:
		return fmt.Sprintf("%s://%s%s", p.Type, hostPort, frag)
	}
}

func escapeFragment(s string) string {
	// Spaces are the only character that routinely breaks line-oriented
	// consumers of proxies.txt; node names are otherwise kept readable.
	return strings.ReplaceAll(s, " ", "%20")
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	default:
		return false
	}
}

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
