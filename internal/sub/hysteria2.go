package sub

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// hy2Payload is the base64-encoded JSON body of an hy2:// link as the
// upstream lists publish it.
type hy2Payload struct {
	Server   string  `json:"server"`
	Port     flexInt `json:"port"`
	Password string  `json:"password"`
	TLS      struct {
		SNI      string `json:"sni"`
		Insecure bool   `json:"insecure"`
	} `json:"tls"`
}

func parseHysteria2(line string) (model.Proxy, error) {
	rest, name := cutFragment(strings.TrimPrefix(line, "hy2://"))

	decoded, err := decodeB64ToString(rest)
	if err != nil {
		return model.Proxy{}, err
	}
	var data hy2Payload
	if err := json.Unmarshal([]byte(decoded), &data); err != nil {
		return model.Proxy{}, err
	}
	if data.Server == "" || data.Port < 1 || data.Port > 65535 {
		return model.Proxy{}, errBadLink
	}

	if name == "" {
		name = fmt.Sprintf("Hysteria2-%s:%d", data.Server, int(data.Port))
	}
	return model.Proxy{
		Type:           "hysteria2",
		Name:           name,
		Server:         data.Server,
		Port:           int(data.Port),
		Password:       data.Password,
		TLS:            true,
		ServerName:     data.TLS.SNI,
		SkipCertVerify: data.TLS.Insecure,
		Raw:            line,
	}, nil
}
