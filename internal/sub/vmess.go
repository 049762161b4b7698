package sub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// flexInt tolerates the two spellings sources use for numbers: 443 and
// "443".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// vmessPayload is the base64-encoded JSON body of a vmess:// link.
type vmessPayload struct {
	PS   string  `json:"ps"`
	Add  string  `json:"add"`
	Port flexInt `json:"port"`
	ID   string  `json:"id"`
	Aid  flexInt `json:"aid"`
	Net  string  `json:"net"`
	TLS  string  `json:"tls"`
	Path string  `json:"path"`
	Host string  `json:"host"`
}

func parseVMess(line string) (model.Proxy, error) {
	decoded, err := decodeB64ToString(strings.TrimPrefix(line, "vmess://"))
	if err != nil {
		return model.Proxy{}, err
	}

	var data vmessPayload
	if err := json.Unmarshal([]byte(decoded), &data); err != nil {
		return model.Proxy{}, err
	}
	if data.Add == "" || data.Port < 1 || data.Port > 65535 {
		return model.Proxy{}, errBadLink
	}

	p := model.Proxy{
		Type:    "vmess",
		Name:    data.PS,
		Server:  data.Add,
		Port:    int(data.Port),
		UUID:    data.ID,
		AlterID: int(data.Aid),
		Cipher:  "auto",
		Network: data.Net,
		TLS:     data.TLS == "tls",
		Raw:     line,
	}
	if p.Network == "" {
		p.Network = "tcp"
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("VMess-%s:%d", p.Server, p.Port)
	}
	switch p.Network {
	case "ws":
		p.WSPath = data.Path
		if p.WSPath == "" {
			p.WSPath = "/"
		}
		p.WSHost = data.Host
		if p.WSHost == "" {
			p.WSHost = data.Add
		}
	case "grpc":
		p.GRPCServiceName = data.Path
	}
	return p, nil
}
