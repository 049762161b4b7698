package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Proxy is one harvested node. Type/Name/Server/Port are always set;
// everything else is protocol-specific and zero-valued when the protocol
// does not use it.
type Proxy struct {
	Type string // "ss" | "vmess" | "vless" | "trojan" | "hysteria2" | "tuic"

	// Name comes from the link fragment (#name). Free-list sources do not
	// guarantee uniqueness; when the link has no fragment the parser fills
	// in a "<Type>-<server>:<port>" default.
	Name string

	Server string
	Port   int

	// Raw is the original share link. proxies.txt emits it verbatim, so it
	// must survive parsing unchanged (or be rebuilt deterministically for
	// nodes lifted out of Clash YAML sources).
	Raw string

	Cipher   string
	Password string // ss / trojan / hysteria2 / tuic

	UUID    string // vmess / vless
	AlterID int    // vmess
	Flow    string // vless

	Network         string // "tcp" | "ws" | "grpc"; empty means tcp
	TLS             bool
	WSPath          string
	WSHost          string
	GRPCServiceName string
	GRPCMode        string

	ServerName     string // SNI
	SkipCertVerify bool

	// tuic
	TUICVersion          int
	UDPRelayMode         string
	DisableSNI           bool
	CongestionController string
	ALPN                 []string

	// LatencyMS is filled by the reachability check. 0 means unchecked;
	// checked nodes always carry a positive value.
	LatencyMS float64
}

// Key returns the dedupe key: SHA-256 over type:server:port plus the
// fields that actually distinguish nodes of that protocol. UUID matters
// for vmess/vless, the password for hysteria2/tuic. Trojan passwords are
// often per-user noise, so they only join the key when the caller opts in.
func (p Proxy) Key(trojanByPassword bool) string {
	parts := []string{p.Type, p.Server, strconv.Itoa(p.Port)}
	switch p.Type {
	case "vmess", "vless":
		if p.UUID != "" {
			parts = append(parts, p.UUID)
		}
	case "hysteria2", "tuic":
		if p.Password != "" {
			parts = append(parts, p.Password)
		}
	case "trojan":
		if trojanByPassword && p.Password != "" {
			parts = append(parts, p.Password)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

// DefaultName builds the fallback display name used when a link carries
// no fragment.
func DefaultName(typ, server string, port int) string {
	return typ + "-" + server + ":" + strconv.Itoa(port)
}
