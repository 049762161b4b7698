package sub

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/airfreed/proxypipe-go/internal/model"
)

func TestParseSourceText_RawSSList(t *testing.T) {
	raw := strings.Join([]string{
		"# comment",
		"  ",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#Node%201",
		"ss://YWVzLTEyOC1nY206cDI=@example.com:8389",
		"",
	}, "\n")

	proxies, skipped := ParseSourceText("https://example.com/sub.txt", raw)
	if skipped != 0 {
		t.Fatalf("skipped=%d, want=0", skipped)
	}
	want := []model.Proxy{
		{
			Type: "ss", Name: "Node 1", Server: "example.com", Port: 8388,
			Cipher: "aes-128-gcm", Password: "pass",
			Raw: "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#Node%201",
		},
		{
			Type: "ss", Name: "Shadowsocks-example.com:8389", Server: "example.com", Port: 8389,
			Cipher: "aes-128-gcm", Password: "p2",
			Raw: "ss://YWVzLTEyOC1nY206cDI=@example.com:8389",
		},
	}
	if diff := cmp.Diff(want, proxies); diff != "" {
		t.Fatalf("proxies mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSourceText_SSLegacyBase64Form(t *testing.T) {
	link := "ss://" + base64.StdEncoding.EncodeToString([]byte("aes-128-gcm:pass@ex.com:443"))
	proxies, skipped := ParseSourceText("u", link)
	if skipped != 0 || len(proxies) != 1 {
		t.Fatalf("len=%d skipped=%d, want 1/0", len(proxies), skipped)
	}
	p := proxies[0]
	if p.Server != "ex.com" || p.Port != 443 || p.Cipher != "aes-128-gcm" || p.Password != "pass" {
		t.Fatalf("parsed=%+v", p)
	}
}

func TestParseSourceText_Base64WrappedList(t *testing.T) {
	inner := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#n\n" +
		"trojan://pw@example.org:443?sni=example.org#t\n"
	b64 := base64.StdEncoding.EncodeToString([]byte(inner))
	// Pad the wrapping line to a multiple of four, like real lists.
	for len(b64)%4 != 0 {
		b64 += "="
	}

	proxies, skipped := ParseSourceText("u", b64)
	if skipped != 0 {
		t.Fatalf("skipped=%d, want=0", skipped)
	}
	if len(proxies) != 2 {
		t.Fatalf("len=%d, want=2", len(proxies))
	}
	if proxies[0].Type != "ss" || proxies[1].Type != "trojan" {
		t.Fatalf("types=%q/%q", proxies[0].Type, proxies[1].Type)
	}
}

func TestParseVMess_NumberAndStringPort(t *testing.T) {
	for _, portJSON := range []string{`443`, `"443"`} {
		body := `{"ps":"vm","add":"v.example.com","port":` + portJSON + `,"id":"uuid-1","aid":"0","net":"ws","tls":"tls","path":"/ws","host":"cdn.example.com"}`
		link := "vmess://" + base64.StdEncoding.EncodeToString([]byte(body))

		p, err := parseVMess(link)
		if err != nil {
			t.Fatalf("unexpected error for port=%s: %v", portJSON, err)
		}
		if p.Server != "v.example.com" || p.Port != 443 || p.UUID != "uuid-1" {
			t.Fatalf("parsed=%+v", p)
		}
		if !p.TLS || p.Network != "ws" || p.WSPath != "/ws" || p.WSHost != "cdn.example.com" {
			t.Fatalf("transport fields=%+v", p)
		}
		if p.Cipher != "auto" {
			t.Fatalf("cipher=%q, want=%q", p.Cipher, "auto")
		}
	}
}

func TestParseVMess_Defaults(t *testing.T) {
	body := `{"add":"v.example.com","port":80,"id":"uuid-2"}`
	link := "vmess://" + base64.StdEncoding.EncodeToString([]byte(body))

	p, err := parseVMess(link)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "VMess-v.example.com:80" {
		t.Fatalf("name=%q", p.Name)
	}
	if p.Network != "tcp" || p.TLS {
		t.Fatalf("network=%q tls=%v", p.Network, p.TLS)
	}
}

func TestParseVLESS_WSAndSNIFallback(t *testing.T) {
	p, err := parseVLESS("vless://uuid-3@v.example.com:443?security=tls&type=ws&path=/x&host=cdn.example.com#n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.TLS || p.Network != "ws" || p.WSPath != "/x" || p.WSHost != "cdn.example.com" {
		t.Fatalf("parsed=%+v", p)
	}
	// host is the ws Host header, not the SNI, for ws transport.
	if p.ServerName != "" {
		t.Fatalf("servername=%q, want empty", p.ServerName)
	}

	p, err = parseVLESS("vless://uuid-3@v.example.com:443?type=grpc&serviceName=svc&host=sni.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.GRPCServiceName != "svc" || p.GRPCMode != "gun" {
		t.Fatalf("grpc fields=%+v", p)
	}
	if p.ServerName != "sni.example.com" {
		t.Fatalf("servername=%q, want=%q", p.ServerName, "sni.example.com")
	}
}

func TestParseTrojan_PeerFallback(t *testing.T) {
	p, err := parseTrojan("trojan://pw@t.example.com:443?peer=sni.example.com#name%20x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Password != "pw" || !p.TLS || p.ServerName != "sni.example.com" {
		t.Fatalf("parsed=%+v", p)
	}
	if p.Name != "name x" {
		t.Fatalf("name=%q", p.Name)
	}
}

func TestParseHysteria2(t *testing.T) {
	body := `{"server":"h.example.com","port":443,"password":"pw","tls":{"sni":"sni.example.com","insecure":true}}`
	link := "hy2://" + base64.RawURLEncoding.EncodeToString([]byte(body)) + "#h"

	p, err := parseHysteria2(link)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.Proxy{
		Type: "hysteria2", Name: "h", Server: "h.example.com", Port: 443,
		Password: "pw", TLS: true, ServerName: "sni.example.com", SkipCertVerify: true,
		Raw: link,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTUIC(t *testing.T) {
	main := "pw@t.example.com:8443?version=5&udp_relay_mode=quic&disable_sni=1&congestion_controller=bbr&alpn=h3,h2&sni=sni.example.com&skip_cert_verify=1"
	link := "tuic://" + base64.RawURLEncoding.EncodeToString([]byte(main)) + "#t"

	p, err := parseTUIC(link)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TUICVersion != 5 || p.UDPRelayMode != "quic" || !p.DisableSNI || p.CongestionController != "bbr" {
		t.Fatalf("parsed=%+v", p)
	}
	if diff := cmp.Diff([]string{"h3", "h2"}, p.ALPN); diff != "" {
		t.Fatalf("alpn mismatch:\n%s", diff)
	}
	if p.ServerName != "sni.example.com" || !p.SkipCertVerify {
		t.Fatalf("tls fields=%+v", p)
	}
}

func TestParseSourceText_ClashDoc(t *testing.T) {
	doc := `
proxies:
  - name: node-a
    type: ss
    server: 1.2.3.4
    port: 8388
    cipher: aes-128-gcm
    password: pw
  - name: node-b
    type: vmess
    server: 5.6.7.8
    port: "443"
    uuid: uuid-4
    alterId: 0
    network: ws
    tls: true
    ws-path: /ws
    ws-headers:
      Host: cdn.example.com
  - type: trojan
    server: 9.9.9.9
    port: 443
    password: pw
  - name: broken
    type: ss
    server: ""
    port: 8388
`
	proxies, skipped := ParseSourceText("u", doc)
	if skipped != 0 {
		t.Fatalf("skipped=%d, want=0", skipped)
	}
	if len(proxies) != 3 {
		t.Fatalf("len=%d, want=3", len(proxies))
	}
	if proxies[0].Name != "node-a" || proxies[0].Cipher != "aes-128-gcm" {
		t.Fatalf("node-a=%+v", proxies[0])
	}
	if proxies[1].Port != 443 || proxies[1].WSHost != "cdn.example.com" {
		t.Fatalf("node-b=%+v", proxies[1])
	}
	// Nameless node gets the type-prefixed default.
	if proxies[2].Name != "trojan-9.9.9.9:443" {
		t.Fatalf("name=%q", proxies[2].Name)
	}
	for _, p := range proxies {
		if p.Raw == "" {
			t.Fatalf("missing rebuilt link for %q", p.Name)
		}
	}
}

func TestRebuildLink_SSRoundTrip(t *testing.T) {
	orig := model.Proxy{
		Type: "ss", Name: "n", Server: "1.2.3.4", Port: 8388,
		Cipher: "aes-128-gcm", Password: "pw",
	}
	link := rebuildLink(orig)
	parsed, err := parseSS(link)
	if err != nil {
		t.Fatalf("rebuilt link does not parse: %q: %v", link, err)
	}
	if parsed.Server != orig.Server || parsed.Port != orig.Port ||
		parsed.Cipher != orig.Cipher || parsed.Password != orig.Password || parsed.Name != "n" {
		t.Fatalf("round trip lost fields: %+v", parsed)
	}
}

func TestParseSourceText_JunkLinesSkipped(t *testing.T) {
	raw := strings.Join([]string{
		"ss://not-base64-at-all@nowhere",         // bad ss
		"vmess://%%%",                            // bad b64
		"random text line",                       // unknown scheme
		"ss://YWVzLTEyOC1nY206cGFzcw==@a.com:1#ok", // good
	}, "\n")

	proxies, skipped := ParseSourceText("u", raw)
	if len(proxies) != 1 {
		t.Fatalf("len=%d, want=1", len(proxies))
	}
	if skipped != 3 {
		t.Fatalf("skipped=%d, want=3", skipped)
	}
	if proxies[0].Name != "ok" {
		t.Fatalf("name=%q", proxies[0].Name)
	}
}

func TestLooksLikeBase64(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"YWJjZA==", true},
		{"YWJjZA", false},        // length not a multiple of 4
		{"ss://YWJjZA==", false}, // ':' is outside the base64 alphabet
		{"", false},
		{"AAAA", true},
	}
	for _, tt := range tests {
		if got := looksLikeBase64(tt.in); got != tt.want {
			t.Fatalf("looksLikeBase64(%q)=%v, want=%v", tt.in, got, tt.want)
		}
	}
}
