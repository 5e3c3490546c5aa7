package statsd

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readLine(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	buf := make([]byte, 1024)
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(buf[:n])
}

func TestClientSendsCountsAndTimings(t *testing.T) {
	t.Parallel()

	agent := listen(t)
	client, err := NewClient(context.Background(), Config{
		Enabled: true,
		Address: agent.LocalAddr().String(),
		Prefix:  " gatekeeper. ",
		Tags:    map[string]string{"env": "test"},
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	if !client.Enabled() {
		t.Fatal("expected client to be enabled")
	}

	client.Count("auth.login.failure", 1, map[string]string{"reason": "incorrect_password"})
	if got, want := readLine(t, agent), "gatekeeper.auth.login.failure:1|c|#env:test,reason:incorrect_password"; got != want {
		t.Fatalf("count line\n got: %q\nwant: %q", got, want)
	}

	client.Timing("http.request", 1500*time.Microsecond, nil)
	if got, want := readLine(t, agent), "gatekeeper.http.request:1.5|ms|#env:test"; got != want {
		t.Fatalf("timing line\n got: %q\nwant: %q", got, want)
	}
}

func TestQualify(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "app"}
	tests := map[string]string{
		" auth/login ":  "app.auth_login",
		"admin..role":   "app.admin.role",
		"bad:name|x":    "app.bad_name_x",
		"":              "",
		"...":           "",
		".auth.signup.": "app.auth.signup",
	}
	for input, want := range tests {
		if got := c.qualify(input); got != want {
			t.Fatalf("qualify(%q) = %q, want %q", input, got, want)
		}
	}

	bare := &Client{}
	if got := bare.qualify("auth.signup"); got != "auth.signup" {
		t.Fatalf("qualify without prefix = %q", got)
	}
}

func TestEncodeTags(t *testing.T) {
	t.Parallel()

	got := encodeTags(
		map[string]string{"env": "prod", " service ": " gatekeeper "},
		map[string]string{"outcome": " changed ", "": "ignored", "env": "stage"},
	)
	if want := "|#env:stage,outcome:changed,service:gatekeeper"; got != want {
		t.Fatalf("encodeTags\n got: %q\nwant: %q", got, want)
	}
	if got := encodeTags(nil, nil); got != "" {
		t.Fatalf("encodeTags(nil, nil) = %q, want empty", got)
	}
}

func TestDisabledClientDropsEverything(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled without an address")
	}
	client.Count("auth.signup", 1, nil)

	var nilClient *Client
	nilClient.Count("auth.signup", 1, nil)
	nilClient.Timing("http.request", time.Second, nil)
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	agent := listen(t)
	client, err := NewClient(context.Background(), Config{Enabled: true, Address: agent.LocalAddr().String()})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client disabled after Close")
	}
	client.Count("after.close", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
