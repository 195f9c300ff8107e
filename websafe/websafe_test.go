package websafe

// WHAT: URL safety validation and bounded reads.
// WHY: fetched source URLs come from operator config and scraped documents;
// a bad URL must never reach internal services.

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestValidateURLSchemes(t *testing.T) {
	if err := ValidateURL("ftp://example.gov/list.csv"); !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("ftp scheme: got %v, want ErrUnsafeScheme", err)
	}
	if err := ValidateURL("file:///etc/passwd"); !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("file scheme: got %v, want ErrUnsafeScheme", err)
	}
	if err := ValidateURL("https://example.gov/offices"); err != nil {
		t.Fatalf("https scheme: unexpected error %v", err)
	}
}

func TestValidateURLLiteralPrivateIPs(t *testing.T) {
	cases := []string{
		"http://127.0.0.1/",
		"http://10.1.2.3/internal",
		"http://172.16.0.1:8080/",
		"http://192.168.1.1/admin",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/",
		"http://[fc00::1]/",
	}
	for _, raw := range cases {
		if err := ValidateURL(raw); !errors.Is(err, ErrSSRF) {
			t.Errorf("ValidateURL(%q): got %v, want ErrSSRF", raw, err)
		}
	}
}

func TestValidateURLPublicLiteralIP(t *testing.T) {
	if err := ValidateURL("http://8.8.8.8/"); err != nil {
		t.Fatalf("public IP: unexpected error %v", err)
	}
}

func TestValidateURLNoHost(t *testing.T) {
	if err := ValidateURL("https:///path-only"); err == nil {
		t.Fatal("expected error for URL without host")
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"127.0.0.1", "10.0.0.1", "172.31.255.255", "192.168.0.1", "169.254.0.1", "::1", "fd12::1"}
	for _, s := range private {
		if !isPrivateIP(net.ParseIP(s)) {
			t.Errorf("isPrivateIP(%s) = false, want true", s)
		}
	}
	public := []string{"8.8.8.8", "1.1.1.1", "2001:4860:4860::8888"}
	for _, s := range public {
		if isPrivateIP(net.ParseIP(s)) {
			t.Errorf("isPrivateIP(%s) = true, want false", s)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 10)
	if err != nil {
		t.Fatalf("LimitedReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}

	if _, err := LimitedReadAll(strings.NewReader(strings.Repeat("x", 11)), 10); err == nil {
		t.Fatal("expected error for oversized body")
	}

	// Exactly at the limit is allowed.
	data, err = LimitedReadAll(strings.NewReader(strings.Repeat("y", 10)), 10)
	if err != nil {
		t.Fatalf("at-limit read: %v", err)
	}
	if len(data) != 10 {
		t.Fatalf("at-limit read: got %d bytes", len(data))
	}
}
