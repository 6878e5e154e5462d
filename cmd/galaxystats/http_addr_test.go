package main

import "testing"

func TestHTTPURLFromAddr(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: "http://localhost/"},
		{name: "port only", in: ":3000", want: "http://localhost:3000/"},
		{name: "wildcard", in: "0.0.0.0:3000", want: "http://localhost:3000/"},
		{name: "ipv6 wildcard", in: "[::]:3000", want: "http://localhost:3000/"},
		{name: "ipv4", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080/"},
		{name: "ipv6", in: "[::1]:8080", want: "http://[::1]:8080/"},
		{name: "already url", in: "http://127.0.0.1:8080", want: "http://127.0.0.1:8080/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := httpURLFromAddr(tt.in); got != tt.want {
				t.Fatalf("httpURLFromAddr(%q)=%q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	if got := listenAddr(3000); got != ":3000" {
		t.Fatalf("listenAddr(3000) = %q", got)
	}
	if got := httpURLFromAddr(listenAddr(3000)); got != "http://localhost:3000/" {
		t.Fatalf("round trip = %q", got)
	}
}
