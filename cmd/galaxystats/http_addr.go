package main

import (
	"net"
	"strconv"
	"strings"
)

// listenAddr is the address the server binds for port, on all interfaces.
func listenAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

// httpURLFromAddr converts an HTTP listen address into a browser URL
// ending in "/".
//
//	:3000            -> http://localhost:3000/
//	0.0.0.0:3000     -> http://localhost:3000/
//	127.0.0.1:3000   -> http://127.0.0.1:3000/
func httpURLFromAddr(addr string) string {
	a := strings.TrimSpace(addr)
	if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
		return strings.TrimRight(a, "/") + "/"
	}

	host, port, err := net.SplitHostPort(a)
	if err != nil {
		return "http://localhost/"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
