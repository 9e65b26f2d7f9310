// Copyright (c) 2023 BVK Chaitanya

package cmdutil

import (
	"flag"
	"fmt"
	"net"
	"os"
)

type ServerFlags struct {
	Port int
	IP   string
}

func (sf *ServerFlags) SetFlags(fset *flag.FlagSet) {
	fset.IntVar(&sf.Port, "listen-port", 0, "TCP port number for the api endpoint (default=10000 or SNIPER_SERVER_PORT value)")
	fset.StringVar(&sf.IP, "listen-ip", "127.0.0.1", "TCP ip address for the api endpoint")
}

// TCPAddr returns the listen address. Zero port is replaced with the default
// port.
func (sf *ServerFlags) TCPAddr(defaultPort int) (*net.TCPAddr, error) {
	ip := net.ParseIP(sf.IP)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address %q: %w", sf.IP, os.ErrInvalid)
	}
	port := sf.Port
	if port == 0 {
		port = defaultPort
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port number %d: %w", port, os.ErrInvalid)
	}
	return &net.TCPAddr{IP: ip, Port: port}, nil
}
