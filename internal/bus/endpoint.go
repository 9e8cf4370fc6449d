package bus

import (
	"strings"
)

const (
	PublicPrefix = "/public/"
	NetPrefix    = "/net/"
)

// IsPublic reports whether addr names a locally bindable endpoint.
func IsPublic(addr string) bool {
	return strings.HasPrefix(addr, PublicPrefix) && len(addr) > len(PublicPrefix)
}

// NetAddr returns the address of service on node nodeID: /net/<nodeID>/<service>.
// nodeID is used verbatim, so an empty ID yields "/net//<service>".
func NetAddr(nodeID, service string) string {
	return NetPrefix + nodeID + "/" + service
}

// ParseNetAddr splits a /net address into the target node ID and the public
// endpoint it resolves to on that node. "/net/0xab/chat" yields
// ("0xab", "/public/chat", true).
func ParseNetAddr(addr string) (nodeID, endpoint string, ok bool) {
	rest, found := strings.CutPrefix(addr, NetPrefix)
	if !found {
		return "", "", false
	}
	i := strings.Index(rest, "/")
	if i < 0 || i == len(rest)-1 {
		return "", "", false
	}

	return rest[:i], PublicPrefix + rest[i+1:], true
}
