// Package transport provides the network access used by workers.
//
// A Client dials either directly or through a SOCKS5 proxy, which may be an
// embedded Tor daemon started with EmbeddedTor. Workers never dial on their
// own so that a single flag routes every probe through the proxy.
package transport
