// Package anonet provides optional anonymous transport for probe traffic.
//
// Probing AI chat endpoints repeatedly from one address invites rate
// limiting and IP bans. This package lets the fleet route probe traffic
// through a SOCKS5 proxy, either an operator-supplied one or an embedded
// Tor daemon managed via the tornago library. Direct transport remains the
// default; anonymity is opt-in per operation.
//
// The package is designed to be used with dependency injection - create a
// Client and hand its HTTP client to the prober rather than using global
// state.
package anonet
