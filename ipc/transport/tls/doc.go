// Package tls implements the TLS secured TCP transport of the IPC system.
//
// Key material is referenced by file path in common.TLSConfig and read each
// time a client connects or a server binds:
//
//   - Private/Public: PEM key and certificate. Servers fall back to the
//     bundled development credentials when both are empty. Clients without
//     them do not present a certificate.
//   - TrustedConnections: PEM CA certificates. Clients verify the server
//     against them; servers verify client certificates if one is presented.
//     When empty, the development certificate is trusted.
//   - DHParam: accepted but ignored, Go's TLS stack only offers ECDHE.
//
// WARNING: the development credentials under devcerts/ are public. A
// configuration without own key material is not secure and is meant for
// local testing only.
package tls
