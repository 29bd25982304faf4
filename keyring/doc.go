// Package keyring manages the asymmetric signing keypair behind the
// token service.
//
// The File provider lazily generates an RSA keypair on first use and
// persists it as PEM (PKCS#8 private key with owner-only permissions,
// PKIX public key world-readable), so any process holding only the
// public half can verify tokens. The Provider interface keeps key
// sourcing swappable: rotation or KMS-backed keys mean a new Provider,
// not new call sites.
package keyring
