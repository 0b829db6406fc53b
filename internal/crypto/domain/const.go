package domain

// DekName identifies one of the named Data Encryption Keys in the registry.
//
// Each DEK encrypts one category of records:
//   - DekUser encrypts the per-user unique DEKs (uuDEKs), which in turn
//     encrypt that user's content and entry records.
//   - DekSession encrypts session records.
//   - DekSettings encrypts user settings records.
//   - DekSigning is not an encryption key at all: it is the HMAC key for
//     session and public-user token signatures. It lives in the registry so it
//     shares the rotation machinery.
type DekName string

const (
	DekUser     DekName = "user"
	DekSession  DekName = "session"
	DekSettings DekName = "settings"
	DekSigning  DekName = "signing"
)

// AllDekNames returns every registry key name in stable order.
func AllDekNames() []DekName {
	return []DekName{DekUser, DekSession, DekSettings, DekSigning}
}

// Valid reports whether n names a registry key.
func (n DekName) Valid() bool {
	switch n {
	case DekUser, DekSession, DekSettings, DekSigning:
		return true
	}
	return false
}

// KeySize is the size in bytes of every symmetric key in the hierarchy
// (KEK, DEKs, uuDEKs, signing key): 256 bits.
const KeySize = 32
