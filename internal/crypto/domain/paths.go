package domain

// Logical storage paths. The whole persisted layout is prefix-structured so
// rotation and wipe can enumerate a scope with one prefix scan.
const (
	// PathRegistry holds the encrypted DEK registry blob, sealed under the KEK.
	PathRegistry = "crypto/env"

	// PathUserKeyPrefix is the scope of per-user uuDEKs, sealed under the user DEK.
	PathUserKeyPrefix = "crypto/keys/user/"

	// PathRecoveryPrefix is the scope of recovery records, each sealed under a
	// key derived from its own recovery secret.
	PathRecoveryPrefix = "crypto/recoverykeys/"

	// PathUserPrefix is the scope of all user domain records.
	PathUserPrefix = "user/"

	// PathSessionPrefix is the scope of session records, sealed under the session DEK.
	PathSessionPrefix = "session/"
)

// UserKeyPath returns the uuDEK path for a derived user key.
func UserKeyPath(userKey string) string {
	return PathUserKeyPrefix + userKey + "/keys"
}

// UserRecordPath returns the path of a named record in a user's scope.
func UserRecordPath(userKey, record string) string {
	return PathUserPrefix + userKey + "/" + record
}

// UserScopePrefix returns the prefix covering every record in a user's scope.
func UserScopePrefix(userKey string) string {
	return PathUserPrefix + userKey + "/"
}

// SessionPath returns the path of a session record.
func SessionPath(sessionID string) string {
	return PathSessionPrefix + sessionID
}

// RecoveryPath returns the path of a recovery record given its lookup index.
func RecoveryPath(lookupIndex string) string {
	return PathRecoveryPrefix + lookupIndex
}
