package models

// Principal is the authenticated caller identity handed to the rest of the application.
// Principal 是交给应用其余部分的已认证调用者身份。
type Principal struct {
	Subject   string
	User      *UserRecord
	RawClaims map[string]interface{}

	// VerifiedWithRetiredKey is true when the signature only matched a retired key.
	VerifiedWithRetiredKey bool
	// RetiredKeyIndex is the position in the retired list that matched, nil for the current key.
	RetiredKeyIndex *int
	// ShouldReauthenticate asks the client to obtain a fresh token soon.
	ShouldReauthenticate bool
	// DegradedLookup is true when the user was resolved through the simplified lookup path.
	DegradedLookup bool
}
