package hop

// A PersonhoodVerifier gates pool submissions. The proof bytes are opaque
// to the pool; the verifier decides whether the submitter may insert.
type PersonhoodVerifier interface {
	VerifyPersonhood(proof []byte) error
}

// AllowAll accepts every submission. It is the default verifier for
// private deployments.
type AllowAll struct{}

// VerifyPersonhood implements PersonhoodVerifier.
func (AllowAll) VerifyPersonhood([]byte) error {
	return nil
}
