package auth

import "github.com/ilsegaertner/CUB-Film-data/internal/domain"

// Gate applies the owner-only policy: a user may act only on their own account.
type Gate struct{}

// Authorize returns ErrPermissionDenied unless requester owns ownerUsername.
// requester must come from Authenticator.Resolve so the comparison uses the
// stored username rather than one embedded in a token.
func (Gate) Authorize(requester domain.Identity, ownerUsername string) error {
	if requester.Username == "" || requester.Username != ownerUsername {
		return ErrPermissionDenied
	}
	return nil
}
