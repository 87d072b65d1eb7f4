package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
	apperrors "github.com/ilsegaertner/CUB-Film-data/pkg/errors"
)

func TestGate_OwnerAllowed(t *testing.T) {
	assert.NoError(t, Gate{}.Authorize(domain.Identity{UserID: "u1", Username: "alice1"}, "alice1"))
}

func TestGate_OthersDenied(t *testing.T) {
	users := []string{"alice1", "bobby2", "carol3", "Alice1"}
	for _, a := range users {
		for _, b := range users {
			if a == b {
				continue
			}
			err := Gate{}.Authorize(domain.Identity{UserID: "id-" + a, Username: a}, b)
			assert.ErrorIs(t, err, ErrPermissionDenied, "%s acting on %s", a, b)
			assert.Equal(t, 403, apperrors.HTTPStatus(err))
		}
	}
}

func TestGate_EmptyIdentityDenied(t *testing.T) {
	assert.ErrorIs(t, Gate{}.Authorize(domain.Identity{}, ""), ErrPermissionDenied)
}
