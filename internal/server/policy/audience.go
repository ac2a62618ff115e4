// Package policy maps users to audiences and checks route access.
package policy

import (
	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
)

// AudienceOf derives the audience from the stored user_types tag. Only the
// exact value "manager" maps to the manager audience; anything else,
// including other spellings, is open.
func AudienceOf(u *models.User) models.Audience {
	if u.UserTypes == string(models.AudienceManager) {
		return models.AudienceManager
	}
	return models.AudienceOpen
}

// Check rejects an identity whose audience differs from the route's.
func Check(have, want models.Audience) error {
	if have != want {
		return common.ErrForbidden
	}
	return nil
}
