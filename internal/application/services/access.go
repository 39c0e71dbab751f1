package services

import (
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// requireStaff allows any signed-in user
func requireStaff(actor entities.Identity) error {
	if !actor.Authenticated() {
		return apperrors.NewUnauthorizedError("authentication required")
	}
	return nil
}

// requireAdmin allows signed-in admins only
func requireAdmin(actor entities.Identity) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbiddenError("admin access required")
	}
	return nil
}
