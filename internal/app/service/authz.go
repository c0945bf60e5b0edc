package service

import (
	"errors"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
)

var ErrForbidden = errors.New("you are not allowed to perform this action")

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   model.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// requireRole fails with ErrForbidden unless the actor has one of roles.
func requireRole(actor Actor, roles ...model.UserRole) error {
	if actor.UserID == 0 {
		return ErrForbidden
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// pageBounds normalizes page/pageSize into limit and offset.
func pageBounds(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return pageSize, (page - 1) * pageSize
}
