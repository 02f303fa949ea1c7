package service

import (
	"context"
	"pharmacy-api/common"
	"pharmacy-api/model"
	"pharmacy-api/repository"
)

// UserService handles user administration logic.
type UserService struct {
	userRepo repository.IUserRepository
}

func NewUserService(userRepo repository.IUserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.GetAllUsers(ctx)
}

// UpdateUserRole validates the role against the catalog and calls the
// repository to update it.
func (s *UserService) UpdateUserRole(ctx context.Context, userID int, newRole model.Role) error {
	if !model.ValidRole(newRole) {
		return common.ErrInvalidRole
	}
	return s.userRepo.UpdateUserRole(ctx, userID, string(newRole))
}
