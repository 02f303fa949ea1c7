package handler

import (
	"errors"
	"net/http"
	"pharmacy-api/common"
	"pharmacy-api/logger"
	"pharmacy-api/model"
	"pharmacy-api/service"
	"strconv"

	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers returns all users. Admin only.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) *common.AppError {
	users, err := h.userService.GetAllUsers(r.Context())
	if err != nil {
		return common.Internal("Could not retrieve users", err)
	}

	common.SendSuccess(w, http.StatusOK, "Users retrieved successfully", users)
	return nil
}

// UpdateUserRole changes a user's role. Admin only.
func (h *UserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.BadRequest("Invalid user ID", nil)
	}

	var req model.UpdateUserRoleRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    req.Role,
	})
	log.Info("Update user role request received")

	if err := h.userService.UpdateUserRole(r.Context(), userID, req.Role); err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidRole):
			return common.BadRequest("Invalid role specified", nil)
		case errors.Is(err, common.ErrUserNotFound):
			return common.NotFound("User not found", nil)
		default:
			return common.Internal("Could not update user role", err)
		}
	}

	common.SendSuccess(w, http.StatusOK, "User role updated successfully", nil)
	return nil
}
