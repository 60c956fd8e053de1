package dto

type UpdateProfileRequest struct {
	FirstName string `json:"first_name" binding:"omitempty,min=2,max=50"`
	LastName  string `json:"last_name" binding:"omitempty,min=2,max=50"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=100,password"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=USER EMPLOYEE MANAGER ADMIN"`
}

type ReplaceRolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1,dive,oneof=USER EMPLOYEE MANAGER ADMIN"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=INACTIVE ACTIVE BANNED"`
}

// UserFilter narrows GET /users
type UserFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=INACTIVE ACTIVE BANNED"`
	Role     string `form:"role" binding:"omitempty,oneof=USER EMPLOYEE MANAGER ADMIN"`
	Verified *bool  `form:"verified"`
	Search   string `form:"search"`
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceType string `json:"device_type" binding:"omitempty,oneof=ANDROID IOS WEB"`
}
