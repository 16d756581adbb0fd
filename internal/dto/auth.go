package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email      string `json:"email"    binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RegisterRequest 自助注册请求，注册后角色固定为学生
type RegisterRequest struct {
	FullName        string `json:"full_name"        binding:"required,min=2,max=100"`
	Email           string `json:"email"            binding:"required,email,max=255"`
	Password        string `json:"password"         binding:"required,min=6,max=64"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	PhoneNumber     string `json:"phone_number"     binding:"omitempty,max=20"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"` // 非 Cookie 模式时使用
}

// UpdateProfileRequest 用户修改本人资料，邮箱与角色不可修改
type UpdateProfileRequest struct {
	FullName    *string `json:"full_name"     binding:"omitempty,min=2,max=100"`
	PhoneNumber *string `json:"phone_number"  binding:"omitempty,max=20"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Hometown    *string `json:"hometown"      binding:"omitempty,max=100"`
}

// ChangeOwnPasswordRequest 用户修改本人密码，须提供当前密码
type ChangeOwnPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}
