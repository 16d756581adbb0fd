package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=admin teacher student"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// CreateUserRequest 管理员创建用户
type CreateUserRequest struct {
	Email       string `json:"email"         binding:"required,email,max=255"`
	FullName    string `json:"full_name"     binding:"required,min=2,max=100"`
	Password    string `json:"password"      binding:"required,min=6,max=64"`
	Role        string `json:"role"          binding:"required,oneof=admin teacher student"`
	PhoneNumber string `json:"phone_number"  binding:"omitempty,max=20"`
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Hometown    string `json:"hometown"      binding:"omitempty,max=100"`
}

// UpdateUserRequest 更新用户资料，角色不可通过此接口修改
type UpdateUserRequest struct {
	Email       *string `json:"email"         binding:"omitempty,email,max=255"`
	FullName    *string `json:"full_name"     binding:"omitempty,min=2,max=100"`
	PhoneNumber *string `json:"phone_number"  binding:"omitempty,max=20"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Hometown    *string `json:"hometown"      binding:"omitempty,max=100"`
}

// ChangePasswordRequest 管理员为用户设置新密码
type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password"     binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ImportUserResponse 批量导入用户响应
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
	Created []ImportedUser    `json:"created,omitempty"`
}

// ImportedUser 导入成功的用户；未提供密码的行会生成临时密码
type ImportedUser struct {
	Row          int    `json:"row"`
	Email        string `json:"email"`
	TempPassword string `json:"temp_password,omitempty"`
}

// ImportUserError 导入错误详情
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ── 管理后台统计 ──

// DashboardResponse 管理后台概览
type DashboardResponse struct {
	TotalUsers       int64        `json:"total_users"`
	TotalAdmins      int64        `json:"total_admins"`
	TotalTeachers    int64        `json:"total_teachers"`
	TotalStudents    int64        `json:"total_students"`
	TotalClasses     int64        `json:"total_classes"`
	ActiveClasses    int64        `json:"active_classes"`
	TotalAssignments int64        `json:"total_assignments"`
	TotalSubmissions int64        `json:"total_submissions"`
	NewUsers         []DailyCount `json:"new_users"` // 近 30 天，每天一项，无注册的日期计 0
}

// DailyCount 单日计数
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
