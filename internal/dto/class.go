package dto

// ── 班级模块 DTO ──

// SessionInput 创建班级时提交的一行上课时段
// 整行留空会被忽略，填写了任一字段则必须填全
type SessionInput struct {
	DayOfWeek int    `json:"day_of_week" binding:"omitempty,weekday"`
	StartTime string `json:"start_time"  binding:"omitempty,clock"`
	EndTime   string `json:"end_time"    binding:"omitempty,clock"`
	StartDate string `json:"start_date"  binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date"    binding:"omitempty,datetime=2006-01-02"`
	Location  string `json:"location"    binding:"omitempty,max=255"`
}

// IsBlank 整行是否未填写
func (s *SessionInput) IsBlank() bool {
	return s.DayOfWeek == 0 && s.StartTime == "" && s.EndTime == "" &&
		s.StartDate == "" && s.EndDate == "" && s.Location == ""
}

// CreateClassRequest 教师创建班级（含上课时段）
type CreateClassRequest struct {
	ClassName    string         `json:"class_name"    binding:"required,max=100"`
	ClassCode    string         `json:"class_code"    binding:"required,max=20"`
	Description  string         `json:"description"   binding:"omitempty,max=500"`
	AcademicYear string         `json:"academic_year" binding:"required,max=20"`
	Semester     string         `json:"semester"      binding:"required,max=20"`
	MaxStudents  int            `json:"max_students"  binding:"min=0,max=500"`
	Sessions     []SessionInput `json:"sessions"      binding:"dive"`
}

// UpdateClassRequest 教师编辑班级基本信息
type UpdateClassRequest struct {
	ClassName    string `json:"class_name"    binding:"required,max=100"`
	ClassCode    string `json:"class_code"    binding:"required,max=20"`
	Description  string `json:"description"   binding:"omitempty,max=500"`
	AcademicYear string `json:"academic_year" binding:"required,max=20"`
	Semester     string `json:"semester"      binding:"required,max=20"`
	MaxStudents  int    `json:"max_students"  binding:"min=0,max=500"`
}

// ClassListRequest 管理员班级列表查询参数
type ClassListRequest struct {
	PaginationRequest
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
	Status  string `form:"status"  binding:"omitempty,oneof=active inactive"`
}

// ClassSearchRequest 学生搜索班级
type ClassSearchRequest struct {
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// ClassResponse 班级信息
type ClassResponse struct {
	ID           string     `json:"id"`
	ClassName    string     `json:"class_name"`
	ClassCode    string     `json:"class_code"`
	Description  string     `json:"description,omitempty"`
	AcademicYear string     `json:"academic_year"`
	Semester     string     `json:"semester"`
	MaxStudents  int        `json:"max_students"`
	Status       string     `json:"status"`
	Teacher      *UserBrief `json:"teacher,omitempty"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}

// ClassDetailResponse 班级详情（含时段与选课人数）
type ClassDetailResponse struct {
	ClassResponse
	Sessions     []SessionResponse `json:"sessions"`
	StudentCount int64             `json:"student_count"`
}

// SessionResponse 上课时段
type SessionResponse struct {
	ID        string `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Location  string `json:"location,omitempty"`
}

// RosterEntry 班级花名册中的一名学生
type RosterEntry struct {
	StudentID   string   `json:"student_id"`
	FullName    string   `json:"full_name"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Status      string   `json:"status"`
	EnrolledAt  string   `json:"enrolled_at"`
	Grade       *float64 `json:"grade,omitempty"`
}

// ── 选课 ──

// JoinClassResponse 加入班级结果
type JoinClassResponse struct {
	ClassID string `json:"class_id"`
	Result  string `json:"result"` // joined | already_enrolled
}

// JoinedClassResponse 学生已加入的班级
type JoinedClassResponse struct {
	ClassResponse
	EnrolledAt string `json:"enrolled_at"`
}
