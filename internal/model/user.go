package model

import "time"

// 用户角色
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// ValidRole 是否为合法角色
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleTeacher || role == RoleStudent
}

// User 用户表，对应 users
type User struct {
	UserID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email        string     `gorm:"type:varchar(255);not null"                     json:"email"`
	FullName     string     `gorm:"type:varchar(100);not null"                     json:"full_name"`
	PasswordHash string     `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	PhoneNumber  string     `gorm:"type:varchar(20)"                               json:"phone_number,omitempty"`
	DateOfBirth  *time.Time `gorm:"type:date"                                      json:"date_of_birth,omitempty"`
	Hometown     string     `gorm:"type:varchar(100)"                              json:"hometown,omitempty"`
	Status       Status     `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
