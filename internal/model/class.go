package model

// Class 班级表，对应 classes
// TeacherID 创建后不可变更；子记录一律通过外键反查，不持有反向集合
type Class struct {
	ClassID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	ClassName    string `gorm:"type:varchar(100);not null"                     json:"class_name"`
	ClassCode    string `gorm:"type:varchar(20);not null"                      json:"class_code"`
	Description  string `gorm:"type:varchar(500)"                              json:"description,omitempty"`
	AcademicYear string `gorm:"type:varchar(20);not null"                      json:"academic_year"`
	Semester     string `gorm:"type:varchar(20);not null"                      json:"semester"`
	MaxStudents  int    `gorm:"not null;default:0"                             json:"max_students"`
	TeacherID    string `gorm:"type:uuid;not null;<-:create"                   json:"teacher_id"`
	Status       Status `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	BaseModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }
