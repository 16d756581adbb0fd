//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	"class-portal/backend/pkg/database"
	pkgerrors "class-portal/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=portal password=portal_password dbname=class_portal_test sslmode=disable TimeZone=Asia/Ho_Chi_Minh"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type fixture struct {
	teacher *model.User
	student *model.User
	class   *model.Class
}

// setupFixture 创建教师、学生与一个带时段的班级，返回清理函数
func setupFixture(t *testing.T) (*fixture, func()) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	teacher := &model.User{
		Email:        fmt.Sprintf("teacher%d@portal.test", suffix),
		FullName:     "测试教师",
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleTeacher,
		Status:       model.StatusActive,
	}
	student := &model.User{
		Email:        fmt.Sprintf("student%d@portal.test", suffix),
		FullName:     "测试学生",
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleStudent,
		Status:       model.StatusActive,
	}
	for _, u := range []*model.User{teacher, student} {
		if err := testDB.WithContext(ctx).Create(u).Error; err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}

	class := &model.Class{
		ClassName:    "数据结构",
		ClassCode:    fmt.Sprintf("C%d", suffix%1_000_000_000),
		AcademicYear: "2023-2024",
		Semester:     "HK2",
		MaxStudents:  40,
		TeacherID:    teacher.UserID,
		Status:       model.StatusActive,
	}
	if err := testDB.WithContext(ctx).Create(class).Error; err != nil {
		t.Fatalf("创建班级失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("class_id = ?", class.ClassID).Delete(&model.Class{})
		testDB.Where("user_id IN ?", []string{teacher.UserID, student.UserID}).Delete(&model.User{})
	}
	return &fixture{teacher: teacher, student: student, class: class}, cleanup
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ═══════════════════════════════════════════════════════════
// Test: Enrollment upsert
// ═══════════════════════════════════════════════════════════

func TestEnrollment_CreateIfAbsent(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	e := &model.Enrollment{ClassID: f.class.ClassID, StudentID: f.student.UserID, Status: model.EnrollmentApproved, EnrolledAt: time.Now()}
	created, err := repo.Enrollment.CreateIfAbsent(ctx, e)
	if err != nil || !created {
		t.Fatalf("首次插入应成功: created=%v err=%v", created, err)
	}

	dup := &model.Enrollment{ClassID: f.class.ClassID, StudentID: f.student.UserID, Status: model.EnrollmentPending, EnrolledAt: time.Now()}
	created, err = repo.Enrollment.CreateIfAbsent(ctx, dup)
	if err != nil {
		t.Fatalf("重复插入不应报错: %v", err)
	}
	if created {
		t.Error("重复插入应返回 created=false")
	}

	got, err := repo.Enrollment.GetByClassAndStudent(ctx, f.class.ClassID, f.student.UserID)
	if err != nil {
		t.Fatalf("查询选课失败: %v", err)
	}
	if got.Status != model.EnrollmentApproved {
		t.Errorf("重复插入不应修改已有记录，实际状态 %s", got.Status)
	}
}

func TestUser_DuplicateEmailTranslated(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	err := repo.User.Create(context.Background(), &model.User{
		Email:        f.student.Email,
		FullName:     "重复",
		PasswordHash: "x",
		Role:         model.RoleStudent,
		Status:       model.StatusActive,
	})
	if !errors.Is(err, pkgerrors.ErrConstraintViolation) {
		t.Fatalf("期望 ErrConstraintViolation，实际 %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Sessions for student
// ═══════════════════════════════════════════════════════════

func TestClassSession_ListForStudent(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	sessions := []model.ClassSession{
		{ClassID: f.class.ClassID, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "11:00:00", StartDate: day(2024, 1, 1), EndDate: day(2024, 3, 1)},
		{ClassID: f.class.ClassID, DayOfWeek: 3, StartTime: "14:00:00", EndTime: "16:00:00", StartDate: day(2024, 1, 14), EndDate: day(2024, 3, 1)},
		{ClassID: f.class.ClassID, DayOfWeek: 5, StartTime: "07:00:00", EndTime: "09:00:00", StartDate: day(2024, 2, 1), EndDate: day(2024, 3, 1)},
	}
	if err := repo.ClassSession.CreateBatch(ctx, sessions); err != nil {
		t.Fatalf("批量创建时段失败: %v", err)
	}

	from, to := day(2024, 1, 8), day(2024, 1, 14)

	got, err := repo.ClassSession.ListForStudent(ctx, f.student.UserID, from, to)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("未选课时应查不到时段，实际 %d", len(got))
	}

	if _, err := repo.Enrollment.CreateIfAbsent(ctx, &model.Enrollment{
		ClassID: f.class.ClassID, StudentID: f.student.UserID, Status: model.EnrollmentApproved, EnrolledAt: time.Now(),
	}); err != nil {
		t.Fatalf("选课失败: %v", err)
	}

	got, err = repo.ClassSession.ListForStudent(ctx, f.student.UserID, from, to)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	// 第三个时段 2 月才开始，不应出现
	if len(got) != 2 {
		t.Fatalf("期望 2 个时段，实际 %d", len(got))
	}
	if got[0].Class == nil || got[0].Class.ClassCode != f.class.ClassCode {
		t.Error("时段应预加载所属班级")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction & lifecycle
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	class := &model.Class{
		ClassName: "回滚班级", ClassCode: f.class.ClassCode + "R", AcademicYear: "2023-2024",
		Semester: "HK2", TeacherID: f.teacher.UserID, Status: model.StatusActive,
	}
	if err := txRepo.Class.Create(ctx, class); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建班级失败: %v", err)
	}
	tx.Rollback()

	if _, err := repo.Class.GetByID(ctx, class.ClassID); !errors.Is(err, gorm.ErrRecordNotFound) {
		testDB.Where("class_id = ?", class.ClassID).Delete(&model.Class{})
		t.Fatalf("期望回滚后查不到班级，实际 err=%v", err)
	}
}

func TestClass_SetStatusKeepsRow(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	at := time.Now().Truncate(time.Second)

	if err := repo.Class.SetStatus(ctx, f.class.ClassID, model.StatusInactive, at); err != nil {
		t.Fatalf("停用班级失败: %v", err)
	}
	got, err := repo.Class.GetByID(ctx, f.class.ClassID)
	if err != nil {
		t.Fatalf("停用后班级应仍可查询: %v", err)
	}
	if got.Status != model.StatusInactive {
		t.Errorf("期望状态 inactive，实际 %s", got.Status)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Errorf("期望 updated_at=%v，实际 %v", at, got.UpdatedAt)
	}

	if err := repo.Class.SetStatus(ctx, "00000000-0000-0000-0000-000000000000", model.StatusActive, at); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("不存在的班级期望 ErrRecordNotFound，实际 %v", err)
	}
}

func TestMalformedIDs_NotFoundAgainstPostgres(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if _, err := repo.Class.GetByID(ctx, "123"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("非法班级 ID 期望 ErrRecordNotFound，实际 %v", err)
	}
	if _, err := repo.Enrollment.GetByClassAndStudent(ctx, "abc", f.student.UserID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("非法班级 ID 期望 ErrRecordNotFound，实际 %v", err)
	}
	if ok, err := repo.Enrollment.IsApproved(ctx, "abc", f.student.UserID); ok || err != nil {
		t.Errorf("期望 (false, nil)，实际 (%v, %v)", ok, err)
	}
}
