package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	pkgerrors "class-portal/backend/pkg/errors"
	"class-portal/backend/pkg/timeutil"
)

// ── 用户模块业务错误 ──

var (
	ErrUserSelfDeactivate = errors.New("不能停用自己的账号")
)

const minPasswordLength = 6

// UserService 用户管理业务接口（管理员）
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, id string, req *dto.ChangePasswordRequest) error
	// SetActive 启用/停用用户，只修改状态与 updated_at，从不删除记录
	SetActive(ctx context.Context, callerID, id string, active bool) error
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error)
}

// ImportUserRow Excel 导入解析后的单行数据
type ImportUserRow struct {
	Row         int
	FullName    string
	Email       string
	Role        string
	PhoneNumber string
	Password    string
}

type userService struct {
	repo      *repository.Repository
	blacklist TokenBlacklist
	revokeTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService 创建 UserService 实例
// blacklist 为 nil 时停用账号不吊销已签发的 Token
func NewUserService(repo *repository.Repository, blacklist TokenBlacklist, revokeTTL time.Duration, logger *zap.Logger) UserService {
	return &userService{repo: repo, blacklist: blacklist, revokeTTL: revokeTTL, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	email := strings.TrimSpace(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:       email,
		FullName:    strings.TrimSpace(req.FullName),
		Role:        req.Role,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Hometown:    strings.TrimSpace(req.Hometown),
		Status:      model.StatusActive,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(timeutil.DateLayout, req.DateOfBirth)
		if err != nil {
			return nil, &pkgerrors.ValidationError{Fields: []pkgerrors.FieldError{{Field: "date_of_birth", Message: "日期格式无效"}}}
		}
		user.DateOfBirth = &dob
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}
	user.PasswordHash = string(hash)

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, pkgerrors.ErrConstraintViolation) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ensureEmailFree 邮箱未被其他用户占用；selfID 非空时排除自身
func (s *userService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.User.GetByEmail(ctx, email)
	if err == nil {
		if existing.UserID != selfID {
			return ErrEmailExists
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, repository.UserFilter{
		Role:    req.Role,
		Keyword: req.Keyword,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		list = append(list, toUserResponse(&users[i]))
	}
	return list, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !strings.EqualFold(email, user.Email) {
			if err := s.ensureEmailFree(ctx, email, user.UserID); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if err := applyProfile(user, req.FullName, req.PhoneNumber, req.DateOfBirth, req.Hometown); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now()

	if err := s.repo.User.Update(ctx, user); err != nil {
		if errors.Is(err, pkgerrors.ErrConstraintViolation) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// applyProfile 更新资料字段，nil 表示不修改，空出生日期表示清除
func applyProfile(user *model.User, fullName, phone, dob, hometown *string) error {
	if fullName != nil {
		user.FullName = strings.TrimSpace(*fullName)
	}
	if phone != nil {
		user.PhoneNumber = strings.TrimSpace(*phone)
	}
	if hometown != nil {
		user.Hometown = strings.TrimSpace(*hometown)
	}
	if dob != nil {
		if *dob == "" {
			user.DateOfBirth = nil
		} else {
			d, err := time.Parse(timeutil.DateLayout, *dob)
			if err != nil {
				return &pkgerrors.ValidationError{Fields: []pkgerrors.FieldError{{Field: "date_of_birth", Message: "日期格式无效"}}}
			}
			user.DateOfBirth = &d
		}
	}
	return nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *userService) ChangePassword(ctx context.Context, id string, req *dto.ChangePasswordRequest) error {
	ve := &pkgerrors.ValidationError{}
	if len(req.NewPassword) < minPasswordLength {
		ve.Add("new_password", fmt.Sprintf("密码长度不能少于 %d 位", minPasswordLength))
	}
	if req.NewPassword != req.ConfirmPassword {
		ve.Add("confirm_password", "两次输入的密码不一致")
	}
	if err := ve.OrNil(); err != nil {
		return err
	}

	if _, err := s.getUser(ctx, id); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdatePassword(ctx, id, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("修改密码失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── SetActive ──────────────────────

func (s *userService) SetActive(ctx context.Context, callerID, id string, active bool) error {
	if !active && callerID == id {
		return ErrUserSelfDeactivate
	}
	if err := s.repo.User.SetStatus(ctx, id, model.StatusOf(active), s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("修改用户状态失败", zap.String("id", id), zap.Bool("active", active), zap.Error(err))
		return err
	}
	s.logger.Info("用户状态已变更", zap.String("id", id), zap.Bool("active", active), zap.String("by", callerID))

	// 停用后已签发的 Token 立即失效；吊销失败时刷新路径仍会拒绝停用账号
	if !active && s.blacklist != nil {
		if err := s.blacklist.RevokeUserTokens(ctx, id, s.revokeTTL); err != nil {
			s.logger.Warn("吊销用户 Token 失败", zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名/邮箱）")
)

// ParseImportFile 解析 Excel 文件中的用户数据
// 第一行为表头，必须包含 姓名、邮箱 两列；角色、电话、密码列可选
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["full_name"] < 0 || colIndex["email"] < 0 {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, key string) string {
		if idx := colIndex[key]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{
			Row:         i + 1,
			FullName:    cell(row, "full_name"),
			Email:       cell(row, "email"),
			Role:        strings.ToLower(cell(row, "role")),
			PhoneNumber: cell(row, "phone"),
			Password:    cell(row, "password"),
		}

		// 跳过全空行
		if item.FullName == "" && item.Email == "" && item.Role == "" && item.PhoneNumber == "" && item.Password == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"full_name": -1,
		"email":     -1,
		"role":      -1,
		"phone":     -1,
		"password":  -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch lower {
		case "姓名", "full_name", "name":
			idx["full_name"] = i
		case "邮箱", "email":
			idx["email"] = i
		case "角色", "role":
			idx["role"] = i
		case "电话", "phone", "phone_number":
			idx["phone"] = i
		case "密码", "password":
			idx["password"] = i
		}
	}
	return idx
}

// ────────────────────── ImportUsers ──────────────────────

func (s *userService) ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	resp := &dto.ImportUserResponse{Total: len(rows)}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row      ImportUserRow
		role     string
		hash     []byte
		tempPass string
	}
	var validRows []validatedRow
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		if row.FullName == "" || row.Email == "" {
			fail(row.Row, "必填字段为空")
			continue
		}
		if _, err := mail.ParseAddress(row.Email); err != nil {
			fail(row.Row, fmt.Sprintf("邮箱格式无效: %s", row.Email))
			continue
		}

		role := row.Role
		if role == "" {
			role = model.RoleStudent
		}
		if !model.ValidRole(role) {
			fail(row.Row, fmt.Sprintf("角色无效: %s", row.Role))
			continue
		}

		key := strings.ToLower(row.Email)
		if seen[key] {
			fail(row.Row, fmt.Sprintf("文件内邮箱重复: %s", row.Email))
			continue
		}
		if _, err := s.repo.User.GetByEmail(ctx, row.Email); err == nil {
			fail(row.Row, fmt.Sprintf("邮箱已存在: %s", row.Email))
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询邮箱失败", zap.Int("row", row.Row), zap.Error(err))
			return nil, err
		}

		password, tempPass := row.Password, ""
		if password == "" {
			generated, err := generateTempPassword(8)
			if err != nil {
				s.logger.Error("生成临时密码失败", zap.Error(err))
				return nil, err
			}
			password, tempPass = generated, generated
		} else if len(password) < minPasswordLength {
			fail(row.Row, fmt.Sprintf("密码长度不能少于 %d 位", minPasswordLength))
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			fail(row.Row, "密码哈希失败")
			continue
		}

		seen[key] = true
		validRows = append(validRows, validatedRow{row: row, role: role, hash: hash, tempPass: tempPass})
	}

	// 第二阶段：在事务中批量创建所有通过校验的用户
	if len(validRows) > 0 {
		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			s.logger.Error("开启事务失败", zap.Error(err))
			return nil, err
		}
		defer func() {
			if r := recover(); r != nil {
				if tx != nil {
					tx.Rollback()
				}
				panic(r)
			}
		}()

		txRepo := s.repo.WithTx(tx)

		for _, vr := range validRows {
			user := &model.User{
				Email:        vr.row.Email,
				FullName:     vr.row.FullName,
				PasswordHash: string(vr.hash),
				Role:         vr.role,
				PhoneNumber:  vr.row.PhoneNumber,
				Status:       model.StatusActive,
			}

			if err := txRepo.User.Create(ctx, user); err != nil {
				// 事务中任一写入失败则全部回滚
				if tx != nil {
					tx.Rollback()
				}
				s.logger.Error("导入用户写入失败，事务回滚",
					zap.Int("row", vr.row.Row), zap.Error(err))
				return nil, fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
			}
			resp.Success++
			resp.Created = append(resp.Created, dto.ImportedUser{
				Row:          vr.row.Row,
				Email:        vr.row.Email,
				TempPassword: vr.tempPass,
			})
		}

		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				s.logger.Error("提交事务失败", zap.Error(err))
				return nil, err
			}
		}
	}

	s.logger.Info("批量导入用户完成",
		zap.Int("total", resp.Total), zap.Int("success", resp.Success), zap.Int("failed", resp.Failed))
	return resp, nil
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 4 {
		length = 8
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	result := make([]byte, length)
	var err error
	// 保证至少1个字母+1个数字
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}

	return string(result), nil
}
