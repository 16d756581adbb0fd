package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"class-portal/backend/internal/service"
	pkgerrors "class-portal/backend/pkg/errors"
	"class-portal/backend/pkg/response"
	"class-portal/backend/pkg/storage"
)

// 通用错误码
const (
	codeBadRequest   = 10001
	codeUnauthorized = 10002
	codeForbidden    = 10003
	codeTooLarge     = 10005
	codeNotFound     = 10006
	codeConflict     = 10007
	codeValidation   = 10008
	codeFileRequired = 10009
)

// handleBindError 请求绑定失败：字段校验错误以列表返回，其余按格式错误处理
func handleBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		ve := &pkgerrors.ValidationError{}
		for _, fe := range verrs {
			ve.Add(fieldPath(fe), fieldMessage(fe))
		}
		response.ValidationFailed(c, codeValidation, ve)
		return
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		response.Error(c, http.StatusRequestEntityTooLarge, codeTooLarge, "请求体过大")
		return
	}
	response.BadRequest(c, codeBadRequest, "参数校验失败")
}

// fieldPath 去掉顶层结构体名，保留 sessions[0].start_time 形式的路径
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "email":
		return "邮箱格式无效"
	case "min", "gt", "gte":
		return "不能小于 " + fe.Param()
	case "max", "lte":
		return "不能大于 " + fe.Param()
	case "oneof":
		return "取值必须为 " + fe.Param() + " 之一"
	case "eqfield":
		return "与 " + fe.Param() + " 不一致"
	case "datetime":
		return "格式应为 " + fe.Param()
	case "clock":
		return "时间格式应为 HH:MM"
	case "weekday":
		return "星期取值应为 1-7"
	default:
		return "取值无效"
	}
}

// handleServiceError 按错误分类映射 HTTP 状态码，各模块特有的错误应在调用前处理
func handleServiceError(c *gin.Context, err error) {
	if ve, ok := pkgerrors.AsValidation(err); ok {
		response.ValidationFailed(c, codeValidation, ve)
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrUnauthenticated):
		response.Unauthorized(c, codeUnauthorized, "未认证")
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, codeForbidden, forbiddenMessage(err))
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, codeNotFound, notFoundMessage(err))
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, codeConflict, service.ErrEmailExists.Error())
	case errors.Is(err, pkgerrors.ErrConstraintViolation):
		response.Conflict(c, codeConflict, "数据已存在")
	case errors.Is(err, storage.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, codeTooLarge, "文件超过大小上限")
	case errors.Is(err, service.ErrEmptyFile):
		response.BadRequest(c, codeFileRequired, service.ErrEmptyFile.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

func forbiddenMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotClassOwner):
		return "不是该班级的授课教师"
	case errors.Is(err, service.ErrNotEnrolled):
		return "尚未加入该班级"
	case errors.Is(err, service.ErrNotYourFile):
		return "只能下载自己的提交"
	default:
		return "无权限访问"
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return "用户不存在"
	case errors.Is(err, service.ErrClassNotFound):
		return "班级不存在"
	case errors.Is(err, service.ErrAssignmentNotFound):
		return "作业不存在"
	case errors.Is(err, service.ErrSubmissionNotFound):
		return "提交记录不存在"
	case errors.Is(err, service.ErrMaterialNotFound):
		return "资料不存在"
	case errors.Is(err, service.ErrFileNotFound):
		return "文件不存在"
	default:
		return "记录不存在"
	}
}
