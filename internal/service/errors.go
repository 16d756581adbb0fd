package service

import (
	"fmt"

	pkgerrors "class-portal/backend/pkg/errors"
)

// ── 跨模块共用的业务错误 ──

var (
	errUnauthenticated = pkgerrors.ErrUnauthenticated

	ErrUserNotFound       = fmt.Errorf("%w: 用户不存在", pkgerrors.ErrNotFound)
	ErrClassNotFound      = fmt.Errorf("%w: 班级不存在", pkgerrors.ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("%w: 作业不存在", pkgerrors.ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("%w: 提交记录不存在", pkgerrors.ErrNotFound)
	ErrMaterialNotFound   = fmt.Errorf("%w: 资料不存在", pkgerrors.ErrNotFound)
	ErrFileNotFound       = fmt.Errorf("%w: 文件不存在", pkgerrors.ErrNotFound)

	ErrNotClassOwner = fmt.Errorf("%w: 不是该班级的授课教师", pkgerrors.ErrForbidden)
	ErrNotEnrolled   = fmt.Errorf("%w: 尚未加入该班级", pkgerrors.ErrForbidden)
	ErrNotYourFile   = fmt.Errorf("%w: 只能下载自己的提交", pkgerrors.ErrForbidden)
)
