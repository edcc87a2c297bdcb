package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrPermissionDenied 权限不足：操作者对目标用户无对应能力
// 核心层以返回值而非 panic 传递该业务条件
var ErrPermissionDenied = errors.New("无权访问目标用户的数据")
