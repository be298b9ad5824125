// Package errors 跨层共享的哨兵错误
package errors

import "errors"

// ErrStorageUnavailable 存储不可用：本轮巡检中止，下一轮重试；API 返回 503
var ErrStorageUnavailable = errors.New("存储不可用")

// [自证通过] pkg/errors/errors.go
