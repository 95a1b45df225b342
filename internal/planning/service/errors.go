package service

import (
	"fmt"
	"strings"
)

// CircularDependencyError BOM循环引用，Path为完整的产品ID路径
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("检测到BOM循环引用: %s", strings.Join(e.Path, " -> "))
}

// StatusTransitionError 非法状态流转，记录当前状态与尝试的目标状态
type StatusTransitionError struct {
	Entity    string
	ID        string
	Current   string
	Attempted string
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("%s %s 状态不允许流转: %s -> %s", e.Entity, e.ID, e.Current, e.Attempted)
}

// InvalidVersionError 版本冲突或在非草稿状态上执行修改/发布
type InvalidVersionError struct {
	ProductID string
	Version   string
	Reason    string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("版本无效 (product=%s, version=%s): %s", e.ProductID, e.Version, e.Reason)
}
