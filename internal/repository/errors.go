package repository

import "errors"

// 対象が存在しない
var ErrNotFound = errors.New("not found")

// 条件付き在庫更新が0件（在庫不足）
var ErrInsufficientStock = errors.New("insufficient stock")

// 一意制約違反
var ErrDuplicate = errors.New("duplicate")

// 条件付き更新で前提の状態が変わっていた
var ErrStaleState = errors.New("stale state")
