package repository

import "errors"

var ErrNotFound = errors.New("not found")

// ガード付きUPDATEが0行だった、またはPG側の直列化競合。
// 呼び出し側は最新値を読み直してリトライする（0へ丸めない）。
var ErrConflict = errors.New("conflict")
