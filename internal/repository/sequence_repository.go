package repository

import "context"

// prefix+yearスコープの連番発番の約束。
// 同時発番は行ロックで直列化する。
type SequenceRepository interface {
	Next(ctx context.Context, prefix string, year int) (int, error)
}
