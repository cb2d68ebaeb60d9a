package logging

import (
	"log/slog"
	"os"
)

// New は環境に応じたslogロガーを返す。
// devは読みやすいtext、それ以外は収集前提のJSON。
func New(env string) *slog.Logger {
	if env == "dev" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
