package logger

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// slogBridge routes log/slog records onto the shared zap pipeline. Open
// groups become dotted key prefixes instead of nested objects, so bridged
// fields look the same as the zap fields the middleware emits.
type slogBridge struct {
	zl     *zap.Logger
	prefix string
	fields []zap.Field
}

func newSlogZapHandler(zl *zap.Logger) slog.Handler {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &slogBridge{zl: zl}
}

func zapLevelOf(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func (b *slogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return b.zl.Core().Enabled(zapLevelOf(level))
}

func (b *slogBridge) Handle(_ context.Context, record slog.Record) error {
	ce := b.zl.Check(zapLevelOf(record.Level), record.Message)
	if ce == nil {
		return nil
	}

	fields := make([]zap.Field, 0, len(b.fields)+record.NumAttrs()+1)
	fields = append(fields, zap.Time("time", record.Time))
	fields = append(fields, b.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = append(fields, b.convert(attr))
		return true
	})
	ce.Write(fields...)
	return nil
}

// WithAttrs converts eagerly: attrs are qualified by the groups open at the
// time they are added, so the prefix must be captured now, not at Handle time.
func (b *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := b.clone()
	for _, attr := range attrs {
		next.fields = append(next.fields, next.convert(attr))
	}
	return next
}

func (b *slogBridge) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return b
	}
	next := b.clone()
	if next.prefix == "" {
		next.prefix = name
	} else {
		next.prefix += "." + name
	}
	return next
}

func (b *slogBridge) clone() *slogBridge {
	return &slogBridge{
		zl:     b.zl,
		prefix: b.prefix,
		fields: append([]zap.Field(nil), b.fields...),
	}
}

func (b *slogBridge) convert(attr slog.Attr) zap.Field {
	key := attr.Key
	if b.prefix != "" {
		key = b.prefix + "." + key
	}
	return slogValueField(key, attr.Value.Resolve())
}

func slogValueField(key string, value slog.Value) zap.Field {
	switch value.Kind() {
	case slog.KindString:
		return zap.String(key, value.String())
	case slog.KindBool:
		return zap.Bool(key, value.Bool())
	case slog.KindInt64:
		return zap.Int64(key, value.Int64())
	case slog.KindUint64:
		return zap.Uint64(key, value.Uint64())
	case slog.KindFloat64:
		return zap.Float64(key, value.Float64())
	case slog.KindDuration:
		return zap.Duration(key, value.Duration())
	case slog.KindTime:
		return zap.Time(key, value.Time())
	case slog.KindGroup:
		members := value.Group()
		nested := make(map[string]any, len(members))
		for _, member := range members {
			nested[member.Key] = member.Value.Resolve().Any()
		}
		return zap.Any(key, nested)
	default:
		return zap.Any(key, value.Any())
	}
}
