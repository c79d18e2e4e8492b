package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	FieldProfileID  = "profile_id"
	FieldKind       = "kind"
	FieldCollection = "collection"
	FieldStrategy   = "strategy"
	FieldModel      = "embed_model"
)

// ProfileFields returns the standard fields identifying a profile in log entries.
func ProfileFields(id uuid.UUID, kind string) []zap.Field {
	fields := []zap.Field{zap.String(FieldProfileID, id.String())}
	if kind != "" {
		fields = append(fields, zap.String(FieldKind, kind))
	}
	return fields
}

// WithModel attaches the embedding model name to l.
func WithModel(l *zap.Logger, model string) *zap.Logger {
	l = OrNop(l)
	if model == "" {
		return l
	}
	return l.With(zap.String(FieldModel, model))
}
