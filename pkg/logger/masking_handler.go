package logger

import (
	"context"
	"log/slog"
	"strings"
)

const maskedValue = "***"

// secretKeys are replaced entirely.
var secretKeys = map[string]struct{}{
	"token":         {},
	"api_key":       {},
	"password":      {},
	"secret":        {},
	"authorization": {},
}

// personalKeys keep their last four characters so support can still match a log line
// to a deal.
var personalKeys = map[string]struct{}{
	"address":   {},
	"requisite": {},
	"card":      {},
	"email":     {},
}

// MaskingHandler redacts credentials and payment details before records reach the
// wrapped handler. Attributes bound with WithAttrs and nested groups are masked too.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, maskAttr(a))
	}
	return &MaskingHandler{next: h.next.WithAttrs(masked)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func maskAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		out := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			out = append(out, maskAttr(ga))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if _, ok := secretKeys[key]; ok {
		return slog.String(a.Key, maskedValue)
	}
	if _, ok := personalKeys[key]; ok {
		return slog.String(a.Key, maskTail(a.Value.String()))
	}
	return a
}

// maskTail keeps the last four runes of s.
func maskTail(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return maskedValue
	}
	return maskedValue + string(r[len(r)-4:])
}
