// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/secretsanta/internal/app/store/audit"
	"github.com/dalemusser/secretsanta/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Sink persists audit events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Config holds audit logging configuration. Each field takes one of
// "all" (sink + zap), "db" (sink only), "log" (zap only) or "off".
type Config struct {
	Auth       string
	Moderation string
	Draw       string
}

// Logger provides convenience methods for logging audit events.
type Logger struct {
	sink   Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil sink downgrades "all" and "db" to
// zap-only logging.
func New(sink Sink, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{sink: sink, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.GroupID != "" {
		fields = append(fields, zap.String("group_id", event.GroupID))
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryModeration:
		s = l.config.Moderation
	case audit.CategoryDraw:
		s = l.config.Draw
	}
	if s == "" {
		return "all"
	}
	return s
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers and services can run without one.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.sink != nil {
		if err := l.sink.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailed logs a rejected login. eventType is one of the
// audit.EventLoginFailed* constants.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, eventType string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: eventType,
		Details:       map[string]string{"email": email},
	})
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
	})
}

func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUserRegistered,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// --- Moderation Events ---

func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventGroupCreated,
		GroupID:   groupID,
		ActorID:   actorID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

func (l *Logger) ParticipantJoined(ctx context.Context, r *http.Request, userID, groupID, participantID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventParticipantJoined,
		GroupID:   groupID,
		UserID:    userID,
		ActorID:   userID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
		Details:   map[string]string{"participant_id": participantID},
	})
}

func (l *Logger) ParticipantApproved(ctx context.Context, r *http.Request, actorID, groupID, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventParticipantApproved,
		GroupID:   groupID,
		UserID:    userID,
		ActorID:   actorID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
	})
}

func (l *Logger) ParticipantRejected(ctx context.Context, r *http.Request, actorID, groupID, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventParticipantRejected,
		GroupID:   groupID,
		UserID:    userID,
		ActorID:   actorID,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
	})
}

// --- Draw Events ---

// DrawOutcome carries the counts recorded with a draw event.
type DrawOutcome struct {
	RunID         string
	Total         int
	SuccessCount  int
	FailureCount  int
	ResetFailures int
}

func (o DrawOutcome) details() map[string]string {
	return map[string]string{
		"run_id":         o.RunID,
		"total":          strconv.Itoa(o.Total),
		"success_count":  strconv.Itoa(o.SuccessCount),
		"failure_count":  strconv.Itoa(o.FailureCount),
		"reset_failures": strconv.Itoa(o.ResetFailures),
	}
}

// DrawCompleted logs a draw that finalized the group.
func (l *Logger) DrawCompleted(ctx context.Context, groupID string, o DrawOutcome) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryDraw,
		EventType: audit.EventDrawCompleted,
		GroupID:   groupID,
		Success:   true,
		Details:   o.details(),
	})
}

// DrawPartial logs a draw whose persist phase had failures.
func (l *Logger) DrawPartial(ctx context.Context, groupID string, o DrawOutcome) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryDraw,
		EventType:     audit.EventDrawPartial,
		GroupID:       groupID,
		Success:       false,
		FailureReason: "persist_failures",
		Details:       o.details(),
	})
}

// DrawFailed logs a draw that aborted before finalizing for any other reason.
func (l *Logger) DrawFailed(ctx context.Context, groupID, runID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryDraw,
		EventType:     audit.EventDrawFailed,
		GroupID:       groupID,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"run_id": runID},
	})
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}
