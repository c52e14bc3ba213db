package report

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/qs3c/premium_bot/internal/metrics"
	"github.com/qs3c/premium_bot/internal/pkg/queue"
)

const pushTimeout = 3 * time.Second

// Pusher 异常报告队列
type Pusher interface {
	Push(ctx context.Context, msg *queue.ReportMessage) error
}

// Incident 一次未预期错误的上下文
type Incident struct {
	Source    string // command / modal / reconcile / event
	Command   string
	UserID    string
	UserName  string
	GuildID   string
	ChannelID string
	Err       error
}

// Reporter 记录日志、上报 Sentry、推送到运维队列
type Reporter struct {
	queue  Pusher
	sentry bool
}

// NewReporter queue 可为 nil；sentryEnabled 需在 InitSentry 成功后才为 true
func NewReporter(q Pusher, sentryEnabled bool) *Reporter {
	return &Reporter{queue: q, sentry: sentryEnabled}
}

// InitSentry dsn 为空时不启用，返回是否启用
func InitSentry(dsn, environment string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Flush 进程退出前调用
func Flush() {
	sentry.Flush(2 * time.Second)
}

// Report 返回事故编号，展示给用户以便对照运维频道
func (r *Reporter) Report(ctx context.Context, inc Incident) string {
	id := uuid.NewString()
	stack := string(debug.Stack())
	errText := "unknown error"
	if inc.Err != nil {
		errText = inc.Err.Error()
	}

	log.Printf("Incident %s [%s/%s] user=%s(%s) guild=%s channel=%s: %s",
		id, inc.Source, inc.Command, inc.UserName, inc.UserID, inc.GuildID, inc.ChannelID, errText)
	metrics.IncidentsTotal.WithLabelValues(inc.Source).Inc()

	if r.sentry && inc.Err != nil {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("incident_id", id)
			scope.SetTag("source", inc.Source)
			if inc.Command != "" {
				scope.SetTag("command", inc.Command)
			}
			if inc.UserID != "" {
				scope.SetUser(sentry.User{ID: inc.UserID, Username: inc.UserName})
			}
			sentry.CaptureException(inc.Err)
		})
	}

	if r.queue != nil {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()

		err := r.queue.Push(pushCtx, &queue.ReportMessage{
			IncidentID: id,
			Source:     inc.Source,
			Command:    inc.Command,
			UserID:     inc.UserID,
			UserName:   inc.UserName,
			GuildID:    inc.GuildID,
			ChannelID:  inc.ChannelID,
			Error:      errText,
			Stack:      stack,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to queue incident %s: %v", id, err)
		}
	}

	return id
}
