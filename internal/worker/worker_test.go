package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
	"github.com/qs3c/premium_bot/internal/pkg/queue"
)

type sentMessage struct {
	channelID string
	content   string
	files     map[string]string
	mentions  *discordgo.MessageAllowedMentions
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	msg := sentMessage{channelID: channelID, content: data.Content, files: map[string]string{}, mentions: data.AllowedMentions}
	for _, f := range data.Files {
		body, _ := io.ReadAll(f.Reader)
		msg.files[f.Name] = string(body)
	}
	s.sent = append(s.sent, msg)
	return &discordgo.Message{ID: "1", ChannelID: channelID}, nil
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func TestReportProcessor_ShortReportInline(t *testing.T) {
	sender := &fakeSender{}
	p := NewReportProcessor(sender, "ops")

	err := p.Process(context.Background(), &queue.ReportMessage{
		IncidentID: "inc-1",
		Source:     "modal",
		Command:    "subscribe_modal",
		UserID:     "111111111111111111",
		UserName:   "alice",
		Error:      "failed to check membership: 502",
		Stack:      "goroutine 1 [running]",
		OccurredAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ops", sent[0].channelID)
	assert.Contains(t, sent[0].content, "**Incident `inc-1`** (modal) `subscribe_modal`")
	assert.Contains(t, sent[0].content, "alice (<@111111111111111111>)")
	assert.Contains(t, sent[0].content, "failed to check membership: 502")
	assert.Contains(t, sent[0].content, "goroutine 1 [running]")
	assert.Contains(t, sent[0].content, "<t:1773144000:F>")
	assert.Empty(t, sent[0].files)
}

func TestReportProcessor_LongReportAsAttachment(t *testing.T) {
	sender := &fakeSender{}
	p := NewReportProcessor(sender, "ops")

	stack := strings.Repeat("frame\n", 400)
	err := p.Process(context.Background(), &queue.ReportMessage{
		IncidentID: "inc-2",
		Source:     "reconcile",
		Error:      "boom",
		Stack:      stack,
	})
	require.NoError(t, err)

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.NotContains(t, sent[0].content, "frame")
	assert.Less(t, len(sent[0].content), maxMessageLength)
	require.Contains(t, sent[0].files, "traceback-inc-2.txt")
	assert.Equal(t, "boom\n\n"+stack, sent[0].files["traceback-inc-2.txt"])
}

func TestReportProcessor_Errors(t *testing.T) {
	err := NewReportProcessor(&fakeSender{}, "").Process(context.Background(), &queue.ReportMessage{})
	assert.ErrorIs(t, err, ErrNoChannel)

	down := errors.New("discord 503")
	err = NewReportProcessor(&fakeSender{err: down}, "ops").Process(context.Background(), &queue.ReportMessage{IncidentID: "inc-3"})
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "inc-3")
}

func TestEventNotifier_Notify(t *testing.T) {
	sender := &fakeSender{}
	n := NewEventNotifier(sender, "staff")
	assert.True(t, n.Enabled())

	expireAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	err := n.Notify(context.Background(), &pubsub.Event{
		Type:          pubsub.EventRegistered,
		TransactionID: "TX001",
		UserID:        "111111111111111111",
		ActorID:       "222222222222222222",
		ExpireAt:      &expireAt,
	})
	require.NoError(t, err)

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "staff", sent[0].channelID)
	assert.Equal(t, "**Transaction enregistrée** : `TX001` · utilisateur <@111111111111111111> · "+
		"par <@222222222222222222> · expire <t:1775001600:f>", sent[0].content)
	require.NotNil(t, sent[0].mentions)
	assert.Empty(t, sent[0].mentions.Parse)
}

func TestEventNotifier_Disabled(t *testing.T) {
	sender := &fakeSender{}
	n := NewEventNotifier(sender, "")

	assert.False(t, n.Enabled())
	require.NoError(t, n.Notify(context.Background(), &pubsub.Event{Type: pubsub.EventPending}))
	assert.Empty(t, sender.messages())
}

func TestFormatEvent_UnknownType(t *testing.T) {
	assert.Equal(t, "**custom.event** : `TX9`", formatEvent(&pubsub.Event{Type: "custom.event", TransactionID: "TX9"}))
	assert.Equal(t, "**note** : `TX9`", formatEvent(&pubsub.Event{Type: "custom.event", TransactionID: "TX9", Message: "note"}))
}

type recordingHandler struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (h *recordingHandler) Process(_ context.Context, msg *queue.ReportMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, msg.IncidentID)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ids)
}

func TestRunPool_DrainsQueueUntilCancelled(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := queue.NewQueue(client, "report_queue")
	ctx, cancel := context.WithCancel(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, &queue.ReportMessage{IncidentID: id}))
	}

	// 处理失败不影响后续报告
	h := &recordingHandler{err: errors.New("discord down")}
	done := make(chan struct{})
	go func() {
		RunPool(ctx, q, h, 2)
		close(done)
	}()

	assert.Eventually(t, func() bool { return h.count() == 3 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(popTimeout + 2*time.Second):
		t.Fatal("pool did not stop after cancel")
	}

	length, err := q.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)
}
