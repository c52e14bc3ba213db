package testutil

import (
	"context"
	"sync"

	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
)

// FakeGuild 内存中的服务器：记录角色变更和私信，可注入错误
type FakeGuild struct {
	mu sync.Mutex

	members map[string]bool
	roles   map[string]bool

	Added   []string
	Removed []string
	DMs     map[string][]string

	MemberErr error
	AddErr    error
	RemoveErr error
	DMErr     error
}

func NewFakeGuild(members ...string) *FakeGuild {
	g := &FakeGuild{
		members: make(map[string]bool),
		roles:   make(map[string]bool),
		DMs:     make(map[string][]string),
	}
	for _, id := range members {
		g.members[id] = true
	}
	return g
}

// Join 用户加入服务器
func (g *FakeGuild) Join(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[userID] = true
}

// Leave 用户离开服务器
func (g *FakeGuild) Leave(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, userID)
	delete(g.roles, userID)
}

// HasRole 用户当前是否持有高级会员角色
func (g *FakeGuild) HasRole(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roles[userID]
}

// GiveRole 直接设置角色（模拟之前的授予）
func (g *FakeGuild) GiveRole(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roles[userID] = true
}

func (g *FakeGuild) IsMember(_ context.Context, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.MemberErr != nil {
		return false, g.MemberErr
	}
	return g.members[userID], nil
}

func (g *FakeGuild) AddPremiumRole(_ context.Context, userID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.AddErr != nil {
		return g.AddErr
	}
	g.Added = append(g.Added, userID)
	g.roles[userID] = true
	return nil
}

func (g *FakeGuild) RemovePremiumRole(_ context.Context, userID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RemoveErr != nil {
		return g.RemoveErr
	}
	g.Removed = append(g.Removed, userID)
	delete(g.roles, userID)
	return nil
}

func (g *FakeGuild) SendDirectMessage(_ context.Context, userID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DMErr != nil {
		return g.DMErr
	}
	g.DMs[userID] = append(g.DMs[userID], content)
	return nil
}

// FakePublisher 记录发布过的事件
type FakePublisher struct {
	mu     sync.Mutex
	Events []pubsub.Event
	Err    error
}

func (p *FakePublisher) Publish(_ context.Context, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, *event)
	return nil
}

// Types 按顺序返回事件类型
func (p *FakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		types = append(types, e.Type)
	}
	return types
}
