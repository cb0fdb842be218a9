package clock

import (
	"sync"
	"time"
)

// Clock 时间来源，生产代码注入 Real()，测试注入 Fake()
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real 返回系统时钟
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

// FakeClock 可手动推进的时钟
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Fake 创建固定在 initial 的时钟
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{now: initial}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set 将时钟设置到 t
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance 推进 d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
