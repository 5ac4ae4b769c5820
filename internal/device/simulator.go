package device

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile 模拟控制器行为配置（yaml）
type Profile struct {
	// Temperature 传感器温度，精度 0.5°C
	Temperature float64 `yaml:"temperature"`
	// SensorMissing 为 true 时温度回复不带有效标记
	SensorMissing bool `yaml:"sensorMissing"`
	// Latency 每次传输的模拟耗时
	Latency time.Duration `yaml:"latency"`
	// FailFirst 前 N 次传输失败
	FailFirst int `yaml:"failFirst"`
	// FailEvery 每第 N 次传输失败，0 关闭
	FailEvery int `yaml:"failEvery"`
	// HourSkew 设置时钟后固件额外偏移的小时数（模拟夏令时缺陷）
	HourSkew int `yaml:"hourSkew"`
}

// DefaultProfile 默认模拟配置
func DefaultProfile() Profile {
	return Profile{Temperature: 21.5}
}

// LoadProfile 从 yaml 文件加载模拟配置
func LoadProfile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read simulator profile: %w", err)
	}
	p := DefaultProfile()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("unmarshal simulator profile: %w", err)
	}
	return p, nil
}

// ErrInjected 模拟注入的传输失败
var ErrInjected = errors.New("simulated transfer failure")

// Simulator 内存中的 Light Manager 控制器，用于开发与测试
type Simulator struct {
	mu      sync.Mutex
	profile Profile
	now     func() time.Time

	transfers int
	pending   *Frame
	history   []Frame
	closed    bool

	// 设备时钟：clock 为设置时刻的设备民用时间（以 UTC 字段保存），setAt 为主机时间
	clock time.Time
	setAt time.Time
}

// NewSimulator 创建模拟控制器，时钟初始为主机本地时间
func NewSimulator(p Profile) *Simulator {
	s := &Simulator{profile: p, now: time.Now}
	s.resetClock()
	return s
}

// SetNow 替换时间源（测试使用）
func (s *Simulator) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.resetClock()
}

func (s *Simulator) resetClock() {
	n := s.now()
	s.clock = civil(n)
	s.setAt = n
}

// civil 以 UTC 字段保存本地民用时间，避免时区换算
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Transfer 实现 Channel
func (s *Simulator) Transfer(ctx context.Context, ep Endpoint, buf *Frame, timeout time.Duration) error {
	if s.profile.Latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.profile.Latency):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.transfers++
	if s.transfers <= s.profile.FailFirst ||
		(s.profile.FailEvery > 0 && s.transfers%s.profile.FailEvery == 0) {
		return ErrInjected
	}

	if ep == EndpointIn {
		if s.pending == nil {
			return ErrTimeout
		}
		*buf = *s.pending
		s.pending = nil
		return nil
	}

	s.history = append(s.history, *buf)
	if len(s.history) > 256 {
		s.history = s.history[len(s.history)-256:]
	}
	s.handle(*buf)
	return nil
}

func (s *Simulator) handle(f Frame) {
	switch f[0] {
	case 0x08:
		t, ok := decodeBCDTime(f)
		if !ok {
			return
		}
		s.clock = t.Add(time.Duration(s.profile.HourSkew) * time.Hour)
		s.setAt = s.now()
	case 0x09:
		t := s.clock.Add(s.now().Sub(s.setAt))
		wday := byte(t.Weekday())
		if wday == 0 {
			wday = 7
		}
		reply := Frame{
			byte(t.Second()), byte(t.Minute()), byte(t.Hour()),
			byte(t.Day()), byte(t.Month()), wday, byte(t.Year() - 2000), 0,
		}
		s.pending = &reply
	case 0x0c:
		reply := Frame{0xfd, byte(math.Round(s.profile.Temperature * 2))}
		if s.profile.SensorMissing {
			reply[0] = 0x00
		}
		s.pending = &reply
	}
}

func decodeBCDTime(f Frame) (time.Time, bool) {
	var v [8]int
	for i := 1; i < FrameSize; i++ {
		hi, lo := int(f[i]>>4), int(f[i]&0x0f)
		if hi > 9 || lo > 9 {
			return time.Time{}, false
		}
		v[i] = hi*10 + lo
	}
	return time.Date(2000+v[7], time.Month(v[5]), v[4], v[3], v[2], v[1], 0, time.UTC), true
}

// Frames 返回已写出的帧历史
func (s *Simulator) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.history))
	copy(out, s.history)
	return out
}

// Transfers 返回累计传输次数（含失败）
func (s *Simulator) Transfers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfers
}

// Close 实现 Channel
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
