package lightmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/taoyao-code/lightmanager-gateway/internal/device"
)

// 操作码（帧 byte0）
const (
	OpFS20        byte = 0x01
	OpInterTechno byte = 0x05
	OpCommit      byte = 0x06
	OpSetClock    byte = 0x08
	OpGetClock    byte = 0x09
	OpTemperature byte = 0x0c
	OpScene       byte = 0x0f
	OpUniroll     byte = 0x15
)

// FS20 命令字节，0x00-0x10 同时表示绝对调光级别
const (
	FS20Off    byte = 0x00
	FS20On     byte = 0x11
	FS20Toggle byte = 0x12
	FS20Bright byte = 0x13
	FS20Dark   byte = 0x14

	FS20MaxDim = 16
)

// Uniroll 命令字节
const (
	UnirollUp   byte = 0x01
	UnirollStop byte = 0x02
	UnirollDown byte = 0x04
)

// InterTechno 命令字节
const (
	ITOff    byte = 0x00
	ITOn     byte = 0x01
	ITToggle byte = 0x02
	ITBright byte = 0x05
	ITDark   byte = 0x06

	itMainSwitch byte = 0x06
	itMainDim    byte = 0x05

	ITMaxDim = 248
)

// TemperatureValid 温度回复有效标记
const TemperatureValid byte = 0xfd

var (
	// ErrOutOfRange 参数超出帧允许范围
	ErrOutOfRange = errors.New("parameter out of range")
	// ErrNoReading 设备未返回有效温度
	ErrNoReading = errors.New("no temperature reading")
	// ErrBadReply 设备回复无法解码
	ErrBadReply = errors.New("malformed device reply")
)

// FS20Frame 01 hcH hcL addr cmd 00 03 00
func FS20Frame(housecode uint16, addr uint8, cmd byte) (device.Frame, error) {
	if cmd > FS20Dark {
		return device.Frame{}, fmt.Errorf("%w: fs20 cmd 0x%02x", ErrOutOfRange, cmd)
	}
	return device.Frame{OpFS20, byte(housecode >> 8), byte(housecode), addr, cmd, 0x00, 0x03, 0x00}, nil
}

// FS20DimPercent 百分比转 FS20 调光级别（向下取整）
func FS20DimPercent(pct int) int { return FS20MaxDim * pct / 100 }

// UnirollFrame 15 addr-1 74 cmd，addr 1-16
func UnirollFrame(addr int, cmd byte) (device.Frame, error) {
	if addr < 1 || addr > 16 {
		return device.Frame{}, fmt.Errorf("%w: uniroll addr %d", ErrOutOfRange, addr)
	}
	switch cmd {
	case UnirollUp, UnirollStop, UnirollDown:
	default:
		return device.Frame{}, fmt.Errorf("%w: uniroll cmd 0x%02x", ErrOutOfRange, cmd)
	}
	return device.Frame{OpUniroll, byte(addr - 1), 0x74, cmd}, nil
}

// ITCommand InterTechno 命令：Cmd 为命令或调光值，Main 区分开关/调光
type ITCommand struct {
	Cmd  byte
	Main byte
}

// ITSwitch 开关类命令
func ITSwitch(cmd byte) ITCommand { return ITCommand{Cmd: cmd, Main: itMainSwitch} }

// ITDim 调光命令，level 0-248。
// 发送值量化为 16 级台阶的中点 (n/16)*16+8，上限 248，0 保持为 0。
func ITDim(level int) (ITCommand, error) {
	if level < 0 || level > ITMaxDim {
		return ITCommand{}, fmt.Errorf("%w: intertechno dim %d", ErrOutOfRange, level)
	}
	if level != 0 {
		level = level/16*16 + 8
	}
	if level > ITMaxDim {
		level = ITMaxDim
	}
	return ITCommand{Cmd: byte(level), Main: itMainDim}, nil
}

// ITDimPercent 百分比转 InterTechno 调光值
func ITDimPercent(pct int) int { return ITMaxDim * pct / 100 }

// InterTechnoFrame 05 code<<4|addr-1 cmd main learn；code 0-15 (A-P)，addr 1-16
func InterTechnoFrame(code byte, addr int, c ITCommand, learn bool) (device.Frame, error) {
	if code > 15 {
		return device.Frame{}, fmt.Errorf("%w: intertechno code %d", ErrOutOfRange, code)
	}
	if addr < 1 || addr > 16 {
		return device.Frame{}, fmt.Errorf("%w: intertechno addr %d", ErrOutOfRange, addr)
	}
	var l byte
	if learn {
		l = 0x01
	}
	return device.Frame{OpInterTechno, code<<4 | byte(addr-1), c.Cmd, c.Main, l}, nil
}

// SceneFrame 0f n，n 1-254
func SceneFrame(n int) (device.Frame, error) {
	if n < 1 || n > 254 {
		return device.Frame{}, fmt.Errorf("%w: scene %d", ErrOutOfRange, n)
	}
	return device.Frame{OpScene, byte(n)}, nil
}

// TimeSetFrames 设置时钟的三帧序列：BCD 时间帧、校正帧、提交帧
func TimeSetFrames(t time.Time) ([3]device.Frame, error) {
	if t.Year() < 2000 || t.Year() > 2099 {
		return [3]device.Frame{}, fmt.Errorf("%w: year %d", ErrOutOfRange, t.Year())
	}
	wday := int(t.Weekday())
	if wday == 0 {
		wday = 7
	}
	return [3]device.Frame{
		{OpSetClock, toBCD(t.Second()), toBCD(t.Minute()), toBCD(t.Hour()),
			toBCD(t.Day()), toBCD(int(t.Month())), toBCD(wday), toBCD(t.Year() - 2000)},
		{0x00, 0x00, 0x0d},
		{OpCommit, 0x02, 0x01, 0x02},
	}, nil
}

// ClockRequest 读取时钟请求帧
func ClockRequest() device.Frame { return device.Frame{OpGetClock} }

// DecodeClock 解码时钟回复 ss mm hh dd MM ww yy（二进制，非 BCD）
func DecodeClock(f device.Frame, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	sec, min, hour, day, mon, year := int(f[0]), int(f[1]), int(f[2]), int(f[3]), int(f[4]), int(f[6])
	if sec > 59 || min > 59 || hour > 23 || day < 1 || day > 31 || mon < 1 || mon > 12 {
		return time.Time{}, fmt.Errorf("%w: clock %s", ErrBadReply, f)
	}
	return time.Date(2000+year, time.Month(mon), day, hour, min, sec, 0, loc), nil
}

// TemperatureRequest 读取温度请求帧
func TemperatureRequest() device.Frame { return device.Frame{OpTemperature} }

// DecodeTemperature 解码温度回复，byte0 为 0xfd 时 byte1/2 为摄氏度
func DecodeTemperature(f device.Frame) (float64, error) {
	if f[0] != TemperatureValid {
		return 0, ErrNoReading
	}
	return float64(f[1]) / 2, nil
}
