package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/taoyao-code/lightmanager-gateway/internal/device"
	"github.com/taoyao-code/lightmanager-gateway/internal/protocol/lightmanager"
	"github.com/taoyao-code/lightmanager-gateway/internal/render"
)

// MaxWait WAIT 上限（毫秒）
const MaxWait = 3600000

var fs20Keywords = map[string]byte{
	"ON": lightmanager.FS20On, "UP": lightmanager.FS20On, "OPEN": lightmanager.FS20On,
	"OFF": lightmanager.FS20Off, "DOWN": lightmanager.FS20Off, "CLOSE": lightmanager.FS20Off,
	"TOGGLE": lightmanager.FS20Toggle,
	"BRIGHT": lightmanager.FS20Bright, "+": lightmanager.FS20Bright,
	"DARK": lightmanager.FS20Dark, "-": lightmanager.FS20Dark,
}

var unirollKeywords = map[string]byte{
	"STOP": lightmanager.UnirollStop,
	"UP":   lightmanager.UnirollUp, "+": lightmanager.UnirollUp,
	"DOWN": lightmanager.UnirollDown, "-": lightmanager.UnirollDown,
}

var itKeywords = map[string]byte{
	"ON": lightmanager.ITOn, "UP": lightmanager.ITOn, "OPEN": lightmanager.ITOn,
	"OFF": lightmanager.ITOff, "DOWN": lightmanager.ITOff, "CLOSE": lightmanager.ITOff,
	"TOGGLE": lightmanager.ITToggle,
	"BRIGHT": lightmanager.ITBright, "+": lightmanager.ITBright,
	"DARK": lightmanager.ITDark, "-": lightmanager.ITDark,
}

func (in *Interpreter) dispatch(ctx context.Context, op Op, tokens []string, p *render.Printer, v verbosity) error {
	args := tokens[1:]
	switch op {
	case OpHelp:
		p.Pre(in.info.HelpText())
	case OpVersion:
		p.Line(in.info.VersionLine())
	case OpVerbose:
		v.SetVerbose(true)
	case OpQuiet:
		v.SetVerbose(false)
	case OpFS20:
		return in.fs20(ctx, args)
	case OpUniroll:
		return in.uniroll(ctx, args)
	case OpInterTechno:
		return in.interTechno(ctx, args)
	case OpScene:
		return in.scene(ctx, args)
	case OpGet:
		return in.get(ctx, args, p)
	case OpSet:
		return in.set(ctx, args)
	case OpWait:
		return in.wait(ctx, args)
	default:
		return invalid(OpUnknown, "unknown command '%s'", tokens[0])
	}
	return nil
}

// parseLevel 解析调光值：绝对值（0-max）或 N%（由 percent 换算）。
// numeric 为 false 表示不是数字。
func parseLevel(tok string, max int, percent func(int) int) (level int, numeric, ok bool) {
	pct := strings.HasSuffix(tok, "%")
	n, err := strconv.Atoi(strings.TrimSuffix(tok, "%"))
	if err != nil {
		return 0, false, false
	}
	if pct {
		if n < 0 || n > 100 {
			return 0, true, false
		}
		n = percent(n)
	}
	if n < 0 || n > max {
		return 0, true, false
	}
	return n, true, true
}

func (in *Interpreter) send(ctx context.Context, op Op, f device.Frame) error {
	if _, err := in.dev.Send(ctx, f, false); err != nil {
		return deviceError(op, err)
	}
	return nil
}

func (in *Interpreter) fs20(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return invalid(OpFS20, "missing <addr> parameter")
	}
	addr, err := lightmanager.ParseAddress(args[0])
	if err != nil {
		return invalid(OpFS20, "%s: wrong <addr> parameter", args[0])
	}
	if len(args) < 2 {
		return invalid(OpFS20, "missing <cmd> parameter")
	}
	cmd, ok := fs20Keywords[strings.ToUpper(args[1])]
	if !ok {
		level, numeric, valid := parseLevel(args[1], lightmanager.FS20MaxDim, lightmanager.FS20DimPercent)
		switch {
		case !numeric:
			return invalid(OpFS20, "unknown <cmd> parameter '%s'", args[1])
		case !valid:
			return invalid(OpFS20, "Wrong dim level (must be within 0-16 or 0%%-100%%)")
		}
		cmd = byte(level)
	}
	f, err := lightmanager.FS20Frame(in.housecode.Get(), addr, cmd)
	if err != nil {
		return deviceError(OpFS20, err)
	}
	return in.send(ctx, OpFS20, f)
}

func (in *Interpreter) uniroll(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return invalid(OpUniroll, "missing <addr> parameter")
	}
	addr, err := strconv.Atoi(args[0])
	if err != nil || addr < 1 || addr > 16 {
		return invalid(OpUniroll, "%s: wrong <addr> parameter", args[0])
	}
	if len(args) < 2 {
		return invalid(OpUniroll, "missing <cmd> parameter")
	}
	cmd, ok := unirollKeywords[strings.ToUpper(args[1])]
	if !ok {
		return invalid(OpUniroll, "wrong <cmd> parameter '%s'", args[1])
	}
	f, err := lightmanager.UnirollFrame(addr, cmd)
	if err != nil {
		return deviceError(OpUniroll, err)
	}
	return in.send(ctx, OpUniroll, f)
}

func (in *Interpreter) interTechno(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return invalid(OpInterTechno, "missing <code> parameter")
	}
	c := strings.ToUpper(args[0])
	if len(c) != 1 || c[0] < 'A' || c[0] > 'P' {
		return invalid(OpInterTechno, "<code> parameter out of range (must be within 'A' to 'P')")
	}
	code := c[0] - 'A'
	if len(args) < 2 {
		return invalid(OpInterTechno, "missing <addr> parameter")
	}
	addr, err := strconv.Atoi(args[1])
	if err != nil || addr < 1 || addr > 16 {
		return invalid(OpInterTechno, "%s: <addr> parameter out of range (must be within 1 to 16)", args[1])
	}
	rest := args[2:]
	learn := false
	if len(rest) > 0 {
		switch strings.ToUpper(rest[0]) {
		case "LEARN":
			learn, rest = true, rest[1:]
		case "DIP":
			rest = rest[1:]
		default:
			if len(rest) > 1 {
				return invalid(OpInterTechno, "Wrong <learn> parameter")
			}
		}
	}
	if len(rest) < 1 {
		return invalid(OpInterTechno, "missing <cmd> parameter")
	}
	var ic lightmanager.ITCommand
	if cmd, ok := itKeywords[strings.ToUpper(rest[0])]; ok {
		ic = lightmanager.ITSwitch(cmd)
	} else {
		level, numeric, valid := parseLevel(rest[0], lightmanager.ITMaxDim, lightmanager.ITDimPercent)
		switch {
		case !numeric:
			return invalid(OpInterTechno, "wrong <cmd> parameter '%s'", rest[0])
		case !valid:
			return invalid(OpInterTechno, "Wrong dim level (must be within 0-248 or 0%%-100%%)")
		}
		if ic, err = lightmanager.ITDim(level); err != nil {
			return deviceError(OpInterTechno, err)
		}
	}
	f, err := lightmanager.InterTechnoFrame(code, addr, ic, learn)
	if err != nil {
		return deviceError(OpInterTechno, err)
	}
	return in.send(ctx, OpInterTechno, f)
}

func (in *Interpreter) scene(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return invalid(OpScene, "missing parameter")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > 254 {
		return invalid(OpScene, "parameter <s> out of range (must be within range 1-254)")
	}
	f, err := lightmanager.SceneFrame(n)
	if err != nil {
		return deviceError(OpScene, err)
	}
	return in.send(ctx, OpScene, f)
}

func (in *Interpreter) get(ctx context.Context, args []string, p *render.Printer) error {
	if len(args) < 1 {
		return invalid(OpGet, "missing parameter")
	}
	switch strings.ToUpper(args[0]) {
	case "CLOCK", "TIME":
		t, err := in.dev.GetTime(ctx, in.loc)
		if err != nil {
			return deviceError(OpGet, err)
		}
		p.Line(t.Format(time.ANSIC))
	case "TEMP", "TEMPERATURE":
		c, err := in.dev.ReadTemperature(ctx)
		if err != nil {
			return deviceError(OpGet, err)
		}
		if p.HTML() {
			p.Line(fmt.Sprintf("%.1f °C", c))
		} else {
			p.Line(fmt.Sprintf("%.1f", c))
		}
	case "HOUSECODE":
		p.Line(in.housecode.String())
	default:
		return invalid(OpGet, "unknown parameter '%s'", args[0])
	}
	return nil
}

func (in *Interpreter) set(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return invalid(OpSet, "missing parameter")
	}
	switch strings.ToUpper(args[0]) {
	case "CLOCK", "TIME":
		return in.setClock(ctx, args[1:])
	case "HOUSECODE":
		if len(args) < 2 {
			return invalid(OpSet, "missing parameter")
		}
		hc, err := lightmanager.ParseHousecode(args[1])
		if err != nil {
			return invalid(OpSet, "wrong parameter '%s'", args[1])
		}
		in.housecode.Set(hc)
		return nil
	default:
		return invalid(OpSet, "unknown parameter '%s'", args[0])
	}
}

func (in *Interpreter) setClock(ctx context.Context, args []string) error {
	now := in.now().In(in.loc)
	if len(args) == 0 {
		if err := in.dev.SetTime(ctx, now.Truncate(time.Second)); err != nil {
			return deviceError(OpSet, err)
		}
		return nil
	}
	if IsAutoKeyword(args[0]) {
		if _, _, err := in.dev.AutoCorrectClock(ctx, in.loc); err != nil {
			return deviceError(OpSet, err)
		}
		return nil
	}
	t, err := ParseTimeLiteral(args[0], now, in.loc)
	if err != nil {
		return invalid(OpSet, "wrong parameter, use time format 'MMDDhhmm[[CC]YY][.ss]' or keyword 'AUTO'")
	}
	if err := in.dev.SetTime(ctx, t); err != nil {
		return deviceError(OpSet, err)
	}
	return nil
}

func (in *Interpreter) wait(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return invalid(OpWait, "missing parameter")
	}
	ms, err := strconv.Atoi(args[0])
	if err != nil || ms < 0 || ms > MaxWait {
		return invalid(OpWait, "parameter <ms> out of range (must be within range 0-%d)", MaxWait)
	}
	if ms == 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return &Error{Kind: KindProtocol, Op: OpWait, Msg: "interrupted", Err: ctx.Err()}
	case <-t.C:
		return nil
	}
}
