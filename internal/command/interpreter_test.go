package command

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/lightmanager-gateway/internal/device"
	"github.com/taoyao-code/lightmanager-gateway/internal/events"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/protocol/lightmanager"
)

var fixedNow = time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)

type fixture struct {
	sim  *device.Simulator
	in   *Interpreter
	out  *bytes.Buffer
	sess *BasicSession
}

func newFixture(t *testing.T, p device.Profile, opts ...Option) *fixture {
	t.Helper()
	sim := device.NewSimulator(p)
	sim.SetNow(func() time.Time { return fixedNow })
	client := lightmanager.NewClient(sim,
		lightmanager.WithRetryPolicy(lightmanager.RetryPolicy{MaxAttempts: 5, Timeout: 10 * time.Millisecond}),
		lightmanager.WithClock(func() time.Time { return fixedNow }))
	opts = append([]Option{WithLocation(time.UTC), WithClock(func() time.Time { return fixedNow })}, opts...)
	out := &bytes.Buffer{}
	return &fixture{
		sim:  sim,
		in:   New(client, NewHousecode(0), opts...),
		out:  out,
		sess: NewBasicSession(out, SessionInfo{ID: "s1", RemoteAddr: "127.0.0.1:5000", Source: events.SourceTCP}),
	}
}

func (f *fixture) exec(t *testing.T, line string) Outcome {
	t.Helper()
	f.out.Reset()
	return f.in.Execute(context.Background(), line, f.sess)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestExecute_FS20(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	out := f.exec(t, "FS20 1111 ON")
	assert.Equal(t, Continue, out.Result)
	assert.Equal(t, "FS20 1111 ON: OK\r\n", f.out.String())
	require.Len(t, f.sim.Frames(), 1)
	assert.Equal(t, device.Frame{0x01, 0x00, 0x00, 0x00, 0x11, 0x00, 0x03, 0x00}, f.sim.Frames()[0])

	t.Run("百分比调光", func(t *testing.T) {
		f.exec(t, "fs20 1111 25%")
		frames := f.sim.Frames()
		assert.Equal(t, byte(4), frames[len(frames)-1][4])
	})

	t.Run("调光越界", func(t *testing.T) {
		n := len(f.sim.Frames())
		f.exec(t, "FS20 1111 17")
		assert.Equal(t, "FS20 1111 17: ERROR - Wrong dim level (must be within 0-16 or 0%-100%)\r\n", f.out.String())
		assert.Len(t, f.sim.Frames(), n)
	})

	t.Run("未知命令参数", func(t *testing.T) {
		f.exec(t, "FS20 1111 BLINK")
		assert.Contains(t, f.out.String(), "unknown <cmd> parameter 'BLINK'")
	})

	t.Run("缺少参数", func(t *testing.T) {
		f.exec(t, "FS20")
		assert.Contains(t, f.out.String(), "missing <addr> parameter")
		f.exec(t, "FS20 1111")
		assert.Contains(t, f.out.String(), "missing <cmd> parameter")
	})
}

func TestExecute_SubCommandIndependence(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	out := f.exec(t, "FS20 9999 ON; SCENE 999")
	require.Len(t, out.Statuses, 2)
	assert.Equal(t, KindValidation, KindOf(out.Statuses[0].Err))
	assert.Equal(t, KindValidation, KindOf(out.Statuses[1].Err))
	assert.Equal(t,
		"FS20 9999 ON: ERROR - 9999: wrong <addr> parameter\r\n"+
			"SCENE 999: ERROR - parameter <s> out of range (must be within range 1-254)\r\n",
		f.out.String())
	assert.Zero(t, f.sim.Transfers(), "校验失败不应访问设备")

	f.exec(t, "SCENE 0, SCENE 254 & SCENE 255")
	assert.Equal(t,
		"SCENE 0: ERROR - parameter <s> out of range (must be within range 1-254)\r\n"+
			"SCENE 254: OK\r\n"+
			"SCENE 255: ERROR - parameter <s> out of range (must be within range 1-254)\r\n",
		f.out.String())
	require.Len(t, f.sim.Frames(), 1)
	assert.Equal(t, device.Frame{0x0f, 0xfe}, f.sim.Frames()[0])
}

func TestExecute_DeviceError(t *testing.T) {
	f := newFixture(t, device.Profile{FailFirst: 5})

	out := f.exec(t, "SCENE 1; SCENE 2")
	require.Len(t, out.Statuses, 2)
	assert.Equal(t, KindDeviceIO, KindOf(out.Statuses[0].Err))
	assert.NoError(t, out.Statuses[1].Err)
	assert.Equal(t, "SCENE 1: ERROR - USB communication error\r\nSCENE 2: OK\r\n", f.out.String())
}

func TestExecute_QuietMode(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "QUIET; FS20 1111 ON; SCENE 3")
	assert.Equal(t, "OK\r\n", f.out.String())
	assert.False(t, f.sess.Verbose(), "QUIET 对后续行持续生效")

	t.Run("失败仍输出错误行且不输出OK", func(t *testing.T) {
		f.exec(t, "SCENE 999; SCENE 3")
		assert.Equal(t, "SCENE 999: ERROR - parameter <s> out of range (must be within range 1-254)\r\n", f.out.String())
	})

	t.Run("VERBOSE恢复状态行", func(t *testing.T) {
		f.exec(t, "VERBOSE; SCENE 3")
		assert.Equal(t, "VERBOSE: OK\r\nSCENE 3: OK\r\n", f.out.String())
		assert.True(t, f.sess.Verbose())
	})
}

func TestExecute_QuitAndExit(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	out := f.exec(t, "SCENE 1; QUIT; SCENE 2")
	assert.Equal(t, Disconnect, out.Result)
	assert.False(t, out.Exit)
	assert.Len(t, f.sim.Frames(), 1)
	assert.Equal(t, "SCENE 1: OK\r\n", f.out.String())

	out = f.exec(t, "e")
	assert.Equal(t, DisconnectServer, out.Result)
	assert.True(t, out.Exit)
	assert.Empty(t, f.out.String())
}

func TestExecute_Housecode(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "GET HOUSECODE")
	assert.Equal(t, "11111111\r\nGET HOUSECODE: OK\r\n", f.out.String())

	for i := 0; i < 2; i++ {
		f.exec(t, "SET HOUSECODE 12341234; GET HOUSECODE")
		assert.Equal(t, "SET HOUSECODE 12341234: OK\r\n12341234\r\nGET HOUSECODE: OK\r\n", f.out.String())
	}

	f.exec(t, "FS20 1111 ON")
	frames := f.sim.Frames()
	last := frames[len(frames)-1]
	assert.Equal(t, byte(0x1b), last[1])
	assert.Equal(t, byte(0x1b), last[2])

	f.exec(t, "SET HOUSECODE 5555")
	assert.Contains(t, f.out.String(), "wrong parameter '5555'")
	assert.Equal(t, "12341234", f.in.Housecode().String())
}

func TestExecute_InterTechno(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "IT C 3 LEARN 50%")
	require.Len(t, f.sim.Frames(), 1)
	assert.Equal(t, device.Frame{0x05, 0x22, 0x78, 0x05, 0x01}, f.sim.Frames()[0])

	f.exec(t, "INTERTECHNO a 1 on")
	assert.Equal(t, device.Frame{0x05, 0x00, 0x01, 0x06, 0x00}, f.sim.Frames()[1])

	f.exec(t, "IT P 16 DIP OFF")
	assert.Equal(t, device.Frame{0x05, 0xff, 0x00, 0x06, 0x00}, f.sim.Frames()[2])

	cases := []struct {
		line string
		msg  string
	}{
		{"IT Q 1 ON", "<code> parameter out of range (must be within 'A' to 'P')"},
		{"IT A 17 ON", "17: <addr> parameter out of range (must be within 1 to 16)"},
		{"IT A 1 FOO ON", "Wrong <learn> parameter"},
		{"IT A 1 249", "Wrong dim level (must be within 0-248 or 0%-100%)"},
		{"IT A 1 LEARN", "missing <cmd> parameter"},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			f.exec(t, tc.line)
			assert.Equal(t, tc.line+": ERROR - "+tc.msg+"\r\n", f.out.String())
		})
	}
	assert.Len(t, f.sim.Frames(), 3)
}

func TestExecute_Uniroll(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "UNI 16 -; UNIROLL 1 STOP")
	require.Len(t, f.sim.Frames(), 2)
	assert.Equal(t, device.Frame{0x15, 0x0f, 0x74, 0x04}, f.sim.Frames()[0])
	assert.Equal(t, device.Frame{0x15, 0x00, 0x74, 0x02}, f.sim.Frames()[1])

	f.exec(t, "UNI 17 UP")
	assert.Contains(t, f.out.String(), "17: wrong <addr> parameter")
	f.exec(t, "UNI 1 LEFT")
	assert.Contains(t, f.out.String(), "wrong <cmd> parameter 'LEFT'")
}

func TestExecute_GetClockAndTemperature(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "GET CLOCK")
	assert.Equal(t, "Tue Mar  5 10:20:30 2024\r\nGET CLOCK: OK\r\n", f.out.String())

	f.exec(t, "GET TEMP")
	assert.Equal(t, "21.5\r\nGET TEMP: OK\r\n", f.out.String())

	f.exec(t, "GET WEATHER; GET")
	assert.Equal(t, "GET WEATHER: ERROR - unknown parameter 'WEATHER'\r\nGET: ERROR - missing parameter\r\n", f.out.String())

	t.Run("无温度传感器", func(t *testing.T) {
		g := newFixture(t, device.Profile{SensorMissing: true})
		out := g.exec(t, "GET TEMPERATURE")
		assert.Equal(t, "GET TEMPERATURE: ERROR - no temperature reading available\r\n", g.out.String())
		assert.ErrorIs(t, out.Statuses[0].Err, lightmanager.ErrNoReading)
	})
}

func TestExecute_SetClock(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "SET CLOCK 030510202024.15")
	assert.Equal(t, "SET CLOCK 030510202024.15: OK\r\n", f.out.String())
	want, err := lightmanager.TimeSetFrames(time.Date(2024, 3, 5, 10, 20, 15, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, want[:], f.sim.Frames())

	n := len(f.sim.Frames())
	f.exec(t, "SET TIME 1399")
	assert.Contains(t, f.out.String(), "wrong parameter, use time format 'MMDDhhmm[[CC]YY][.ss]' or keyword 'AUTO'")
	assert.Len(t, f.sim.Frames(), n)

	t.Run("AUTO", func(t *testing.T) {
		g := newFixture(t, device.Profile{HourSkew: 1})
		g.exec(t, "SET CLOCK AUTO")
		assert.Equal(t, "SET CLOCK AUTO: OK\r\n", g.out.String())
		frames := g.sim.Frames()
		require.Len(t, frames, 7, "整点设置 + 读取 + 校正设置")
		final, err := lightmanager.TimeSetFrames(fixedNow.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, final[0], frames[4])
	})
}

func TestExecute_Wait(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "WAIT 1")
	assert.Equal(t, "WAIT 1: OK\r\n", f.out.String())

	f.exec(t, "WAIT 3600001; WAIT")
	assert.Equal(t,
		"WAIT 3600001: ERROR - parameter <ms> out of range (must be within range 0-3600000)\r\n"+
			"WAIT: ERROR - missing parameter\r\n",
		f.out.String())

	t.Run("上下文取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		out := f.in.Execute(ctx, "WAIT 60000", f.sess)
		assert.Less(t, time.Since(start), 5*time.Second)
		require.Len(t, out.Statuses, 1)
		assert.ErrorIs(t, out.Statuses[0].Err, context.Canceled)
	})
}

func TestExecute_SystemCommands(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	f.exec(t, "VERSION")
	assert.Equal(t, "Linux Lightmanager v2.3 (build 0028)\r\nVERSION: OK\r\n", f.out.String())

	f.exec(t, "?")
	assert.Contains(t, f.out.String(), "Linux Lightmanager v2.3 (build 0028) help")
	assert.Contains(t, f.out.String(), "SCENE scn")
	assert.True(t, strings.HasSuffix(f.out.String(), "?: OK\r\n"))

	f.exec(t, "FOO 1")
	assert.Equal(t, "FOO 1: ERROR - unknown command 'FOO'\r\n", f.out.String())

	out := f.exec(t, " ;; , ")
	assert.Empty(t, out.Statuses)
	assert.Empty(t, f.out.String())
}

func TestExecute_HTTP(t *testing.T) {
	f := newFixture(t, device.DefaultProfile())

	out := f.exec(t, "GET /cmd=SCENE%201&GET+TEMP HTTP/1.1")
	assert.Equal(t, HandledAsHTTP, out.Result)
	assert.Equal(t, 200, out.HTTPStatus)
	body := f.out.String()
	assert.True(t, strings.HasPrefix(body, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, body, "SCENE 1: OK<br />\r\n")
	assert.Contains(t, body, "21.5 °C<br />\r\n")
	require.Len(t, out.Statuses, 2)
	assert.Len(t, f.sim.Frames(), 2)

	t.Run("输出模式不影响会话", func(t *testing.T) {
		f.exec(t, "GET /cmd=QUIET HTTP/1.0")
		assert.True(t, f.sess.Verbose())
	})

	t.Run("400", func(t *testing.T) {
		out := f.exec(t, "GET /index.html HTTP/1.1")
		assert.Equal(t, 400, out.HTTPStatus)
		assert.Contains(t, f.out.String(), "<h1>Error 400 - Bad Request</h1>")
		assert.Contains(t, f.out.String(), "SCENE scn")
	})

	t.Run("EXIT", func(t *testing.T) {
		out := f.exec(t, "GET /cmd=EXIT HTTP/1.1")
		assert.Equal(t, HandledAsHTTP, out.Result)
		assert.True(t, out.Exit)
	})
}

func TestExecute_EventsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAppMetrics(reg)
	em := &recordingEmitter{}
	f := newFixture(t, device.DefaultProfile(), WithMetrics(m), WithEmitter(em))

	f.exec(t, "SCENE 1; SCENE 0")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandTotal.WithLabelValues("SCENE", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandTotal.WithLabelValues("SCENE", "error")))
	require.Len(t, em.events, 2)
	assert.True(t, em.events[0].OK)
	assert.False(t, em.events[1].OK)
	assert.Equal(t, "s1", em.events[0].SessionID)
	assert.Equal(t, events.SourceTCP, em.events[0].Source)
	assert.Equal(t, "SCENE 0", em.events[1].Command)
}
