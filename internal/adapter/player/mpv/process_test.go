package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/logger"
	"github.com/flightmansam/feishin/internal/ports"
	"github.com/flightmansam/feishin/internal/testutil"
)

// fakeMpv serves the IPC socket named on its command line and answers the
// commands the adapter sends.
type fakeMpv struct {
	args     []string
	listener net.Listener

	mu       sync.Mutex
	conn     net.Conn
	commands [][]interface{}
	props    map[string]interface{}
	playlist []string
	pos      int

	writeMu  sync.Mutex
	done     chan struct{}
	exitErr  error
	exitOnce sync.Once
}

func (f *fakeMpv) serve() {
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		data, quit := f.handle(req.Command)
		f.write(map[string]interface{}{"request_id": req.RequestID, "error": "success", "data": data})
		if quit {
			f.exit(nil)
			return
		}
	}
}

func (f *fakeMpv) handle(cmd []interface{}) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)

	switch cmd[0] {
	case "set_property":
		f.props[cmd[1].(string)] = cmd[2]
	case "get_property":
		switch cmd[1] {
		case "playlist-pos":
			return f.pos, false
		case "playlist-count":
			return len(f.playlist), false
		}
		return f.props[cmd[1].(string)], false
	case "playlist-clear":
		f.playlist = nil
		f.pos = -1
	case "loadfile":
		if cmd[2] == "replace" {
			f.playlist = []string{cmd[1].(string)}
			f.pos = 0
		} else {
			f.playlist = append(f.playlist, cmd[1].(string))
		}
	case "playlist-remove":
		i := int(cmd[1].(float64))
		f.playlist = append(f.playlist[:i], f.playlist[i+1:]...)
	case "quit":
		return nil, true
	}
	return nil, false
}

func (f *fakeMpv) write(v interface{}) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return
	}
	line, _ := json.Marshal(v)
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_, _ = conn.Write(append(line, '\n'))
}

// emit sends a property-change event.
func (f *fakeMpv) emit(name string, value interface{}) {
	f.write(map[string]interface{}{"event": "property-change", "name": name, "data": value})
}

func (f *fakeMpv) exit(err error) {
	f.exitOnce.Do(func() {
		f.exitErr = err
		if f.listener != nil {
			_ = f.listener.Close()
		}
		f.mu.Lock()
		if f.conn != nil {
			_ = f.conn.Close()
		}
		f.mu.Unlock()
		close(f.done)
	})
}

func (f *fakeMpv) Wait() error {
	<-f.done
	return f.exitErr
}

func (f *fakeMpv) Kill() error {
	f.exit(errors.New("signal: killed"))
	return nil
}

func (f *fakeMpv) sent(name string) [][]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]interface{}
	for _, c := range f.commands {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeMpv) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.playlist...)
}

func (f *fakeMpv) prop(name string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.props[name]
}

func (f *fakeMpv) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.commands))
	for _, c := range f.commands {
		out = append(out, c[0].(string))
	}
	return out
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched []*fakeMpv
	fail     error
	noSocket bool
}

func (l *fakeLauncher) launch(binary string, args []string) (processHandle, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	var socket string
	for _, a := range args {
		if strings.HasPrefix(a, "--input-ipc-server=") {
			socket = strings.TrimPrefix(a, "--input-ipc-server=")
		}
	}
	f := &fakeMpv{args: args, props: map[string]interface{}{}, pos: -1, done: make(chan struct{})}
	if l.noSocket {
		go f.exit(errors.New("exit status 1"))
		return f, nil
	}
	ln, err := net.Listen("unix", socket)
	if err != nil {
		return nil, err
	}
	f.listener = ln
	go f.serve()

	l.mu.Lock()
	l.launched = append(l.launched, f)
	l.mu.Unlock()
	return f, nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launched)
}

func (l *fakeLauncher) last() *fakeMpv {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched[len(l.launched)-1]
}

func newTestProcess(t *testing.T, opts domain.ProcessOptions, params ...string) (*Process, *fakeLauncher) {
	t.Helper()
	// unix socket paths are short; t.TempDir can exceed the limit
	dir, err := os.MkdirTemp("", "mpv")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	cfg := DefaultConfig()
	cfg.SocketDir = dir
	cfg.SocketTimeout = 2 * time.Second
	cfg.QuitTimeout = time.Second
	cfg.Logger = logger.NewTestLogger()

	l := &fakeLauncher{}
	p := New(params, opts, cfg)
	p.launch = l.launch
	return p, l
}

type statusLog struct {
	mu       sync.Mutex
	statuses []ports.PlayerStatus
}

func (s *statusLog) add(status ports.PlayerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *statusLog) all() []ports.PlayerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.PlayerStatus(nil), s.statuses...)
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("/tmp/s.sock", domain.ProcessOptions{AudioOnly: true}, []string{"--gapless-audio=weak"})
	assert.Equal(t, []string{
		"--idle=yes",
		"--no-terminal",
		"--input-ipc-server=/tmp/s.sock",
		"--no-video",
		"--audio-display=no",
		"--gapless-audio=weak",
	}, args)

	assert.NotContains(t, buildArgs("/tmp/s.sock", domain.ProcessOptions{}, nil), "--no-video")
}

func TestProcess_StartAndQuit(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{AudioOnly: true}, "--prefetch-playlist=yes")
	require.NoError(t, p.SetProperty("volume", 40.0))
	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	assert.ErrorIs(t, p.Start(context.Background()), domain.ErrPlayerAlreadyRunning)

	f := l.last()
	assert.Contains(t, f.args, "--prefetch-playlist=yes")

	observes := f.sent("observe_property")
	require.Len(t, observes, len(observed))
	for i, name := range observed {
		assert.Equal(t, name, observes[i][2])
	}
	sets := f.sent("set_property")
	require.Len(t, sets, 1)
	assert.Equal(t, []interface{}{"set_property", "volume", 40.0}, sets[0])

	require.NoError(t, p.Quit(context.Background()))
	assert.False(t, p.Running())
	assert.Len(t, f.sent("quit"), 1)
	select {
	case <-p.Done():
	default:
		t.Fatal("done not closed after quit")
	}
	require.NoError(t, p.Quit(context.Background()))
}

func TestProcess_StatusTranslation(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{})
	log := &statusLog{}
	p.Subscribe(log.add)
	require.NoError(t, p.Start(context.Background()))
	defer func() { _ = p.Quit(context.Background()) }()
	f := l.last()

	f.emit("pause", false) // still idle: no resume
	f.emit("idle-active", false)
	f.emit("pause", true)
	f.emit("time-pos", 3.5)
	f.emit("playlist-pos", 1)
	f.emit("volume", 80)
	f.emit("idle-active", true)

	require.Eventually(t, func() bool { return len(log.all()) == 10 }, time.Second, 5*time.Millisecond)
	got := log.all()

	kinds := make([]ports.PlayerStatusKind, len(got))
	for i, s := range got {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []ports.PlayerStatusKind{
		ports.StatusProperty, // pause
		ports.StatusProperty, // idle-active
		ports.StatusResumed,
		ports.StatusProperty, // pause
		ports.StatusPaused,
		ports.StatusTimePosition,
		ports.StatusProperty, // playlist-pos
		ports.StatusProperty, // volume
		ports.StatusProperty, // idle-active
		ports.StatusStopped,
	}, kinds)

	assert.Equal(t, 3.5, got[5].Seconds)
	assert.Equal(t, "playlist-pos", got[6].Property)
	assert.Equal(t, 1.0, got[6].Value)
}

func TestProcess_SetQueue(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{})
	require.NoError(t, p.Start(context.Background()))
	defer func() { _ = p.Quit(context.Background()) }()
	f := l.last()

	data := &domain.PlayerCommandData{Songs: []domain.QueueSong{
		{UniqueID: "a", StreamURL: "/music/a.mp3"},
		{UniqueID: "b", StreamURL: "/music/b.mp3"},
	}}
	require.NoError(t, p.SetQueue(data))
	assert.Equal(t, []string{"/music/a.mp3", "/music/b.mp3"}, f.list())

	require.NoError(t, p.SetQueue(&domain.PlayerCommandData{}))
	assert.Len(t, f.sent("stop"), 1)
}

func TestProcess_SetQueueNext(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{})
	require.NoError(t, p.Start(context.Background()))
	defer func() { _ = p.Quit(context.Background()) }()
	f := l.last()

	f.mu.Lock()
	f.playlist = []string{"a", "b", "c"}
	f.pos = 0
	f.mu.Unlock()

	require.NoError(t, p.SetQueueNext(&domain.PlayerCommandData{Songs: []domain.QueueSong{
		{StreamURL: "a"}, {StreamURL: "d"},
	}}))
	assert.Equal(t, []string{"a", "d"}, f.list())

	// last song: nothing to append
	require.NoError(t, p.SetQueueNext(&domain.PlayerCommandData{Songs: []domain.QueueSong{{StreamURL: "a"}}}))
	assert.Equal(t, []string{"a"}, f.list())
}

func TestProcess_Controls(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{})
	assert.ErrorIs(t, p.Play(), domain.ErrPlayerNotRunning)
	assert.ErrorIs(t, p.Next(), domain.ErrPlayerNotRunning)

	require.NoError(t, p.Start(context.Background()))
	defer func() { _ = p.Quit(context.Background()) }()
	f := l.last()

	require.NoError(t, p.Play())
	require.NoError(t, p.Pause())
	require.NoError(t, p.TogglePause())
	require.NoError(t, p.Seek(-10))
	require.NoError(t, p.Next())
	require.NoError(t, p.Previous())
	require.NoError(t, p.Stop())
	require.NoError(t, p.SetMultipleProperties(map[string]interface{}{"mute": true}))

	names := f.names()
	assert.Equal(t, []string{
		"set_property", "set_property", "cycle", "seek", "playlist-next", "playlist-prev", "stop", "set_property",
	}, names[len(observed):])
	assert.Equal(t, []interface{}{"seek", -10.0, "relative"}, f.sent("seek")[0])
	assert.Equal(t, true, f.prop("mute"))
}

func TestProcess_RestartsAfterCrash(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{AutoRestart: true})
	require.NoError(t, p.Start(context.Background()))
	defer func() { _ = p.Quit(context.Background()) }()
	require.NoError(t, p.SetProperty("volume", 30.0))

	l.last().exit(errors.New("exit status 139"))

	require.Eventually(t, func() bool { return l.count() == 2 && p.Running() }, 2*time.Second, 10*time.Millisecond)
	sets := l.last().sent("set_property")
	require.Len(t, sets, 1)
	assert.Equal(t, "volume", sets[0][1])

	select {
	case <-p.Done():
		t.Fatal("done closed after a recovered crash")
	default:
	}
}

func TestProcess_GivesUpAfterRepeatedCrashes(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{AutoRestart: true})
	p.cfg.MaxRestarts = 1
	require.NoError(t, p.Start(context.Background()))

	l.last().exit(errors.New("crash"))
	require.Eventually(t, func() bool { return l.count() == 2 && p.Running() }, 2*time.Second, 10*time.Millisecond)
	l.last().exit(errors.New("crash"))

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process kept restarting")
	}
	assert.Equal(t, 2, l.count())
	assert.False(t, p.Running())
}

func TestProcess_ExitWithoutAutoRestart(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, l := newTestProcess(t, domain.ProcessOptions{})
	require.NoError(t, p.Start(context.Background()))
	l.last().exit(nil)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("done not closed")
	}
	assert.Equal(t, 1, l.count())
}

func TestProcess_StartFailures(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	t.Run("launch error", func(t *testing.T) {
		p, l := newTestProcess(t, domain.ProcessOptions{Binary: "/opt/mpv"})
		l.fail = errors.New("no such file")

		err := p.Start(context.Background())
		var perr *domain.PlayerProcessError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "/opt/mpv", perr.Binary)
		<-p.Done()
	})

	t.Run("exits before socket", func(t *testing.T) {
		p, l := newTestProcess(t, domain.ProcessOptions{})
		l.noSocket = true

		err := p.Start(context.Background())
		var perr *domain.PlayerProcessError
		require.ErrorAs(t, err, &perr)
		assert.False(t, p.Running())
		<-p.Done()
	})
}

func TestProcess_QuitWithoutStart(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, _ := newTestProcess(t, domain.ProcessOptions{})
	require.NoError(t, p.Quit(context.Background()))
	<-p.Done()
	assert.ErrorIs(t, p.Start(context.Background()), domain.ErrPlayerAlreadyRunning)
}

func TestNewFactory(t *testing.T) {
	proc := NewFactory(DefaultConfig())(nil, domain.ProcessOptions{})
	p, ok := proc.(*Process)
	require.True(t, ok)
	assert.Equal(t, defaultBinary, p.opts.Binary)
	require.NoError(t, p.Quit(context.Background()))
}
