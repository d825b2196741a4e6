package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockloop/interview-engine/internal/model"
)

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "'simple'", shellQuote("simple"))
	assert.Equal(t, `'has'\''single'`, shellQuote("has'single"))
}

func TestTranslateDockerErr(t *testing.T) {
	assert.NoError(t, translateDockerErr(nil))
	assert.ErrorIs(t, translateDockerErr(client.ErrorConnectionFailed("unix:///var/run/docker.sock")), ErrDockerUnavailable)

	other := errors.New("boom")
	assert.Equal(t, other, translateDockerErr(other))
}

func TestNewDockerRunnerPropagatesConnectionFailure(t *testing.T) {
	orig := newDockerClient
	defer func() { newDockerClient = orig }()
	newDockerClient = func() (dockerClient, error) {
		return nil, client.ErrorConnectionFailed("unix:///var/run/docker.sock")
	}

	_, err := NewDockerRunner(map[model.Language]string{model.LanguagePython: "python:3.12-alpine"})
	assert.ErrorIs(t, err, ErrDockerUnavailable)
}

func copySteps(file string) []*fakeExec {
	return []*fakeExec{
		{expectCmd: []string{"/bin/sh", "-c", "mkdir -p '/workspace'"}},
		{expectCmd: []string{"/bin/sh", "-c", "cat > '/workspace/" + file + "'"}},
		{expectCmd: []string{"/bin/sh", "-c", "chmod 644 '/workspace/" + file + "'"}},
	}
}

func pySpec(t *testing.T) LanguageSpec {
	spec, err := langSpec(model.LanguagePython)
	require.NoError(t, err)
	return spec
}

func TestDockerRunnerRunCase(t *testing.T) {
	run := &fakeExec{
		expectCmd: []string{"python3", "main.py"},
		stdout:    "[0,1]\n",
		stderr:    "note\n",
	}
	fake := &fakeDocker{t: t, execQueue: append(copySteps("main.py"), run)}
	r := &DockerRunner{cli: fake, images: map[model.Language]string{model.LanguagePython: "py"}}

	out, err := r.RunCase(context.Background(), pySpec(t), "print('hi')", "[2,7,11,15]\n9")

	require.NoError(t, err)
	assert.Equal(t, "[0,1]\n", out.Stdout)
	assert.Equal(t, "note\n", out.Stderr)
	assert.False(t, out.TimedOut)
	assert.True(t, fake.removed)
	assert.Equal(t, "print('hi')", fake.executed[1].stdin.String())
	assert.Equal(t, "[2,7,11,15]\n9", run.stdin.String())
	assert.True(t, run.conn.closeWrite)

	require.NotNil(t, fake.hostConfig)
	assert.Equal(t, container.NetworkMode("none"), fake.hostConfig.NetworkMode)
	assert.Equal(t, int64(containerMemoryBytes), fake.hostConfig.Memory)
	assert.Contains(t, fake.hostConfig.SecurityOpt, "no-new-privileges")
}

func TestDockerRunnerNonZeroExit(t *testing.T) {
	run := &fakeExec{
		expectCmd: []string{"python3", "main.py"},
		inspect:   types.ContainerExecInspect{ExitCode: 1},
		stderr:    "Traceback",
	}
	fake := &fakeDocker{t: t, execQueue: append(copySteps("main.py"), run)}
	r := &DockerRunner{cli: fake, images: map[model.Language]string{model.LanguagePython: "py"}}

	out, err := r.RunCase(context.Background(), pySpec(t), "raise SystemExit(1)", "")

	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, "Traceback", out.Stderr)
	assert.Empty(t, fake.killCalls)
}

func TestDockerRunnerTimeoutKillsContainer(t *testing.T) {
	run := &fakeExec{expectCmd: []string{"python3", "main.py"}, block: true}
	fake := &fakeDocker{t: t, execQueue: append(copySteps("main.py"), run)}
	r := &DockerRunner{cli: fake, images: map[model.Language]string{model.LanguagePython: "py"}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	out, err := r.RunCase(ctx, pySpec(t), "while True: pass", "")

	require.NoError(t, err)
	assert.True(t, out.TimedOut)
	assert.Equal(t, []string{"SIGKILL"}, fake.kills())
	assert.True(t, fake.removed)
}

func TestDockerRunnerCopyFailureKillsContainer(t *testing.T) {
	fake := &fakeDocker{t: t, execQueue: []*fakeExec{
		{expectCmd: []string{"/bin/sh", "-c", "mkdir -p '/workspace'"}, inspect: types.ContainerExecInspect{ExitCode: 1}},
	}}
	r := &DockerRunner{cli: fake, images: map[model.Language]string{model.LanguagePython: "py"}}

	_, err := r.RunCase(context.Background(), pySpec(t), "x", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit=1")
	assert.Equal(t, []string{"SIGKILL"}, fake.kills())
	assert.True(t, fake.removed)
}

func TestDockerRunnerCreateError(t *testing.T) {
	fake := &fakeDocker{t: t, createErr: errors.New("create failed")}
	r := &DockerRunner{cli: fake, images: map[model.Language]string{model.LanguagePython: "py"}}

	_, err := r.RunCase(context.Background(), pySpec(t), "x", "")

	assert.ErrorIs(t, err, fake.createErr)
	assert.False(t, fake.removed)
}

func TestDockerRunnerUnknownImage(t *testing.T) {
	r := &DockerRunner{cli: &fakeDocker{t: t}, images: map[model.Language]string{}}
	_, err := r.RunCase(context.Background(), pySpec(t), "x", "")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestDockerRunnerEnsureImage(t *testing.T) {
	t.Run("present image is not pulled", func(t *testing.T) {
		fake := &fakeDocker{t: t}
		r := &DockerRunner{cli: fake}
		require.NoError(t, r.ensureImage(context.Background(), "py"))
		assert.False(t, fake.pulled)
	})

	t.Run("missing image is pulled", func(t *testing.T) {
		fake := &fakeDocker{t: t, inspectErr: errdefs.NotFound(errors.New("missing"))}
		r := &DockerRunner{cli: fake}
		require.NoError(t, r.ensureImage(context.Background(), "py"))
		assert.True(t, fake.pulled)
	})

	t.Run("daemon down", func(t *testing.T) {
		fake := &fakeDocker{t: t, inspectErr: client.ErrorConnectionFailed("unix:///var/run/docker.sock")}
		r := &DockerRunner{cli: fake}
		assert.ErrorIs(t, r.ensureImage(context.Background(), "py"), ErrDockerUnavailable)
	})

	t.Run("warm pulls every image", func(t *testing.T) {
		fake := &fakeDocker{t: t, inspectErr: errdefs.NotFound(errors.New("missing"))}
		r := &DockerRunner{cli: fake, images: map[model.Language]string{
			model.LanguagePython:     "py",
			model.LanguageJavaScript: "node",
		}}
		require.NoError(t, r.WarmImages(context.Background()))
		assert.Equal(t, 2, fake.pullCount)
	})
}

type fakeDocker struct {
	t *testing.T

	mu         sync.Mutex
	inspectErr error
	pulled     bool
	pullCount  int
	createErr  error
	startErr   error
	removed    bool
	hostConfig *container.HostConfig
	killCalls  []string

	execQueue []*fakeExec
	executed  []*fakeExec
	execs     map[string]*fakeExec
}

type fakeExec struct {
	expectCmd []string

	createErr error
	startErr  error
	inspect   types.ContainerExecInspect

	stdout string
	stderr string
	block  bool

	stdin bytes.Buffer
	conn  *fakeConn
}

func (f *fakeDocker) kills() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.killCalls...)
}

func (f *fakeDocker) ImageInspectWithRaw(context.Context, string) (types.ImageInspect, []byte, error) {
	return types.ImageInspect{}, nil, f.inspectErr
}

func (f *fakeDocker) ImagePull(context.Context, string, types.ImagePullOptions) (io.ReadCloser, error) {
	f.pulled = true
	f.pullCount++
	return io.NopCloser(bytes.NewReader([]byte("{}"))), nil
}

func (f *fakeDocker) ContainerCreate(_ context.Context, _ *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *specs.Platform, _ string) (container.ContainerCreateCreatedBody, error) {
	f.hostConfig = hostConfig
	if f.createErr != nil {
		return container.ContainerCreateCreatedBody{}, f.createErr
	}
	return container.ContainerCreateCreatedBody{ID: "cid"}, nil
}

func (f *fakeDocker) ContainerRemove(context.Context, string, types.ContainerRemoveOptions) error {
	f.removed = true
	return nil
}

func (f *fakeDocker) ContainerStart(context.Context, string, types.ContainerStartOptions) error {
	return f.startErr
}

func (f *fakeDocker) ContainerKill(_ context.Context, _ string, signal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killCalls = append(f.killCalls, signal)
	return nil
}

func (f *fakeDocker) ContainerExecCreate(_ context.Context, _ string, config types.ExecConfig) (types.IDResponse, error) {
	if len(f.execQueue) == 0 {
		f.t.Fatalf("unexpected exec %v", config.Cmd)
	}
	call := f.execQueue[0]
	f.execQueue = f.execQueue[1:]
	if !reflect.DeepEqual(call.expectCmd, config.Cmd) {
		f.t.Fatalf("expected cmd %v, got %v", call.expectCmd, config.Cmd)
	}
	f.executed = append(f.executed, call)
	if call.createErr != nil {
		return types.IDResponse{}, call.createErr
	}
	if f.execs == nil {
		f.execs = make(map[string]*fakeExec)
	}
	id := fmt.Sprintf("exec-%d", len(f.executed))
	f.execs[id] = call
	return types.IDResponse{ID: id}, nil
}

func (f *fakeDocker) ContainerExecAttach(_ context.Context, execID string, _ types.ExecStartCheck) (types.HijackedResponse, error) {
	call := f.execs[execID]
	conn := &fakeConn{buf: &call.stdin}
	call.conn = conn

	var reader io.Reader = bytes.NewReader(muxStreams(call.stdout, call.stderr))
	if call.block {
		pr, pw := io.Pipe()
		conn.onClose = func() { pw.Close() }
		reader = pr
	}
	return types.HijackedResponse{Conn: conn, Reader: bufio.NewReader(reader)}, nil
}

func (f *fakeDocker) ContainerExecStart(_ context.Context, execID string, _ types.ExecStartCheck) error {
	return f.execs[execID].startErr
}

func (f *fakeDocker) ContainerExecInspect(_ context.Context, execID string) (types.ContainerExecInspect, error) {
	return f.execs[execID].inspect, nil
}

type fakeConn struct {
	mu         sync.Mutex
	buf        *bytes.Buffer
	closed     bool
	closeWrite bool
	onClose    func()
}

func (c *fakeConn) Read([]byte) (int, error)    { return 0, io.EOF }
func (c *fakeConn) Write(p []byte) (int, error) { return c.buf.Write(p) }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed && c.onClose != nil {
		c.onClose()
	}
	c.closed = true
	return nil
}

func (c *fakeConn) CloseWrite() error {
	c.closeWrite = true
	return nil
}

type fakeAddr string

func (a fakeAddr) Network() string { return string(a) }
func (a fakeAddr) String() string  { return string(a) }

func (c *fakeConn) LocalAddr() net.Addr              { return fakeAddr("local") }
func (c *fakeConn) RemoteAddr() net.Addr             { return fakeAddr("remote") }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func muxStreams(stdout, stderr string) []byte {
	var buf bytes.Buffer
	for stream, payload := range map[byte]string{1: stdout, 2: stderr} {
		if payload == "" {
			continue
		}
		header := make([]byte, 8)
		header[0] = stream
		binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
		buf.Write(header)
		buf.WriteString(payload)
	}
	return buf.Bytes()
}
