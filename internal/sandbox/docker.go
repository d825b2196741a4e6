package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/model"
)

const (
	workspaceDir = "/workspace"

	containerMemoryBytes = 256 * 1024 * 1024
	containerNanoCPUs    = 1_000_000_000
	containerPidsLimit   = 64
	imagePullTimeout     = 2 * time.Minute
)

var ErrDockerUnavailable = errors.New("docker daemon unreachable")

type dockerClient interface {
	ImageInspectWithRaw(ctx context.Context, image string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerKill(ctx context.Context, containerID string, signal string) error
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecStart(ctx context.Context, execID string, config types.ExecStartCheck) error
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
}

var newDockerClient = func() (dockerClient, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// DockerRunner executes each case in a throwaway container with networking
// disabled, a memory ceiling and no-new-privileges.
type DockerRunner struct {
	cli    dockerClient
	images map[model.Language]string
}

func NewDockerRunner(images map[model.Language]string) (*DockerRunner, error) {
	cli, err := newDockerClient()
	if err != nil {
		return nil, translateDockerErr(err)
	}
	return &DockerRunner{cli: cli, images: images}, nil
}

// WarmImages pulls every configured image that is missing locally so the
// first submission does not pay for the pull inside its case timeout.
func (r *DockerRunner) WarmImages(ctx context.Context) error {
	for lang, image := range r.images {
		if err := r.ensureImage(ctx, image); err != nil {
			return fmt.Errorf("warm %s image %s: %w", lang, image, err)
		}
		log.Debug().Str("language", string(lang)).Str("image", image).Msg("Sandbox image ready")
	}
	return nil
}

func (r *DockerRunner) RunCase(ctx context.Context, spec LanguageSpec, code, stdin string) (Execution, error) {
	image, ok := r.images[spec.Language]
	if !ok || spec.Interpreter == "" {
		return Execution{}, ErrUnsupportedLanguage
	}

	res, err := r.run(ctx, image, spec, code, stdin)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Execution{TimedOut: true}, nil
	}
	return res, err
}

func (r *DockerRunner) run(ctx context.Context, image string, spec LanguageSpec, code, stdin string) (Execution, error) {
	if err := r.ensureImage(ctx, image); err != nil {
		return Execution{}, translateDockerErr(err)
	}

	hostCfg := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:     containerMemoryBytes,
			MemorySwap: containerMemoryBytes,
			NanoCPUs:   containerNanoCPUs,
			PidsLimit:  ptr(int64(containerPidsLimit)),
		},
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
	}
	conf := &container.Config{
		Image:      image,
		Cmd:        []string{"tail", "-f", "/dev/null"},
		WorkingDir: workspaceDir,
		Env:        []string{"PATH=/usr/local/bin:/usr/bin:/bin", "PYTHONDONTWRITEBYTECODE=1"},
	}

	created, err := r.cli.ContainerCreate(ctx, conf, hostCfg, nil, nil, "")
	if err != nil {
		return Execution{}, translateDockerErr(err)
	}
	cid := created.ID
	defer func() {
		_ = r.cli.ContainerRemove(context.Background(), cid, types.ContainerRemoveOptions{Force: true})
	}()

	if err := r.cli.ContainerStart(ctx, cid, types.ContainerStartOptions{}); err != nil {
		return Execution{}, translateDockerErr(err)
	}

	if err := r.copyFile(ctx, cid, workspaceDir+"/"+spec.FileName, []byte(code)); err != nil {
		r.kill(cid)
		return Execution{}, translateDockerErr(err)
	}

	return r.execCase(ctx, cid, spec.Command(spec.FileName), stdin)
}

// execCase runs cmd with stdin attached and waits for it to exit or for ctx
// to end, in which case the container is killed.
func (r *DockerRunner) execCase(ctx context.Context, cid string, cmd []string, stdin string) (Execution, error) {
	execID, attach, err := r.execStart(ctx, cid, cmd, true)
	if err != nil {
		r.kill(cid)
		return Execution{}, err
	}
	defer attach.Close()

	if stdin != "" {
		if _, err := attach.Conn.Write([]byte(stdin)); err != nil {
			r.kill(cid)
			return Execution{}, fmt.Errorf("write stdin: %w", err)
		}
	}
	if closer, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
		_ = closer.CloseWrite()
	}

	stdout := newCappedBuffer(MaxStdoutBytes)
	stderr := newCappedBuffer(MaxStderrBytes)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = stdcopy.StdCopy(stdout, stderr, attach.Reader)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.kill(cid)
		attach.Close()
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Execution{TimedOut: true}, nil
		}
		return Execution{}, ctx.Err()
	}

	inspect, err := r.cli.ContainerExecInspect(ctx, execID)
	if err != nil {
		r.kill(cid)
		return Execution{}, translateDockerErr(err)
	}
	return Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

func (r *DockerRunner) kill(cid string) {
	_ = r.cli.ContainerKill(context.Background(), cid, "SIGKILL")
}

func (r *DockerRunner) ensureImage(ctx context.Context, image string) error {
	_, _, err := r.cli.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return translateDockerErr(err)
	}

	pullCtx, cancel := context.WithTimeout(context.Background(), imagePullTimeout)
	defer cancel()
	reader, err := r.cli.ImagePull(pullCtx, image, types.ImagePullOptions{})
	if err != nil {
		return translateDockerErr(err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

func (r *DockerRunner) execStart(ctx context.Context, cid string, cmd []string, withStdin bool) (string, types.HijackedResponse, error) {
	created, err := r.cli.ContainerExecCreate(ctx, cid, types.ExecConfig{
		Cmd:          cmd,
		WorkingDir:   workspaceDir,
		AttachStdin:  withStdin,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", types.HijackedResponse{}, translateDockerErr(err)
	}
	attach, err := r.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return "", types.HijackedResponse{}, translateDockerErr(err)
	}
	if err := r.cli.ContainerExecStart(ctx, created.ID, types.ExecStartCheck{}); err != nil {
		attach.Close()
		return "", types.HijackedResponse{}, translateDockerErr(err)
	}
	return created.ID, attach, nil
}

func (r *DockerRunner) copyFile(ctx context.Context, cid, absPath string, content []byte) error {
	if !strings.HasPrefix(absPath, "/") {
		return fmt.Errorf("invalid path %q", absPath)
	}
	if err := r.shell(ctx, cid, "mkdir -p "+shellQuote(path.Dir(absPath)), nil); err != nil {
		return err
	}
	if err := r.shell(ctx, cid, "cat > "+shellQuote(absPath), content); err != nil {
		return err
	}
	return r.shell(ctx, cid, "chmod 644 "+shellQuote(absPath), nil)
}

// shell runs a helper command inside the container, optionally feeding it
// input, and fails on a non-zero exit.
func (r *DockerRunner) shell(ctx context.Context, cid, command string, input []byte) error {
	execID, attach, err := r.execStart(ctx, cid, []string{"/bin/sh", "-c", command}, input != nil)
	if err != nil {
		return err
	}
	defer attach.Close()

	if input != nil {
		if _, err := attach.Conn.Write(input); err != nil {
			return err
		}
		if closer, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
			_ = closer.CloseWrite()
		}
	}
	_, _ = stdcopy.StdCopy(io.Discard, io.Discard, attach.Reader)

	inspect, err := r.cli.ContainerExecInspect(ctx, execID)
	if err != nil {
		return translateDockerErr(err)
	}
	if inspect.ExitCode != 0 {
		return fmt.Errorf("command failed (%s) exit=%d", command, inspect.ExitCode)
	}
	return nil
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func translateDockerErr(err error) error {
	if err == nil {
		return nil
	}
	if client.IsErrConnectionFailed(err) {
		return ErrDockerUnavailable
	}
	return err
}

func ptr[T any](v T) *T {
	return &v
}
