package executor

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

const (
	containerWorkRoot = "/tmp"
	cleanupTimeout    = 10 * time.Second
	startupTimeout    = 5 * time.Minute
)

// DockerInvoker runs the judger inside a pool of long-lived judger containers.
// Each run copies the source into a fresh directory in the container and
// removes that directory afterwards.
type DockerInvoker struct {
	client      *client.Client
	log         loggerv2.Logger
	image       string
	command     []string
	timeout     time.Duration
	memoryLimit int64
	pool        *containerPool
}

var _ Invoker = (*DockerInvoker)(nil)

// execResult is the outcome of one command run inside a container.
type execResult struct {
	stdout   string
	stderr   string
	exitCode int
}

// NewDockerInvoker connects to the docker daemon, makes sure the judger image
// is present and starts poolSize judger containers before returning.
func NewDockerInvoker(log loggerv2.Logger, image, commandLine string, poolSize, memoryLimitMB int, timeout time.Duration) (*DockerInvoker, error) {
	command, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse judger command failed: %w", err)
	}
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty judger command", ErrJudgerUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c, err := client.New(client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: create docker client: %v", ErrJudgerUnavailable, err)
	}

	d := &DockerInvoker{
		client:      c,
		log:         log,
		image:       image,
		command:     command,
		timeout:     timeout,
		memoryLimit: int64(memoryLimitMB) * 1024 * 1024,
	}
	d.pool = newContainerPool(poolSize, d.createJudgerContainer, d.removeContainer)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err = d.prepare(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: %v", ErrJudgerUnavailable, err)
	}
	return d, nil
}

func (d *DockerInvoker) prepare(ctx context.Context) error {
	if _, err := d.client.Ping(ctx, client.PingOptions{}); err != nil {
		return fmt.Errorf("ping docker daemon: %w", err)
	}
	if err := d.pullImageIfMissing(ctx); err != nil {
		return err
	}
	if err := d.pool.warm(ctx); err != nil {
		return fmt.Errorf("start judger containers: %w", err)
	}
	return nil
}

func (d *DockerInvoker) Invoke(ctx context.Context, language model.SubmissionLanguage, code string, problemID uint64) (string, error) {
	cfg, err := languageConfig(language)
	if err != nil {
		return "", err
	}

	containerID, err := d.pool.acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: acquire judger container: %v", ErrJudgerUnavailable, err)
	}
	ctx = loggerv2.ContextWithFields(ctx, logger.String("container_id", containerID))
	healthy := true
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		// 超时的容器中可能仍有残留进程, 直接丢弃
		d.pool.release(releaseCtx, containerID, healthy)
	}()

	workspace := path.Join(containerWorkRoot, "oj-submission-"+uuid.NewString())
	defer func() {
		if healthy {
			healthy = d.removeWorkspace(ctx, containerID, workspace)
		}
	}()

	if err = d.copySource(ctx, containerID, workspace, cfg.SourceFileName, []byte(code)); err != nil {
		healthy = false
		return "", fmt.Errorf("%w: copy source: %v", ErrJudgerUnavailable, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	argv := judgerArgv(d.command, problemID, cfg.Tag, path.Join(workspace, cfg.SourceFileName))
	res, err := d.run(runCtx, containerID, argv, workspace)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			healthy = false
			return "", fmt.Errorf("%w after %s", ErrJudgerTimeout, d.timeout)
		}
		return "", fmt.Errorf("%w: exec judger: %v", ErrJudgerUnavailable, err)
	}
	switch res.exitCode {
	case 0:
		return res.stdout, nil
	case 126, 127: // 评测机不可执行或不存在
		return "", fmt.Errorf("%w: exit code %d: %s", ErrJudgerUnavailable, res.exitCode, truncate(res.stderr))
	default:
		return "", fmt.Errorf("%w: exit code %d: %s", ErrJudgerFailed, res.exitCode, truncate(res.stderr))
	}
}

// Close waits for running judgements, removes the judger containers and
// closes the docker client.
func (d *DockerInvoker) Close(ctx context.Context) error {
	d.pool.close(ctx)
	return d.client.Close()
}

func (d *DockerInvoker) removeWorkspace(ctx context.Context, containerID, workspace string) bool {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	res, err := d.run(cleanupCtx, containerID, []string{"rm", "-rf", workspace}, "/")
	if err == nil && res.exitCode == 0 {
		return true
	}
	fields := []logger.Field{logger.String("workspace", workspace), logger.Error(err)}
	if err == nil {
		fields = append(fields, logger.String("stderr", truncate(res.stderr)))
	}
	d.log.WarnContext(ctx, "remove container workspace failed", fields...)
	return false
}

func (d *DockerInvoker) pullImageIfMissing(ctx context.Context) error {
	filters := client.Filters{}
	filters.Add("reference", d.image)
	images, err := d.client.ImageList(ctx, client.ImageListOptions{Filters: filters})
	if err != nil {
		return fmt.Errorf("list image %s: %w", d.image, err)
	}
	if len(images.Items) > 0 {
		return nil
	}

	d.log.InfoContext(ctx, "Pulling judger image", logger.String("image", d.image))
	reader, err := d.client.ImagePull(ctx, d.image, client.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", d.image, err)
	}
	defer reader.Close()
	if _, err = io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull image %s: %w", d.image, err)
	}
	return nil
}

// createJudgerContainer starts an idle container that judger runs exec into.
func (d *DockerInvoker) createJudgerContainer(ctx context.Context) (string, error) {
	created, err := d.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:      d.image,
			Cmd:        []string{"sleep", "infinity"},
			WorkingDir: containerWorkRoot,
		},
		HostConfig: &container.HostConfig{
			Resources: container.Resources{
				Memory:     d.memoryLimit,
				MemorySwap: -1,
				NanoCPUs:   1_000_000_000, // 1 核
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create judger container: %w", err)
	}
	if _, err = d.client.ContainerStart(ctx, created.ID, client.ContainerStartOptions{}); err != nil {
		d.removeContainer(ctx, created.ID)
		return "", fmt.Errorf("start judger container %s: %w", created.ID, err)
	}
	d.log.InfoContext(ctx, "Judger container started", logger.String("container_id", created.ID))
	return created.ID, nil
}

func (d *DockerInvoker) removeContainer(ctx context.Context, id string) {
	if _, err := d.client.ContainerRemove(ctx, id, client.ContainerRemoveOptions{Force: true}); err != nil {
		d.log.ErrorContext(ctx, "remove judger container failed", logger.String("container_id", id), logger.Error(err))
	}
}

// copySource writes the source file into dir inside the container as a tar stream.
func (d *DockerInvoker) copySource(ctx context.Context, containerID, dir, filename string, content []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name:     strings.TrimPrefix(dir, "/") + "/",
		Mode:     0o755,
		Typeflag: tar.TypeDir,
	}); err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name: strings.TrimPrefix(path.Join(dir, filename), "/"),
		Mode: 0o644,
		Size: int64(len(content)),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(content); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	_, err := d.client.CopyToContainer(ctx, containerID, client.CopyToContainerOptions{
		AllowOverwriteDirWithFile: true,
		DestinationPath:           "/",
		Content:                   bytes.NewReader(buf.Bytes()),
	})
	return err
}

// run executes argv in the container. The attached stream is closed when ctx
// ends so a hung judger does not block the caller.
func (d *DockerInvoker) run(ctx context.Context, containerID string, argv []string, workDir string) (execResult, error) {
	created, err := d.client.ExecCreate(ctx, containerID, client.ExecCreateOptions{
		Cmd:          argv,
		WorkingDir:   workDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return execResult{}, fmt.Errorf("create exec: %w", err)
	}
	attach, err := d.client.ExecAttach(ctx, created.ID, client.ExecAttachOptions{})
	if err != nil {
		return execResult{}, fmt.Errorf("attach exec: %w", err)
	}
	defer attach.Close()
	stop := context.AfterFunc(ctx, func() { attach.Close() })
	defer stop()

	var stdout, stderr bytes.Buffer
	if _, err = stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil && !errors.Is(err, io.EOF) {
		if ctx.Err() != nil {
			return execResult{}, ctx.Err()
		}
		return execResult{}, fmt.Errorf("read exec output: %w", err)
	}
	if ctx.Err() != nil {
		return execResult{}, ctx.Err()
	}

	inspect, err := d.client.ExecInspect(ctx, created.ID, client.ExecInspectOptions{})
	if err != nil {
		return execResult{}, fmt.Errorf("inspect exec: %w", err)
	}
	return execResult{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: inspect.ExitCode,
	}, nil
}
