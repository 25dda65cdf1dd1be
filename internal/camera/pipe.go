package camera

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vortex-uav/depthbridge/internal/depth"
)

const (
	// DecodeErrorsThreshold is the number of consecutive frame resyncs
	// tolerated before the stream is declared broken.
	DecodeErrorsThreshold = 5

	streamMagic = 0x44504231 // "DPB1"
	frameSync   = 0x44504246 // "DPBF"

	maxFrameDimension = 1 << 14
)

var (
	// ErrTooManyDecodeErrors is returned when frame sync is lost repeatedly.
	ErrTooManyDecodeErrors = errors.New("too many consecutive frame decode errors")

	// ErrStreamBroken is returned when the streamer's stdout fails mid-stream.
	ErrStreamBroken = errors.New("depth stream broken")
)

// WithLogger sets the logger for the source.
func WithLogger(logger *slog.Logger) func(*PipeSource) {
	return func(p *PipeSource) {
		p.logger = logger.With(slog.String("component", "camera"))
	}
}

// WithFrameTimeout sets the bounded per-frame wait for Next.
func WithFrameTimeout(d time.Duration) func(*PipeSource) {
	return func(p *PipeSource) {
		p.frameTimeout = d
	}
}

// WithDecodeErrorsThreshold sets the consecutive resync limit.
func WithDecodeErrorsThreshold(threshold uint8) func(*PipeSource) {
	return func(p *PipeSource) {
		p.decodeErrorsThreshold = threshold
	}
}

// PipeSource runs an external depth streamer (for example a thin librealsense
// shim) and decodes its stdout. The stream opens with a header carrying the
// geometry and depth scale, followed by sync-framed raw depth frames. Stderr
// lines are logged. Frames are delivered latest-wins: a slow consumer sees
// the freshest frame, never a backlog.
type PipeSource struct {
	binPath string
	args    []string

	logger                *slog.Logger
	frameTimeout          time.Duration
	decodeErrorsThreshold uint8

	frames chan *depth.Image
	fatal  chan error

	started atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// NewPipeSource creates a source around the given streamer command. The
// command is resolved through PATH at Start.
func NewPipeSource(command string, args []string, options ...func(*PipeSource)) *PipeSource {
	p := &PipeSource{
		binPath:               command,
		args:                  args,
		logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
		frameTimeout:          time.Second,
		decodeErrorsThreshold: DecodeErrorsThreshold,
		frames:                make(chan *depth.Image, 1),
		fatal:                 make(chan error, 1),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Start launches the streamer process and begins decoding frames.
func (p *PipeSource) Start(ctx context.Context) error {
	if p.started.Load() {
		return errors.New("source is already running")
	}

	binPath, err := exec.LookPath(p.binPath)
	if err != nil {
		return fmt.Errorf("finding depth streamer '%s': %w", p.binPath, err)
	}

	ctx, p.cancel = context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, binPath, p.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("starting depth streamer: %w", err)
	}

	p.started.Store(true)
	p.logger.Info("depth streamer started", slog.String("path", binPath))

	p.wg.Add(3)
	go p.handleFrames(stdout)
	go p.handleStderr(stderr)
	go p.handleCmdWait(cmd)

	return nil
}

// Next returns the freshest decoded frame, ErrFrameTimeout if none arrived
// within the configured wait, or a fatal error if the stream died.
func (p *PipeSource) Next(ctx context.Context) (*depth.Image, error) {
	if !p.started.Load() {
		return nil, ErrSourceClosed
	}

	timer := time.NewTimer(p.frameTimeout)
	defer timer.Stop()

	select {
	case im, ok := <-p.frames:
		if !ok {
			return nil, ErrSourceClosed
		}
		return im, nil
	case err := <-p.fatal:
		return nil, err
	case <-timer.C:
		return nil, ErrFrameTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the streamer process and waits for the decode goroutines.
func (p *PipeSource) Close() error {
	p.closeOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		p.started.Store(false)
		p.logger.Info("depth streamer stopped")
	})
	return nil
}

func (p *PipeSource) fail(err error) {
	select {
	case p.fatal <- err:
	default:
	}
}

// publish delivers a frame latest-wins: a stale undelivered frame is dropped
// in favor of the new one.
func (p *PipeSource) publish(im *depth.Image) {
	for {
		select {
		case p.frames <- im:
			return
		default:
			select {
			case <-p.frames:
			default:
			}
		}
	}
}

func (p *PipeSource) handleFrames(stdout io.Reader) {
	defer p.wg.Done()

	r := bufio.NewReaderSize(stdout, 1<<20)

	width, height, scale, err := readStreamHeader(r)
	if err != nil {
		p.fail(err)
		return
	}
	p.logger.Info("depth stream opened",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Float64("depthScale", scale),
	)

	var decodeErrors uint8
	for {
		im, err := readFrame(r, width, height, scale)
		switch {
		case err == nil:
			decodeErrors = 0
			p.publish(im)

		case errors.Is(err, errFrameSyncLost):
			decodeErrors++
			p.logger.Warn("frame sync lost, resyncing", slog.Int("consecutive", int(decodeErrors)))
			if decodeErrors >= p.decodeErrorsThreshold {
				p.fail(ErrTooManyDecodeErrors)
				return
			}
			if err = resync(r); err != nil {
				p.fail(fmt.Errorf("%w: %w", ErrStreamBroken, err))
				return
			}

		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			p.fail(fmt.Errorf("%w: stream ended", ErrStreamBroken))
			return

		default:
			p.fail(fmt.Errorf("%w: %w", ErrStreamBroken, err))
			return
		}
	}
}

func (p *PipeSource) handleStderr(stderr io.Reader) {
	defer p.wg.Done()

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.logger.Warn(fmt.Sprintf("streamer >> %s", line))
	}
}

func (p *PipeSource) handleCmdWait(cmd *exec.Cmd) {
	defer p.wg.Done()

	if err := cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		p.fail(fmt.Errorf("depth streamer exited: %w", err))
	}
}

var errFrameSyncLost = errors.New("frame sync word mismatch")

func readStreamHeader(r io.Reader) (width, height int, scale float64, err error) {
	var hdr struct {
		Magic  uint32
		Width  uint32
		Height uint32
		Scale  float64
	}
	if err = binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return 0, 0, 0, fmt.Errorf("reading stream header: %w", err)
	}
	if hdr.Magic != streamMagic {
		return 0, 0, 0, fmt.Errorf("bad stream magic 0x%08x", hdr.Magic)
	}
	if hdr.Width == 0 || hdr.Height == 0 || hdr.Width > maxFrameDimension || hdr.Height > maxFrameDimension {
		return 0, 0, 0, fmt.Errorf("implausible stream dimensions %dx%d", hdr.Width, hdr.Height)
	}
	if hdr.Scale <= 0 {
		return 0, 0, 0, fmt.Errorf("non-positive depth scale %g", hdr.Scale)
	}
	return int(hdr.Width), int(hdr.Height), hdr.Scale, nil
}

func readFrame(r io.Reader, width, height int, scale float64) (*depth.Image, error) {
	var syncWord uint32
	if err := binary.Read(r, binary.LittleEndian, &syncWord); err != nil {
		return nil, err
	}
	if syncWord != frameSync {
		return nil, errFrameSyncLost
	}

	var ts uint64
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return nil, err
	}

	im := depth.NewImage(width, height, scale)
	im.TimestampUS = int64(ts)
	if err := binary.Read(r, binary.LittleEndian, im.Samples); err != nil {
		return nil, err
	}
	return im, nil
}

// resync discards bytes until the reader is positioned at the next frame
// sync word, so the following readFrame starts on a frame boundary.
func resync(r *bufio.Reader) error {
	for {
		buf, err := r.Peek(4)
		if err != nil {
			return err
		}
		if binary.LittleEndian.Uint32(buf) == frameSync {
			return nil
		}
		if _, err := r.ReadByte(); err != nil {
			return err
		}
	}
}
