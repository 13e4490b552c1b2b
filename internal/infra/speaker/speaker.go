// Package speaker plays quiz audio on the local sound card.
package speaker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/hajimehoshi/go-mp3"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/playback"
)

// Config mirrors the speaker section of the YAML config.
type Config struct {
	FramesPerBuffer int
}

func GetDefaultConfig() Config {
	return Config{FramesPerBuffer: 1024}
}

// pcmSource is decoded 16-bit little-endian stereo audio.
type pcmSource interface {
	io.Reader
	SampleRate() int
}

// output is an open device stream taking interleaved stereo frames.
type output interface {
	Write(samples []int16) error
	Close() error
}

// Speaker is a playback.Port backed by portaudio. Every play request gets
// its own output stream so the three slots mix in the host audio system.
type Speaker struct {
	cfg        Config
	openAsset  func(ctx context.Context, asset domain.AssetRef) (io.ReadCloser, error)
	decode     func(r io.Reader) (pcmSource, error)
	openOutput func(sampleRate, framesPerBuffer int) (output, error)
	terminate  func() error

	mu      sync.Mutex
	handler func(playback.Completion)
	volumes map[domain.PlaybackSlot]float64
	voices  map[domain.PlaybackSlot]*voice
}

type voice struct {
	token  playback.Token
	cancel context.CancelFunc
	done   chan struct{}
}

// New initializes portaudio. Call Close to release it.
func New(cfg Config) (*Speaker, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	s := newSpeaker(cfg)
	s.terminate = portaudio.Terminate
	return s, nil
}

func newSpeaker(cfg Config) *Speaker {
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = GetDefaultConfig().FramesPerBuffer
	}
	return &Speaker{
		cfg:        cfg,
		openAsset:  openAsset,
		decode:     decodeMP3,
		openOutput: openPortaudio,
		volumes:    make(map[domain.PlaybackSlot]float64),
		voices:     make(map[domain.PlaybackSlot]*voice),
	}
}

func (s *Speaker) OnCompletion(handler func(playback.Completion)) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func (s *Speaker) SetVolume(slot domain.PlaybackSlot, level float64) error {
	s.mu.Lock()
	s.volumes[slot] = level
	s.mu.Unlock()
	return nil
}

// Play registers the request and returns at once. Fetching, decoding and
// streaming happen in the background; any failure there is reported as a
// failed completion so callers never wait on the asset source.
func (s *Speaker) Play(_ context.Context, req playback.Request) error {
	if err := s.Stop(req.Slot); err != nil {
		return err
	}

	playCtx, cancel := context.WithCancel(context.Background())
	v := &voice{token: req.Token, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.volumes[req.Slot] = req.Volume
	s.voices[req.Slot] = v
	s.mu.Unlock()

	go s.run(playCtx, req, v)
	return nil
}

// Stop halts the slot and waits for its stream to close. No completion is
// reported for a stopped playback.
func (s *Speaker) Stop(slot domain.PlaybackSlot) error {
	s.mu.Lock()
	v, ok := s.voices[slot]
	delete(s.voices, slot)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	v.cancel()
	<-v.done
	return nil
}

// Close stops every slot and releases portaudio.
func (s *Speaker) Close() error {
	for _, slot := range domain.Slots {
		_ = s.Stop(slot)
	}
	if s.terminate != nil {
		return s.terminate()
	}
	return nil
}

func (s *Speaker) run(ctx context.Context, req playback.Request, v *voice) {
	err := s.playAsset(ctx, req)

	s.mu.Lock()
	current := s.voices[req.Slot] == v
	if current {
		delete(s.voices, req.Slot)
	}
	handler := s.handler
	s.mu.Unlock()
	close(v.done)

	if ctx.Err() != nil || !current || handler == nil {
		return
	}
	done := playback.Completion{Token: req.Token, Slot: req.Slot, Outcome: playback.OutcomeFinished}
	if err != nil {
		done.Outcome = playback.OutcomeFailed
		done.Err = err
	}
	handler(done)
}

func (s *Speaker) playAsset(ctx context.Context, req playback.Request) error {
	rc, err := s.openAsset(ctx, req.Asset)
	if err != nil {
		return fmt.Errorf("open %s: %w", req.Asset, err)
	}
	defer rc.Close()

	src, err := s.decode(rc)
	if err != nil {
		return fmt.Errorf("decode %s: %w", req.Asset, err)
	}
	out, err := s.openOutput(src.SampleRate(), s.cfg.FramesPerBuffer)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Printf("speaker: close %s output: %v", req.Slot, cerr)
		}
	}()
	return s.stream(ctx, req.Slot, src, out)
}

func (s *Speaker) stream(ctx context.Context, slot domain.PlaybackSlot, src pcmSource, out output) error {
	frameBytes := s.cfg.FramesPerBuffer * 4
	raw := make([]byte, frameBytes)
	samples := make([]int16, s.cfg.FramesPerBuffer*2)

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, readErr := io.ReadFull(src, raw)
		if n > 0 {
			s.fill(slot, samples, raw[:n])
			if err := out.Write(samples); err != nil {
				return fmt.Errorf("write %s: %w", slot, err)
			}
		}
		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return nil
		default:
			return fmt.Errorf("read %s: %w", slot, readErr)
		}
	}
}

// fill converts little-endian PCM into samples at the slot volume, zero-padding a short tail.
func (s *Speaker) fill(slot domain.PlaybackSlot, samples []int16, raw []byte) {
	s.mu.Lock()
	volume := s.volumes[slot]
	s.mu.Unlock()

	n := len(raw) / 2
	for i := range samples {
		if i >= n {
			samples[i] = 0
			continue
		}
		sample := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		samples[i] = int16(float64(sample) * volume)
	}
}

func decodeMP3(r io.Reader) (pcmSource, error) {
	return mp3.NewDecoder(r)
}

// assetClient bounds connecting and waiting for headers but not the body,
// which is read at playback pace.
var assetClient = &http.Client{Transport: &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
}}

// openAsset reads local paths, file:// and http(s) URLs.
func openAsset(ctx context.Context, asset domain.AssetRef) (io.ReadCloser, error) {
	ref := string(asset)
	if !strings.Contains(ref, "://") {
		return os.Open(ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "file":
		return os.Open(u.Path)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := assetClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: %s", ref, resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("unsupported asset scheme %q", u.Scheme)
	}
}

type portaudioOutput struct {
	stream *portaudio.Stream
	buffer []int16
}

func openPortaudio(sampleRate, framesPerBuffer int) (output, error) {
	o := &portaudioOutput{buffer: make([]int16, framesPerBuffer*2)}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), framesPerBuffer, o.buffer)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	o.stream = stream
	return o, nil
}

func (o *portaudioOutput) Write(samples []int16) error {
	copy(o.buffer, samples)
	return o.stream.Write()
}

func (o *portaudioOutput) Close() error {
	if err := o.stream.Stop(); err != nil {
		o.stream.Close()
		return err
	}
	return o.stream.Close()
}
