// Package sound plays synthesized speech through PortAudio.
package sound

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bz888/leanne/internal/api/server/client"
	"github.com/bz888/leanne/internal/logger"
	"github.com/bz888/leanne/internal/speech"
	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, rate float64) (*audio.IntBuffer, error)
}

// Speaker is a speech.Engine that synthesizes each utterance and plays it on
// the default output device. Open must be called before use.
type Speaker struct {
	synth Synthesizer
	log   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	paused bool
	wake   chan struct{}
}

var _ speech.Engine = (*Speaker)(nil)

func NewSpeaker(synth Synthesizer) *Speaker {
	return &Speaker{
		synth: synth,
		log:   logger.NewLogger("speaker"),
		wake:  make(chan struct{}),
	}
}

func (s *Speaker) Open() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	return nil
}

func (s *Speaker) Close() error {
	s.Cancel()
	return portaudio.Terminate()
}

// Speak cancels the current utterance and plays u in the background.
func (s *Speaker) Speak(u speech.Utterance, onEnd func(), onError func(error)) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.paused = false
	s.mu.Unlock()

	go func() {
		defer cancel()
		if err := s.play(ctx, u); err != nil {
			onError(err)
			return
		}
		onEnd()
	}()
}

func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.setPausedLocked(false)
}

func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPausedLocked(true)
}

func (s *Speaker) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPausedLocked(false)
}

func (s *Speaker) setPausedLocked(paused bool) {
	if s.paused && !paused {
		close(s.wake)
		s.wake = make(chan struct{})
	}
	s.paused = paused
}

// waitWhilePaused blocks until playback may continue.
func (s *Speaker) waitWhilePaused(ctx context.Context) error {
	for {
		s.mu.Lock()
		paused, wake := s.paused, s.wake
		s.mu.Unlock()
		if !paused {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (s *Speaker) play(ctx context.Context, u speech.Utterance) error {
	buf, err := s.synth.Synthesize(ctx, u.Text, u.Rate)
	if err != nil {
		return err
	}

	channels := max(buf.Format.NumChannels, 1)
	out := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(buf.Format.SampleRate), framesPerBuffer, &out)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}

	var level float64
	data := buf.Data[offsetSamples(buf, u.Offset):]
	for len(data) > 0 {
		if err := s.waitWhilePaused(ctx); err != nil {
			stream.Abort()
			return fmt.Errorf("%w: %w", client.ErrCanceled, err)
		}
		if ctx.Err() != nil {
			stream.Abort()
			return fmt.Errorf("%w: %w", client.ErrCanceled, ctx.Err())
		}

		n := scaleInto(out, data, u.Volume, buf.SourceBitDepth)
		data = data[n:]
		level = max(level, calculateRMS16(out[:n]))

		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			stream.Abort()
			return fmt.Errorf("write output stream: %w", err)
		}
	}

	s.log.Info("Played", len(buf.Data), "samples, peak level", int(level))
	return stream.Stop()
}
