package main

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"ukulele-tuner/tuner"
)

const (
	chimeHz       = 1318.51 // E6
	chimeMS       = 350
	chimeVolume   = 0.2
	chimeMidiNote = 88 // E6
)

// synthSine renders a sine of freq Hz with a linear fade out.
func synthSine(freq float64, rate, durMS int) []float32 {
	n := rate * durMS / 1000
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
		fade := 1 - float64(i)/float64(n)
		samples[i] = float32(v * fade * chimeVolume)
	}
	return samples
}

// audioChime plays a short ding on the default playback device. A chime
// that is still sounding swallows new plays.
type audioChime struct {
	ctx     *malgo.AllocatedContext
	rate    int
	samples []float32
	busy    atomic.Bool
}

func newAudioChime(ctx *malgo.AllocatedContext, rate int) *audioChime {
	return &audioChime{ctx: ctx, rate: rate, samples: synthSine(chimeHz, rate, chimeMS)}
}

func (c *audioChime) Play() {
	if !c.busy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.busy.Store(false)
		if err := c.play(); err != nil {
			logger.Warn("chime failed", "err", err)
		}
	}()
}

func (c *audioChime) play() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatF32
	config.Playback.Channels = 1
	config.SampleRate = uint32(c.rate)

	var mu sync.Mutex
	pos := 0
	finished := make(chan struct{})
	var once sync.Once
	callbacks := malgo.DeviceCallbacks{
		Data: func(output, input []byte, frameCount uint32) {
			out := bytesToFloat32Slice(output)
			mu.Lock()
			n := copy(out, c.samples[pos:])
			pos += n
			done := pos >= len(c.samples)
			mu.Unlock()
			clear(out[n:])
			if done {
				once.Do(func() { close(finished) })
			}
		},
	}
	device, err := malgo.InitDevice(c.ctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("init playback: %w", err)
	}
	defer device.Uninit()
	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	select {
	case <-finished:
	case <-time.After(2 * chimeMS * time.Millisecond):
	}
	return device.Stop()
}

// midiChime sends a short note to the first MIDI output port.
type midiChime struct {
	send func(midi.Message) error
	busy atomic.Bool
}

func newMidiChime(port int) (*midiChime, error) {
	out, err := midi.OutPort(port)
	if err != nil {
		return nil, fmt.Errorf("midi out port %d: %w", port, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midi out port %d: %w", port, err)
	}
	logger.Info("midi chime", "port", out.String())
	return &midiChime{send: send}, nil
}

func (c *midiChime) Play() {
	if !c.busy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.busy.Store(false)
		if err := c.send(midi.NoteOn(0, chimeMidiNote, 100)); err != nil {
			logger.Warn("midi chime failed", "err", err)
			return
		}
		time.Sleep(chimeMS * time.Millisecond)
		_ = c.send(midi.NoteOff(0, chimeMidiNote))
	}()
}

// newChime resolves the --chime flag. A chime that cannot be opened is
// logged and replaced by silence.
func newChime(kind string, ctx *malgo.AllocatedContext, rate int) tuner.Chime {
	switch kind {
	case "audio":
		if ctx == nil {
			return tuner.NopChime
		}
		return newAudioChime(ctx, rate)
	case "midi":
		c, err := newMidiChime(0)
		if err != nil {
			logger.Warn("no midi chime", "err", err)
			return tuner.NopChime
		}
		return c
	case "none", "":
		return tuner.NopChime
	default:
		logger.Warn("unknown chime, using none", "chime", kind)
		return tuner.NopChime
	}
}

func closeChimes() {
	midi.CloseDriver()
}
