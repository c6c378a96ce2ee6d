package main

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"

	"ukulele-tuner/tuner"
)

type deviceOption struct {
	Name string
	Info *malgo.DeviceInfo
}

type audioRunner struct {
	stop func()
	mu   sync.Mutex
}

func (r *audioRunner) replace(stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		r.stop()
	}
	r.stop = stop
}

func (r *audioRunner) shutdown() {
	r.replace(nil)
}

func initAudio() (*malgo.AllocatedContext, error) {
	return malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "msg", message)
	})
}

func freeAudio(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

func inputDevices(ctx *malgo.AllocatedContext) ([]deviceOption, error) {
	list, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	devs := make([]deviceOption, 0, len(list))
	for i := range list {
		info := list[i]
		name := info.Name()
		if name == "" {
			name = "Unknown input"
		}
		devs = append(devs, deviceOption{
			Name: name,
			Info: &info,
		})
	}
	return devs, nil
}

func findDeviceByName(devs []deviceOption, name string) *deviceOption {
	for i := range devs {
		if devs[i].Name == name {
			return &devs[i]
		}
	}
	return nil
}

// chooseSampleRate picks the first rate the device advertises. A nil device
// is the system default, opened at fallback.
func chooseSampleRate(info *malgo.DeviceInfo, fallback int) uint32 {
	if info != nil {
		for _, f := range info.Formats {
			if f.SampleRate > 0 {
				return f.SampleRate
			}
		}
	}
	return uint32(fallback)
}

// startStream opens a capture device, builds an engine for its sample rate
// and starts it. The returned func stops both.
func startStream(ctx *malgo.AllocatedContext, info *malgo.DeviceInfo, session *tuner.Session) (func(), error) {
	cfg := session.Config()
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = 1
	config.SampleRate = chooseSampleRate(info, cfg.SampleRate)
	if info != nil {
		config.Capture.DeviceID = info.ID.Pointer()
	}
	config.Alsa.NoMMap = 1

	engine, err := tuner.NewEngine(session, detectorFactory(cfg, int(config.SampleRate)))
	if err != nil {
		return nil, err
	}

	samplesCh := make(chan []float32, 8)
	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(output, input []byte, frameCount uint32) {
			if len(input) == 0 {
				return
			}
			samples := bytesToFloat32Slice(input)
			buf := make([]float32, len(samples))
			copy(buf, samples)
			select {
			case samplesCh <- buf:
			default:
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, config, deviceCallbacks)
	if err != nil {
		return nil, fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start device: %w", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		_ = device.Stop()
		device.Uninit()
		return nil, err
	}
	logger.Info("capture started", "sample_rate", config.SampleRate, "buffer_size", cfg.BufferSize)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		asm := newFrameAssembler(cfg.BufferSize)
		for {
			select {
			case <-stop:
				return
			case buf := <-samplesCh:
				asm.push(buf, engine.Feed)
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		_ = device.Stop()
		device.Uninit()
		engine.Stop()
	}, nil
}

// frameAssembler keeps the latest size samples of a capture stream and hands
// the window on every hop new samples.
type frameAssembler struct {
	window []float32
	filled int
	since  int
	hop    int
}

func newFrameAssembler(size int) *frameAssembler {
	return &frameAssembler{
		window: make([]float32, size),
		hop:    max(size/4, 1),
	}
}

func (a *frameAssembler) push(samples []float32, emit func([]float32)) {
	n := len(a.window)
	if len(samples) >= n {
		copy(a.window, samples[len(samples)-n:])
	} else {
		copy(a.window, a.window[len(samples):])
		copy(a.window[n-len(samples):], samples)
	}
	a.filled = min(a.filled+len(samples), n)
	a.since += len(samples)
	if a.filled < n || a.since < a.hop {
		return
	}
	a.since = 0
	emit(a.window)
}

func bytesToFloat32Slice(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/4)
}
