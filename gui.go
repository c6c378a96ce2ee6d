package main

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/bep/debounce"
	"github.com/spf13/cobra"

	"ukulele-tuner/pitch"
	"ukulele-tuner/tuner"
)

const (
	meterFullScaleCents = 50.0 // a wrong note pins the needle
	inTuneZoneCents     = 5.0
)

func init() {
	rootCmd.AddCommand(guiCmd)
}

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Opens the tuner window (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGUI()
	},
}

func runGUI() error {
	runtime.LockOSThread()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, err := initAudio()
	if err != nil {
		return fmt.Errorf("malgo init failed: %w", err)
	}
	defer freeAudio(ctx)
	defer closeChimes()

	a := app.NewWithID("ukulele-tuner")
	w := a.NewWindow("Ukulele Tuner")
	w.Resize(fyne.NewSize(320, 300))
	w.SetFixedSize(true)
	prefs := a.Preferences()

	if flagTuning == "" {
		if last := prefs.String("last_tuning"); slices.Contains(tuner.TuningNames(), last) {
			cfg.Tuning = last
		}
	}

	ui := newTunerUI(cfg)
	session, err := tuner.NewSession(cfg, pitch.Mapper{}, ui, newChime(flagChime, ctx, cfg.SampleRate))
	if err != nil {
		return err
	}

	devices, err := inputDevices(ctx)
	if err != nil {
		return fmt.Errorf("input devices: %w", err)
	}
	deviceNames := make([]string, len(devices))
	for i, d := range devices {
		deviceNames[i] = d.Name
	}

	runner := &audioRunner{}
	lastDevice := prefs.String("last_device")
	deviceSelect := widget.NewSelect(deviceNames, func(name string) {
		selected := findDeviceByName(devices, name)
		if selected == nil {
			_ = ui.status.Set("Device not found")
			return
		}
		prefs.SetString("last_device", name)
		_ = ui.status.Set("Starting mic...")
		runner.shutdown()
		stop, err := startStream(ctx, selected.Info, session)
		if err != nil {
			logger.Error("start stream", "device", name, "err", err)
			_ = ui.status.Set(fmt.Sprintf("Error: %v", err))
			return
		}
		_ = ui.status.Set(fmt.Sprintf("Listening on %s", selected.Name))
		runner.replace(stop)
	})
	deviceSelect.PlaceHolder = "Input device"

	tuningSelect := widget.NewSelect(tuner.TuningNames(), func(name string) {
		if err := session.SetTuning(name); err != nil {
			_ = ui.status.Set(err.Error())
			return
		}
		prefs.SetString("last_tuning", name)
		ui.setTuning(name)
	})
	tuningSelect.SetSelected(cfg.Tuning)

	if len(deviceNames) > 0 {
		if slices.Contains(deviceNames, lastDevice) {
			deviceSelect.SetSelected(lastDevice)
		} else {
			deviceSelect.SetSelected(deviceNames[0])
		}
	}

	w.SetContent(container.NewVBox(
		container.NewGridWithColumns(2, deviceSelect, tuningSelect),
		ui.content(),
	))

	// Stop audio cleanly on window close or Ctrl+C.
	w.SetCloseIntercept(func() {
		runner.shutdown()
		a.Quit()
	})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		runner.shutdown()
		w.Close()
	}()

	w.ShowAndRun()
	return nil
}

// tunerUI renders session states through fyne bindings.
type tunerUI struct {
	note   binding.String
	cents  binding.String
	hint   binding.String
	status binding.String
	names  [tuner.MaxStrings]binding.String
	fills  [tuner.MaxStrings]binding.Float

	noteLabel *canvas.Text
	meter     *CentsMeter
	debounced func(func())
}

func newTunerUI(cfg tuner.Config) *tunerUI {
	u := &tunerUI{
		note:      binding.NewString(),
		cents:     binding.NewString(),
		hint:      binding.NewString(),
		status:    binding.NewString(),
		noteLabel: canvas.NewText("--", theme.ForegroundColor()),
		meter:     NewCentsMeter(),
		debounced: debounce.New(cfg.AnimationDuration),
	}
	for i := range u.names {
		u.names[i] = binding.NewString()
		u.fills[i] = binding.NewFloat()
	}
	_ = u.note.Set("--")
	_ = u.status.Set("Select input device")
	u.noteLabel.Alignment = fyne.TextAlignCenter
	u.noteLabel.TextStyle = fyne.TextStyle{Bold: true}
	u.noteLabel.TextSize = 32.0
	u.note.AddListener(binding.NewDataListener(func() {
		val, _ := u.note.Get()
		u.noteLabel.Text = val
		u.noteLabel.Refresh()
	}))
	u.setTuning(cfg.Tuning)
	return u
}

func (u *tunerUI) content() fyne.CanvasObject {
	rows := container.NewVBox()
	for i := range u.names {
		rows.Add(container.NewBorder(nil, nil,
			widget.NewLabelWithData(u.names[i]), nil,
			widget.NewProgressBarWithData(u.fills[i])))
	}
	left := container.NewVBox(
		container.NewCenter(u.noteLabel),
		container.NewCenter(widget.NewLabelWithData(u.cents)),
		container.NewCenter(widget.NewLabelWithData(u.hint)),
	)
	return container.NewVBox(
		container.NewBorder(nil, nil, nil, container.NewCenter(u.meter), left),
		rows,
		widget.NewLabelWithData(u.status),
	)
}

// setTuning relabels the string rows. Unused rows are blanked.
func (u *tunerUI) setTuning(name string) {
	t, err := tuner.LookupTuning(name)
	if err != nil {
		return
	}
	for i := range u.names {
		label := ""
		if i < len(t.Notes) {
			label = t.Notes[i].String()
		}
		_ = u.names[i].Set(label)
		_ = u.fills[i].Set(0)
	}
}

func (u *tunerUI) Render(s tuner.UiState) {
	for i, v := range stringFills(s) {
		_ = u.fills[i].Set(v)
	}
	u.meter.SetState(s)
	switch s.Kind {
	case tuner.StateIdle:
		_ = u.note.Set("--")
		_ = u.cents.Set("Pluck a string")
		u.debounced(func() { _ = u.hint.Set("") })
	case tuner.StateLocked:
		_ = u.note.Set(s.Note.String())
		_ = u.cents.Set(fmt.Sprintf("%+.1f¢", s.Cents))
		hint := tuneHint(s)
		u.debounced(func() { _ = u.hint.Set(hint) })
	case tuner.StateStringTuned:
		_ = u.note.Set(s.Note.String())
		_ = u.cents.Set("Tuned")
		u.debounced(func() { _ = u.hint.Set("") })
	case tuner.StateAllTuned:
		_ = u.note.Set("✓")
		_ = u.cents.Set("All strings tuned")
		u.debounced(func() { _ = u.hint.Set("") })
	}
}

// tuneHint tells which way to turn the peg.
func tuneHint(s tuner.UiState) string {
	switch {
	case s.Close:
		return "In tune"
	case s.TooLow:
		return "Tune up"
	default:
		return "Tune down"
	}
}

// stringFills is the progress bar value of every string row: full when the
// string is marked, the running ratio for the locked string, empty otherwise.
func stringFills(s tuner.UiState) []float64 {
	out := make([]float64, len(s.Marked))
	for i, marked := range s.Marked {
		switch {
		case marked:
			out[i] = 1
		case i == s.String:
			out[i] = s.Ratio
		}
	}
	return out
}

// meterTone is the colour state of the cents meter.
type meterTone int

const (
	toneIdle meterTone = iota
	toneFlat
	toneSharp
	toneInTune
)

func meterToneOf(s tuner.UiState) meterTone {
	switch s.Kind {
	case tuner.StateStringTuned, tuner.StateAllTuned:
		return toneInTune
	case tuner.StateLocked:
		switch {
		case s.Close:
			return toneInTune
		case s.TooLow:
			return toneFlat
		default:
			return toneSharp
		}
	}
	return toneIdle
}

func (t meterTone) color() color.NRGBA {
	switch t {
	case toneFlat:
		return color.NRGBA{R: 60, G: 120, B: 220, A: 230}
	case toneSharp:
		return color.NRGBA{R: 220, G: 60, B: 60, A: 230}
	case toneInTune:
		return color.NRGBA{R: 60, G: 190, B: 90, A: 240}
	}
	return color.NRGBA{R: 160, G: 160, B: 160, A: 120}
}

// CentsMeter is a vertical gauge of the locked string's deviation. Sharp
// readings sit above the in-tune zone, flat ones below, and the zone fills
// as the string's progress ratio grows.
type CentsMeter struct {
	widget.BaseWidget
	cents float64
	ratio float64
	tone  meterTone
}

func NewCentsMeter() *CentsMeter {
	m := &CentsMeter{}
	m.ExtendBaseWidget(m)
	return m
}

func (m *CentsMeter) SetState(s tuner.UiState) {
	m.tone = meterToneOf(s)
	switch s.Kind {
	case tuner.StateLocked:
		m.cents = s.Cents
		if math.IsNaN(m.cents) {
			m.cents = 0
		}
		m.cents = math.Max(-meterFullScaleCents, math.Min(meterFullScaleCents, m.cents))
		m.ratio = s.Ratio
	case tuner.StateStringTuned, tuner.StateAllTuned:
		m.cents, m.ratio = 0, 1
	default:
		m.cents, m.ratio = 0, 0
	}
	m.Refresh()
}

// needleY is the needle's distance above the centre line for a track of half
// height half.
func needleY(cents float64, half float32) float32 {
	return float32(cents/meterFullScaleCents) * half
}

func (m *CentsMeter) CreateRenderer() fyne.WidgetRenderer {
	return &centsMeterRenderer{
		meter:  m,
		track:  canvas.NewRectangle(color.NRGBA{R: 160, G: 160, B: 160, A: 60}),
		zone:   canvas.NewRectangle(toneInTune.color()),
		needle: canvas.NewRectangle(toneIdle.color()),
	}
}

type centsMeterRenderer struct {
	meter  *CentsMeter
	track  *canvas.Rectangle
	zone   *canvas.Rectangle
	needle *canvas.Rectangle
}

func (r *centsMeterRenderer) Layout(size fyne.Size) {
	half := size.Height / 2
	r.track.Move(fyne.NewPos(0, 0))
	r.track.Resize(size)

	zoneHalf := needleY(inTuneZoneCents, half)
	r.zone.Move(fyne.NewPos(0, half-zoneHalf))
	r.zone.Resize(fyne.NewSize(size.Width, 2*zoneHalf))
	zc := toneInTune.color()
	zc.A = uint8(40 + 200*math.Min(r.meter.ratio, 1))
	r.zone.FillColor = zc
	r.zone.Refresh()

	y := half - needleY(r.meter.cents, half)
	r.needle.Move(fyne.NewPos(0, y-2))
	r.needle.Resize(fyne.NewSize(size.Width, 4))
	r.needle.FillColor = r.meter.tone.color()
	r.needle.Refresh()
}

func (r *centsMeterRenderer) MinSize() fyne.Size {
	return fyne.NewSize(28, 120)
}

func (r *centsMeterRenderer) Refresh() {
	r.Layout(r.meter.Size())
	canvas.Refresh(r.meter)
}

func (r *centsMeterRenderer) Destroy() {}

func (r *centsMeterRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.track, r.zone, r.needle}
}
