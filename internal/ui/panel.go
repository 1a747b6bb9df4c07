// Package ui is the desktop panel: four signal heads, the live annotated
// video with its vehicle count, and start/stop controls.
package ui

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"intersection-worker-go/internal/models"
)

// Controller is the scheduler surface the buttons drive
type Controller interface {
	Start() (bool, error)
	Stop()
	Snapshot() models.IntersectionSnapshot
}

var (
	lampOff    = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	lampColors = map[models.Color]color.NRGBA{
		models.ColorRed:    {R: 230, G: 30, B: 30, A: 255},
		models.ColorYellow: {R: 250, G: 200, B: 0, A: 255},
		models.ColorGreen:  {R: 30, G: 200, B: 60, A: 255},
	}
	lampOrder = [3]models.Color{models.ColorRed, models.ColorYellow, models.ColorGreen}
)

type headView struct {
	lamps     [3]*canvas.Circle
	countdown *canvas.Text
}

// Panel implements signal.Renderer and display.Surface. All widget updates
// are marshalled onto the fyne goroutine with fyne.Do.
type Panel struct {
	ctrl   Controller
	logger zerolog.Logger

	window fyne.Window
	heads  [models.HeadCount]headView
	video  *canvas.Image
	count  *widget.Label
	status *widget.Label
	start  *widget.Button
	stop   *widget.Button
}

func NewPanel(app fyne.App, ctrl Controller, logger zerolog.Logger) *Panel {
	p := &Panel{
		ctrl:   ctrl,
		logger: logger,
		window: app.NewWindow("Intersection"),
	}
	p.window.SetContent(p.build())
	p.window.Resize(fyne.NewSize(1100, 640))
	p.refreshControls(ctrl.Snapshot())
	return p
}

func (p *Panel) build() fyne.CanvasObject {
	headsRow := container.NewGridWithColumns(models.HeadCount)
	for i := range p.heads {
		headsRow.Add(p.buildHead(i))
	}

	p.video = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 640, 360)))
	p.video.FillMode = canvas.ImageFillContain
	p.video.SetMinSize(fyne.NewSize(640, 360))

	p.count = widget.NewLabel(countText(0))
	p.count.TextStyle = fyne.TextStyle{Bold: true}
	p.status = widget.NewLabel("stopped")

	p.start = widget.NewButton("Start", p.onStart)
	p.start.Importance = widget.HighImportance
	p.stop = widget.NewButton("Stop", p.onStop)

	controls := container.NewHBox(p.start, p.stop, layout.NewSpacer(), p.status, p.count)
	return container.NewBorder(headsRow, controls, nil, nil, p.video)
}

func (p *Panel) buildHead(index int) fyne.CanvasObject {
	v := &p.heads[index]
	lamps := container.NewVBox()
	for i := range v.lamps {
		c := canvas.NewCircle(lampOff)
		c.StrokeColor = color.Black
		c.StrokeWidth = 2
		v.lamps[i] = c
		lamps.Add(container.NewGridWrap(fyne.NewSize(36, 36), c))
	}
	v.lamps[0].FillColor = lampColors[models.ColorRed]

	v.countdown = canvas.NewText("", color.White)
	v.countdown.TextSize = 22
	v.countdown.Alignment = fyne.TextAlignCenter

	title := widget.NewLabelWithStyle(fmt.Sprintf("Head %d", index+1), fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	box := canvas.NewRectangle(color.NRGBA{R: 15, G: 15, B: 15, A: 255})
	body := container.NewVBox(container.NewCenter(lamps), v.countdown)
	return container.NewBorder(title, nil, nil, nil, container.NewStack(box, container.NewPadded(body)))
}

// RenderHead implements signal.Renderer
func (p *Panel) RenderHead(index int, state models.HeadState) {
	if index < 0 || index >= models.HeadCount {
		return
	}
	fyne.Do(func() {
		v := &p.heads[index]
		for i, c := range lampOrder {
			fill := lampOff
			if c == state.Color {
				fill = lampColors[c]
			}
			v.lamps[i].FillColor = fill
			v.lamps[i].Refresh()
		}
		v.countdown.Text = state.Countdown()
		v.countdown.Refresh()
	})
}

// PushFrame implements display.Surface
func (p *Panel) PushFrame(img *image.RGBA) {
	if img == nil {
		return
	}
	fyne.Do(func() {
		p.video.Image = img
		p.video.Refresh()
	})
}

// UpdateCount implements display.Surface
func (p *Panel) UpdateCount(count int) {
	fyne.Do(func() {
		p.count.SetText(countText(count))
	})
}

// Watch keeps the buttons and status line in step with scheduler events
// until ctx is done or the channel closes.
func (p *Panel) Watch(ctx context.Context, events <-chan models.IntersectionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			snap := evt.Snapshot
			fyne.Do(func() { p.refreshControls(snap) })
		}
	}
}

func (p *Panel) refreshControls(snap models.IntersectionSnapshot) {
	if snap.Running {
		p.start.Disable()
		p.stop.Enable()
	} else {
		p.start.Enable()
		p.stop.Disable()
	}
	p.status.SetText(statusText(snap))
}

// onStart runs off the fyne goroutine since Start waits for a stopping
// cycle to finish its pause.
func (p *Panel) onStart() {
	p.start.Disable()
	go func() {
		_, err := p.ctrl.Start()
		snap := p.ctrl.Snapshot()
		fyne.Do(func() {
			if err != nil {
				p.logger.Error().Err(err).Msg("Start from panel failed")
				p.refreshControls(snap)
				p.status.SetText("error: " + err.Error())
				return
			}
			p.refreshControls(snap)
		})
	}()
}

func (p *Panel) onStop() {
	p.ctrl.Stop()
	p.refreshControls(p.ctrl.Snapshot())
}

func (p *Panel) Window() fyne.Window {
	return p.window
}

// ShowAndRun blocks on the fyne event loop
func (p *Panel) ShowAndRun() {
	p.window.ShowAndRun()
}

func countText(n int) string {
	return fmt.Sprintf("Vehicles: %d", n)
}

func statusText(snap models.IntersectionSnapshot) string {
	s := "stopped"
	if snap.Running {
		s = fmt.Sprintf("running, head %d", snap.CurrentIndex+1)
	}
	if snap.Degraded {
		s += " (degraded: " + snap.DegradedReason + ")"
	}
	return s
}
