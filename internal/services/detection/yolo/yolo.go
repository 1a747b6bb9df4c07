// Package yolo runs a Darknet YOLO network in-process through the OpenCV DNN module.
package yolo

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/detection"
)

type Options struct {
	ConfigPath     string
	WeightsPath    string
	NamesPath      string
	InputSize      int
	ScoreThreshold float32
	NMSThreshold   float32
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ConfigPath:     cfg.YOLOConfigPath,
		WeightsPath:    cfg.YOLOWeightsPath,
		NamesPath:      cfg.YOLONamesPath,
		InputSize:      cfg.YOLOInputSize,
		ScoreThreshold: float32(cfg.YOLOScoreThreshold),
		NMSThreshold:   float32(cfg.YOLONMSThreshold),
	}
}

// Detector owns a gocv.Net. OpenCV networks are not safe for concurrent
// Forward calls, so every inference holds mu.
type Detector struct {
	opts   Options
	logger zerolog.Logger

	mu           sync.Mutex
	net          gocv.Net
	outputLayers []string
	labels       []string
	closed       bool
}

// New loads the network and class names. A missing model is a startup error.
func New(opts Options, logger zerolog.Logger) (*Detector, error) {
	if opts.InputSize <= 0 {
		opts.InputSize = 416
	}

	labels, err := detection.LoadLabels(opts.NamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(opts.WeightsPath, opts.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO network from %s / %s", opts.ConfigPath, opts.WeightsPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		logger.Warn().Err(err).Msg("Failed to set DNN backend, using OpenCV default")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		logger.Warn().Err(err).Msg("Failed to set DNN target, using OpenCV default")
	}

	names := net.GetLayerNames()
	var outputs []string
	for _, idx := range net.GetUnconnectedOutLayers() {
		// layer ids are 1-based
		if idx-1 >= 0 && idx-1 < len(names) {
			outputs = append(outputs, names[idx-1])
		}
	}
	if len(outputs) == 0 {
		net.Close()
		return nil, fmt.Errorf("YOLO network has no output layers")
	}

	logger.Info().
		Str("config", opts.ConfigPath).
		Str("weights", opts.WeightsPath).
		Int("classes", len(labels)).
		Strs("output_layers", outputs).
		Int("input_size", opts.InputSize).
		Msg("YOLO network loaded")

	return &Detector{
		opts:         opts,
		logger:       logger,
		net:          net,
		outputLayers: outputs,
		labels:       labels,
	}, nil
}

func (d *Detector) Labels() []string {
	return d.labels
}

// Detect runs one forward pass and returns NMS-filtered detections in frame pixels
func (d *Detector) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("yolo: empty frame")
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("yolo: frame to mat: %w", err)
	}
	defer mat.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("yolo: %w", detection.ErrDetectorUnavailable)
	}

	size := image.Pt(d.opts.InputSize, d.opts.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outputs := d.net.ForwardLayers(d.outputLayers)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)
	for _, out := range outputs {
		for row := 0; row < out.Rows(); row++ {
			b, score, classID, ok := d.decodeRow(out, row, frame.Width, frame.Height)
			if !ok {
				continue
			}
			boxes = append(boxes, image.Rect(b[0], b[1], b[2], b[3]))
			scores = append(scores, score)
			classes = append(classes, classID)
		}
	}

	if len(boxes) == 0 {
		return []models.Detection{}, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, d.opts.ScoreThreshold, d.opts.NMSThreshold)
	dets := make([]models.Detection, 0, len(keep))
	for _, i := range keep {
		r := boxes[i]
		dets = append(dets, models.Detection{
			Label:   detection.LabelFor(d.labels, classes[i]),
			ClassID: classes[i],
			Score:   scores[i],
			BBox:    [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y},
		})
	}

	d.logger.Debug().Int64("frame_seq", frame.Seq).Int("candidates", len(boxes)).Int("detections", len(dets)).Msg("YOLO inference done")
	return dets, nil
}

// decodeRow reads one [cx, cy, w, h, objectness, class scores...] row
func (d *Detector) decodeRow(out gocv.Mat, row, width, height int) ([4]int, float32, int, bool) {
	if out.Cols() <= 5 {
		return [4]int{}, 0, 0, false
	}

	scores := out.Region(image.Rect(5, row, out.Cols(), row+1))
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(scores)
	scores.Close()

	if maxVal < d.opts.ScoreThreshold {
		return [4]int{}, 0, 0, false
	}

	box := detection.CenterBox(
		out.GetFloatAt(row, 0),
		out.GetFloatAt(row, 1),
		out.GetFloatAt(row, 2),
		out.GetFloatAt(row, 3),
		width, height,
	)
	return box, maxVal, maxLoc.X, true
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
