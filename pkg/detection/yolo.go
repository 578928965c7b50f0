package detection

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// YOLODetector runs YOLOv8 object detection on JPEG frames.
type YOLODetector struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex
	inputSize image.Point
}

// YOLOConfig holds YOLO detector configuration.
type YOLOConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

// DefaultYOLOConfig returns production defaults for YOLOv8n.
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// NewYOLO creates a new YOLO object detector.
func NewYOLO(cfg YOLOConfig) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect finds objects in the JPEG image.
func (d *YOLODetector) Detect(jpeg []byte) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, imgW, imgH), nil
}

// parseOutput parses the YOLOv8 output tensor.
// Output shape: [1, 84, 8400] - 84 = 4 bbox + 80 classes.
func (d *YOLODetector) parseOutput(output gocv.Mat, imgW, imgH float32) []Detection {
	var detections []Detection
	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	rows := output.Cols() // 8400 candidates
	cols := output.Rows() // 84

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0

		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		// Center-format box, scaled to image pixels
		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * imgW / float32(d.config.InputWidth))
		y1 := int((cy - h/2) * imgH / float32(d.config.InputHeight))
		x2 := int((cx + w/2) * imgW / float32(d.config.InputWidth))
		y2 := int((cy + h/2) * imgH / float32(d.config.InputHeight))

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}

	if len(boxes) == 0 {
		return detections
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	now := time.Now()
	for _, idx := range indices {
		box := boxes[idx]
		detections = append(detections, Detection{
			ClassName:  COCOClasses[classIDs[idx]],
			X:          float64(box.Min.X) / float64(imgW),
			Y:          float64(box.Min.Y) / float64(imgH),
			W:          float64(box.Dx()) / float64(imgW),
			H:          float64(box.Dy()) / float64(imgH),
			Confidence: float64(confidences[idx]),
			Timestamp:  now,
		})
	}

	return detections
}

// Close releases the detector resources.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net.Close()
	return nil
}

// COCOClasses contains the 80 COCO class names.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// Verify YOLODetector implements Detector at compile time.
var _ Detector = (*YOLODetector)(nil)
