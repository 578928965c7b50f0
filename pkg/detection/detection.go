// Package detection provides object detection over camera frames.
package detection

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Detection represents a detected object in a frame.
// Coordinates are normalized to the frame (0-1).
type Detection struct {
	ClassName  string
	X, Y       float64 // Top-left corner
	W, H       float64 // Width and height
	Confidence float64
	Timestamp  time.Time
}

// Center returns the center point of the bounding box.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// FrameFraction returns how much of the frame the object spans along
// its larger dimension. This is the proximity heuristic input: a value
// near 1 means the object fills the frame.
func (d Detection) FrameFraction() float64 {
	if d.W > d.H {
		return d.W
	}
	return d.H
}

// Detector is the interface for object detection backends.
type Detector interface {
	// Detect finds objects in the JPEG image.
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources.
	Close() error
}

// ClassFilter restricts detections to the classes the user cares about.
// The class list is a newline-delimited file, one class name per line.
type ClassFilter struct {
	classes map[string]bool
}

// LoadClasses reads the relevant-classes file. A missing or empty file
// is an error: the pipeline refuses to start without a class list.
func LoadClasses(path string) (*ClassFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class list: %w", err)
	}
	defer f.Close()

	classes := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		classes[name] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class list: %w", err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("class list %s is empty", path)
	}

	return &ClassFilter{classes: classes}, nil
}

// Relevant returns true if the class should be classified and announced.
func (f *ClassFilter) Relevant(className string) bool {
	return f.classes[className]
}

// Filter returns only the detections whose class is relevant.
func (f *ClassFilter) Filter(dets []Detection) []Detection {
	var out []Detection
	for _, d := range dets {
		if f.Relevant(d.ClassName) {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of relevant classes.
func (f *ClassFilter) Len() int {
	return len(f.classes)
}
