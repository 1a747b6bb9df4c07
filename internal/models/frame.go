package models

import "time"

// Frame represents a raw BGR24 frame read from the camera
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       int64
	Timestamp time.Time
}

// Empty reports whether the frame carries no pixel data
func (f *Frame) Empty() bool {
	return f == nil || len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0
}
