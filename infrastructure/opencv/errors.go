// Package opencv decodes and encodes video through GoCV.
package opencv

import "errors"

// ErrUnavailable is returned when the binary was built without OpenCV support
var ErrUnavailable = errors.New("opencv backend not available: build with '-tags=detection' and install OpenCV/GoCV")
