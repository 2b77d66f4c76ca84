package detection

import "image"

// ringBuffer keeps the most recent frames in a fixed-capacity circular slice
type ringBuffer struct {
	frames []image.Image
	next   int
	size   int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{frames: make([]image.Image, capacity)}
}

// Push stores img, evicting the oldest frame once full
func (r *ringBuffer) Push(img image.Image) {
	r.frames[r.next] = img
	r.next = (r.next + 1) % len(r.frames)
	if r.size < len(r.frames) {
		r.size++
	}
}

// Back returns the frame pushed n pushes ago; Back(0) is the newest
func (r *ringBuffer) Back(n int) (image.Image, bool) {
	if n < 0 || n >= r.size {
		return nil, false
	}
	idx := (r.next - 1 - n + len(r.frames)) % len(r.frames)
	return r.frames[idx], true
}

// Len returns how many frames are held
func (r *ringBuffer) Len() int {
	return r.size
}

// Cap returns the fixed capacity
func (r *ringBuffer) Cap() int {
	return len(r.frames)
}
