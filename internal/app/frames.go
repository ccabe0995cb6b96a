package app

import (
	"log"
	"sync"

	"gocv.io/x/gocv"
)

// FrameFeed fans JPEG-encoded frames out to live viewers. Frames are only
// encoded while someone is subscribed, and slow viewers drop frames.
type FrameFeed struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewFrameFeed creates an empty FrameFeed.
func NewFrameFeed() *FrameFeed {
	return &FrameFeed{subs: make(map[chan []byte]struct{})}
}

// Subscribe returns a channel of JPEG frames and a function that ends the
// subscription and closes the channel.
func (f *FrameFeed) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			close(ch)
			f.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live viewers.
func (f *FrameFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Publish encodes frame and offers it to every subscriber.
func (f *FrameFeed) Publish(frame *gocv.Mat) {
	if f.Subscribers() == 0 || frame == nil || frame.Empty() {
		return
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	f.PublishJPEG(data)
}

// PublishJPEG offers already-encoded data to every subscriber.
func (f *FrameFeed) PublishJPEG(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- data:
		default:
		}
	}
}
