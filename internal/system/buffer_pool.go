package system

import (
	"fmt"
	"image"
	"sync"
)

// GrayPool reuses *image.Gray buffers of the same size. Thresholding a page
// allocates one binary image per split, and pages of one CYOA share their
// dimensions, so buffers are keyed by size.
type GrayPool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

var globalGrayPool = NewGrayPool()

func NewGrayPool() *GrayPool {
	return &GrayPool{pools: make(map[string]*sync.Pool)}
}

// GetGray returns a width x height buffer anchored at the origin. Its
// contents are undefined.
func GetGray(width, height int) *image.Gray {
	return globalGrayPool.Get(width, height)
}

// PutGray hands a buffer obtained from GetGray back to the pool.
func PutGray(img *image.Gray) {
	globalGrayPool.Put(img)
}

func sizeKey(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

func (p *GrayPool) Get(width, height int) *image.Gray {
	key := sizeKey(width, height)
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewGray(image.Rect(0, 0, width, height))
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.Gray)
}

func (p *GrayPool) Put(img *image.Gray) {
	if img == nil {
		return
	}
	key := sizeKey(img.Rect.Dx(), img.Rect.Dy())
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
