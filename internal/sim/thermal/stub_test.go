package thermal

import (
	"io"
	"log"
	"sync/atomic"
)

// stubWorld is an open-air box of height topY: everything inside is air
// unless a cell was planted, below y=0 is unknown (fail closed), above
// topY is open sky.
type stubWorld struct {
	id        string
	tick      uint64
	topY      int
	sky       bool
	cells     map[Vec3i]Content
	unknown   map[Vec3i]bool
	cellCalls atomic.Int64
}

func newStubWorld(id string) *stubWorld {
	return &stubWorld{
		id:      id,
		topY:    32,
		sky:     true,
		cells:   map[Vec3i]Content{},
		unknown: map[Vec3i]bool{},
	}
}

func (s *stubWorld) ID() string   { return s.id }
func (s *stubWorld) Tick() uint64 { return s.tick }
func (s *stubWorld) HasSky() bool { return s.sky }
func (s *stubWorld) TopY() int    { return s.topY }

func (s *stubWorld) Cell(p Vec3i) (Content, bool) {
	s.cellCalls.Add(1)
	if s.unknown[p] {
		return Content{}, false
	}
	if c, ok := s.cells[p]; ok {
		return c, true
	}
	if p.Y < 0 {
		return Content{}, false
	}
	return Content{Empty: true}, true
}

func (s *stubWorld) SkyVisible(p Vec3i) bool {
	for y := p.Y + 1; y < s.topY; y++ {
		q := Vec3i{X: p.X, Y: y, Z: p.Z}
		if s.unknown[q] {
			return false
		}
		if c, ok := s.cells[q]; ok && !c.Empty {
			return false
		}
	}
	return true
}

func (s *stubWorld) solid(p Vec3i, typ uint16) {
	s.cells[p] = Content{Type: typ, Solid: true}
}

func (s *stubWorld) door(p Vec3i, open bool) {
	s.cells[p] = Content{Type: 90, Solid: true, Passage: PassageDoor, Open: open}
}

func (s *stubWorld) clear(p Vec3i) {
	delete(s.cells, p)
}

func (s *stubWorld) advance(n uint64) {
	s.tick += n
}

// sealBox surrounds p with plain solid blocks on all six sides.
func (s *stubWorld) sealBox(p Vec3i) {
	for _, d := range dirs6 {
		s.solid(p.Add(d), 1)
	}
}

func testEngine() *Engine {
	return New(log.New(io.Discard, "", 0))
}
