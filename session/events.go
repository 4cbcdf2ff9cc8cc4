package session

import "github.com/milk9111/tilecanvas/tilemap"

// Origin says where a tile change came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// TileEvent is one tile change as seen by subscribers. Tile is nil when the
// cell became empty.
type TileEvent struct {
	X      int           `json:"x"`
	Y      int           `json:"y"`
	Tile   *tilemap.Tile `json:"tile"`
	Origin Origin        `json:"-"`
	Author string        `json:"-"`
}

// Subscribe registers fn for every tile change. fn runs while the session
// lock is held and must not call back into the session. The returned func
// removes the subscription.
func (s *Session) Subscribe(fn func(TileEvent)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(origin Origin, author string, changes []tilemap.Change) {
	if len(changes) == 0 {
		return
	}
	s.subMu.Lock()
	subs := make([]func(TileEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	if len(subs) == 0 {
		return
	}
	for _, c := range changes {
		ev := TileEvent{X: c.X, Y: c.Y, Tile: tilemap.ClonePtr(c.New), Origin: origin, Author: author}
		for _, fn := range subs {
			fn(ev)
		}
	}
}
