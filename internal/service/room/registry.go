package room

import "sync"

// registry maps room codes to live rooms and participants to the room
// they belong to.
type registry struct {
	mu          sync.Mutex
	rooms       map[string]*actor
	memberships map[string]string
}

func newRegistry() *registry {
	return &registry{
		rooms:       make(map[string]*actor),
		memberships: make(map[string]string),
	}
}

func (r *registry) get(roomId string) (*actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rooms[roomId]
	return a, ok
}

// add registers a under roomId unless the code is already live.
func (r *registry) add(roomId string, a *actor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomId]; ok {
		return false
	}

	r.rooms[roomId] = a
	return true
}

func (r *registry) remove(roomId string) (*actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rooms[roomId]
	if !ok {
		return nil, false
	}

	delete(r.rooms, roomId)
	for memberId, id := range r.memberships {
		if id == roomId {
			delete(r.memberships, memberId)
		}
	}

	return a, true
}

func (r *registry) all() []*actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	actors := make([]*actor, 0, len(r.rooms))
	for _, a := range r.rooms {
		actors = append(actors, a)
	}

	return actors
}

func (r *registry) roomOf(memberId string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomId, ok := r.memberships[memberId]
	return roomId, ok
}

func (r *registry) updateMemberships(roomId string, added, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, memberId := range removed {
		if r.memberships[memberId] == roomId {
			delete(r.memberships, memberId)
		}
	}

	for _, memberId := range added {
		r.memberships[memberId] = roomId
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}
