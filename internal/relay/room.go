package relay

// Room groups connections subscribed to the same broadcast channel. Rooms are
// ephemeral: created on first subscribe, deleted when the last member leaves.
type Room struct {
	Name    string
	members map[string]*Conn
}

func newRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[string]*Conn),
	}
}

// add inserts a connection into the room. Returns true if newly added.
func (r *Room) add(c *Conn) bool {
	if _, exists := r.members[c.ID]; exists {
		return false
	}
	r.members[c.ID] = c
	return true
}

// remove deletes a connection from the room. Returns true if removed.
func (r *Room) remove(c *Conn) bool {
	if _, exists := r.members[c.ID]; !exists {
		return false
	}
	delete(r.members, c.ID)
	return true
}

// empty returns true if no connections remain in the room.
func (r *Room) empty() bool {
	return len(r.members) == 0
}
