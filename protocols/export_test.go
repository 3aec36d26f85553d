package protocols

// SetNextRequestID positions a generator just before the end of the id
// space.
func SetNextRequestID(g *RequestIDGenerator, next uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = next
}
