package ws

// Gate caps concurrent connections of a process.
type Gate struct {
	slots chan struct{}
}

func NewGate(n int) *Gate {
	if n <= 0 {
		n = 1000
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire takes a slot without blocking.
func (g *Gate) Acquire() bool {
	select {
	case g.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}

func (g *Gate) InUse() int { return len(g.slots) }
