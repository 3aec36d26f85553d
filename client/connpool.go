package client

import (
	"context"
	"sync"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/statistics"
)

// ConnPool tracks the connections of a Transport per endpoint. Idle
// connections are handed out last in, first out. A caller that finds no
// idle connection either reserves a slot for a new one or waits until a
// connection is released, swept or closed.
type ConnPool struct {
	mutex sync.Mutex
	cond  *sync.Cond

	idle      map[connectKey][]*PersistConn
	allocated map[connectKey]int
	bidir     map[connectKey][]*PersistConn

	maxCountPerKey int
	closed         bool

	stats *statistics.ClientCollector
}

func newConnPool(maxCountPerKey int, stats *statistics.ClientCollector) (*ConnPool, error) {
	if maxCountPerKey < 1 {
		return nil, corba.NewBadParam(corba.MinorMaxConnections, corba.CompletedMaybe)
	}
	cp := &ConnPool{
		idle:           make(map[connectKey][]*PersistConn),
		allocated:      make(map[connectKey]int),
		bidir:          make(map[connectKey][]*PersistConn),
		maxCountPerKey: maxCountPerKey,
		stats:          stats,
	}
	cp.cond = sync.NewCond(&cp.mutex)
	return cp, nil
}

// Get returns a usable connection for key. A nil connection with a nil
// error means a slot was reserved and the caller must either Adopt a new
// connection or Unreserve the slot.
func (cp *ConnPool) Get(ctx context.Context, key connectKey) (*PersistConn, error) {
	stop := context.AfterFunc(ctx, func() {
		cp.mutex.Lock()
		defer cp.mutex.Unlock()
		cp.cond.Broadcast()
	})
	defer stop()

	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	for {
		if cp.closed {
			return nil, corba.ErrPoolClosed
		}
		if pConn := cp.bidirLocked(key); pConn != nil {
			pConn.accessed = true
			return pConn, nil
		}
		if pConn := cp.popIdleLocked(key); pConn != nil {
			pConn.accessed = true
			return pConn, nil
		}
		if cp.canInitiateLocked(key) {
			cp.allocated[key]++
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cp.cond.Wait()
	}
}

// Adopt counts a freshly dialed connection against its reserved slot.
func (cp *ConnPool) Adopt(pConn *PersistConn) {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	pConn.counted = true
	pConn.accessed = true
}

// Unreserve gives back a slot reserved by Get after a failed dial.
func (cp *ConnPool) Unreserve(key connectKey) {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	cp.decLocked(key)
	cp.cond.Broadcast()
}

// Put makes a connection available again. Closed connections are
// forgotten instead.
func (cp *ConnPool) Put(pConn *PersistConn) {
	cp.mutex.Lock()
	if pConn.bidir {
		cp.mutex.Unlock()
		return
	}
	if cp.closed || pConn.isClosed() {
		cp.forgetLocked(pConn)
		cp.cond.Broadcast()
		cp.mutex.Unlock()
		pConn.close(corba.ErrPoolClosed)
		return
	}
	defer cp.mutex.Unlock()

	cp.idle[pConn.key] = append(cp.idle[pConn.key], pConn)
	cp.stats.SetIdle(cp.idleCountLocked())
	cp.cond.Broadcast()
}

// Remove drops every reference to a closed connection.
func (cp *ConnPool) Remove(pConn *PersistConn) {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	cp.idle[pConn.key] = removeConn(cp.idle[pConn.key], pConn)
	if len(cp.idle[pConn.key]) == 0 {
		delete(cp.idle, pConn.key)
	}
	for key, list := range cp.bidir {
		if list = removeConn(list, pConn); len(list) > 0 {
			cp.bidir[key] = list
		} else {
			delete(cp.bidir, key)
		}
	}
	cp.forgetLocked(pConn)
	cp.stats.SetIdle(cp.idleCountLocked())
	cp.cond.Broadcast()
}

// Exist reports whether pConn is idle in the pool.
func (cp *ConnPool) Exist(pConn *PersistConn) bool {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	for _, conn := range cp.idle[pConn.key] {
		if conn == pConn {
			return true
		}
	}
	return false
}

// Sweep closes the idle connections not handed out since the previous
// sweep and clears the access mark of the others. It returns the number
// of connections closed.
func (cp *ConnPool) Sweep() int {
	var victims []*PersistConn

	cp.mutex.Lock()
	for key, list := range cp.idle {
		kept := list[:0]
		for _, pConn := range list {
			if pConn.accessed && !pConn.isClosed() {
				pConn.accessed = false
				kept = append(kept, pConn)
				continue
			}
			cp.forgetLocked(pConn)
			victims = append(victims, pConn)
		}
		if len(kept) > 0 {
			cp.idle[key] = kept
		} else {
			delete(cp.idle, key)
		}
	}
	cp.stats.SetIdle(cp.idleCountLocked())
	if len(victims) > 0 {
		cp.cond.Broadcast()
	}
	cp.mutex.Unlock()

	for _, pConn := range victims {
		pConn.close(corba.ErrConnIdleReaped)
	}
	if len(victims) > 0 {
		logger.Debugf("idle sweep closed %d connections", len(victims))
		cp.stats.AddReaped(len(victims))
	}
	return len(victims)
}

// RegisterBidir makes a connection accepted from a peer usable for calls
// to key. It reports false if the connection was already registered.
func (cp *ConnPool) RegisterBidir(key connectKey, pConn *PersistConn) bool {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	for _, conn := range cp.bidir[key] {
		if conn == pConn {
			return false
		}
	}
	cp.bidir[key] = append(cp.bidir[key], pConn)
	cp.cond.Broadcast()
	return true
}

// RemoveAllBidir forgets every bidirectional registration and returns how
// many were dropped. The connections stay open.
func (cp *ConnPool) RemoveAllBidir() int {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	n := 0
	for _, list := range cp.bidir {
		n += len(list)
	}
	cp.bidir = make(map[connectKey][]*PersistConn)
	return n
}

// CanInitiateNewConnection reports whether a new connection to key may
// be dialed: no bidirectional connection exists and the limit is not
// reached.
func (cp *ConnPool) CanInitiateNewConnection(key connectKey) bool {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	return cp.canInitiateLocked(key)
}

// CloseAll closes the idle connections and fails every later Get. Busy
// connections are closed when they are put back.
func (cp *ConnPool) CloseAll() {
	cp.mutex.Lock()
	cp.closed = true
	var victims []*PersistConn
	for _, list := range cp.idle {
		for _, pConn := range list {
			cp.forgetLocked(pConn)
			victims = append(victims, pConn)
		}
	}
	cp.idle = make(map[connectKey][]*PersistConn)
	cp.bidir = make(map[connectKey][]*PersistConn)
	cp.stats.SetIdle(0)
	cp.cond.Broadcast()
	cp.mutex.Unlock()

	for _, pConn := range victims {
		pConn.close(corba.ErrPoolClosed)
	}
}

func (cp *ConnPool) canInitiateLocked(key connectKey) bool {
	return len(cp.bidir[key]) == 0 && cp.allocated[key] < cp.maxCountPerKey
}

func (cp *ConnPool) bidirLocked(key connectKey) *PersistConn {
	list := cp.bidir[key]
	for len(list) > 0 {
		pConn := list[0]
		if !pConn.isClosed() {
			cp.bidir[key] = list
			return pConn
		}
		list = list[1:]
	}
	delete(cp.bidir, key)
	return nil
}

func (cp *ConnPool) popIdleLocked(key connectKey) *PersistConn {
	list := cp.idle[key]
	// last in, first out
	for len(list) > 0 {
		pConn := list[len(list)-1]
		list = list[:len(list)-1]
		if pConn.isClosed() {
			cp.forgetLocked(pConn)
			continue
		}
		if len(list) > 0 {
			cp.idle[key] = list
		} else {
			delete(cp.idle, key)
		}
		cp.stats.SetIdle(cp.idleCountLocked())
		return pConn
	}
	delete(cp.idle, key)
	return nil
}

func (cp *ConnPool) forgetLocked(pConn *PersistConn) {
	if !pConn.counted {
		return
	}
	pConn.counted = false
	cp.decLocked(pConn.key)
}

func (cp *ConnPool) decLocked(key connectKey) {
	if cp.allocated[key] <= 1 {
		delete(cp.allocated, key)
		return
	}
	cp.allocated[key]--
}

func (cp *ConnPool) idleCountLocked() int {
	n := 0
	for _, list := range cp.idle {
		n += len(list)
	}
	return n
}

func removeConn(list []*PersistConn, pConn *PersistConn) []*PersistConn {
	for k, conn := range list {
		if conn == pConn {
			copy(list[k:], list[k+1:])
			return list[:len(list)-1]
		}
	}
	return list
}
