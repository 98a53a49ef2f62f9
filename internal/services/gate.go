package services

import "sync/atomic"

// Gate is the shared online/offline flag. The host decides connectivity;
// the synchronizers only read it before touching the network.
type Gate struct{ online atomic.Bool }

func NewGate(online bool) *Gate {
	g := &Gate{}
	g.online.Store(online)
	return g
}

func (g *Gate) Online() bool { return g.online.Load() }

// Set stores the flag and reports whether it changed.
func (g *Gate) Set(online bool) bool { return g.online.Swap(online) != online }
