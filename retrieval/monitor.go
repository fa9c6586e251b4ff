package retrieval

import "github.com/poiesic/utilidoc/core"

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during answering.
type Monitor interface {
	Start(query string)
	AfterQueryEmbedding(dim int)
	AfterIndexQuery(matches []*core.ChunkMatch)
	NoGrounding(query string)
	BeforeSynthesis(contextBlocks []string)
	Finish(answer *Answer)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                       {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)            {}
func (n *noopMonitor) AfterIndexQuery(_ []*core.ChunkMatch) {}
func (n *noopMonitor) NoGrounding(_ string)                 {}
func (n *noopMonitor) BeforeSynthesis(_ []string)           {}
func (n *noopMonitor) Finish(_ *Answer)                     {}
