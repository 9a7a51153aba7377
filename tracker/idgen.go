package tracker

import (
	"fmt"
	"sync"
)

// DefaultLabelPrefix is prepended to the sequence number of every identity
// label
const DefaultLabelPrefix = "User"

// IDGenerator is a struct to hold a counter for generating the next incremental
// identity label.  The counter is never rewound so labels are unique for the
// life of the generator.
type IDGenerator struct {
	prefix string
	id     int64
	sync.Mutex
}

// NewIDGenerator returns a generator producing labels such as "User1", "User2"
func NewIDGenerator() *IDGenerator {
	return NewIDGeneratorWithPrefix(DefaultLabelPrefix)
}

// NewIDGeneratorWithPrefix returns a generator using the given label prefix
func NewIDGeneratorWithPrefix(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// GetNext returns the next identity label
func (g *IDGenerator) GetNext() string {
	g.Lock()
	g.id++
	label := fmt.Sprintf("%s%d", g.prefix, g.id)
	g.Unlock()

	return label
}

// Issued returns the number of labels handed out so far
func (g *IDGenerator) Issued() int64 {
	g.Lock()
	defer g.Unlock()
	return g.id
}
