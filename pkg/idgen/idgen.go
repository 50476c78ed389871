package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// Generator issues time-ordered int64 identifiers.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a snowflake generator for nodeID (0..1023).
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a new identifier.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}

// NewKSUID returns a globally unique, sortable string token.
func NewKSUID() string {
	return ksuid.New().String()
}
