package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewRequestID generates a KSUID string used to tag a single HTTP request.
func NewRequestID() string {
	return ksuid.New().String()
}

// NewID generates a snowflake ID for account and event rows. The node ID
// comes from SNOWFLAKE_NODE; node 1 is used when unset or unparseable so
// a bare dev environment still produces valid IDs.
func NewID() int64 {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
			if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			n, _ = snowflake.NewNode(1)
		}
		node = n
	})
	return node.Generate().Int64()
}
