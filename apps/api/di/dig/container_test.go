package dig_container

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

func TestNew(t *testing.T) {
	c := New()

	var buf bytes.Buffer
	require.NoError(t, dig.Visualize(c, &buf))
	graph := buf.String()
	for _, typ := range []string{"*echoapi.Server", "*ticket.Service", "*question.Service", "*user.Service", "core.EmailService"} {
		assert.Contains(t, graph, typ)
	}
	assert.Contains(t, graph, "dbLogger")
}
