package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()
	logger := NewRollbarLogger(log.New(&buf, "", 0), conf)

	logger.Info("ticket created", map[string]interface{}{"type": "BULLYING", "protocol": "20240315-ABC123"})
	assert.Equal(t, "INFO: ticket created protocol=20240315-ABC123 type=BULLYING\n", buf.String())

	buf.Reset()
	logger.Warn("login failed", user.User{ID: "u1"}, errors.New("bad password"))
	assert.Equal(t, "WARN: login failed user=u1\nbad password\n", buf.String())

	buf.Reset()
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.debug = true
	logger.Debug("shown")
	assert.Equal(t, "DEBUG: shown\n", buf.String())
}
