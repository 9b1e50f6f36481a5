package ctxmeta

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWithAndRead(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t1")
	ctx = WithUserUUID(ctx, "u1")
	ctx = WithClientIP(ctx, "10.0.0.1")

	assert.Equal(t, "t1", TraceID(ctx))
	assert.Equal(t, "u1", UserUUID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "", TraceID(nil))
	assert.Equal(t, "", ConnID(ctx))
	assert.Equal(t, "c1", ConnID(WithConnID(ctx, "c1")))
}

func TestReadFromGinContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(GinKeyTraceID, "t2")
	c.Set(GinKeyUserUUID, "u2")

	assert.Equal(t, "t2", TraceID(c))
	assert.Equal(t, "u2", UserUUID(c))
	assert.Equal(t, "t2", TraceIDFromGin(c))
}

func TestDetachKeepsValuesDropsCancel(t *testing.T) {
	parent, cancel := context.WithCancel(WithTraceID(context.Background(), "t3"))
	cancel()

	detached := Detach(parent)
	assert.NoError(t, detached.Err())
	assert.Equal(t, "t3", TraceID(detached))
}
