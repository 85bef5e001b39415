package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/stratospay/delphi/pkg/agent/tool"
)

func TestAgentProgress(t *testing.T) {
	t.Run("tool updates reach the writer in order", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := agentProgress(context.Background(), &buf)

		tool.Update(ctx, "Searching knowledge base for: residual splits")
		tool.Update(ctx, "Looking up merchant: MID-1001")

		output := buf.String()
		first := strings.Index(output, "Searching knowledge base for: residual splits")
		second := strings.Index(output, "Looking up merchant: MID-1001")
		gt.Number(t, first).GreaterOrEqual(0)
		gt.Number(t, second).Greater(first)
	})

	t.Run("updates without the wiring are dropped", func(t *testing.T) {
		// Must not panic when no UpdateFunc is installed
		tool.Update(context.Background(), "ignored")
	})
}
