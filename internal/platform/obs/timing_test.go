package obs

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestTimeLogsFailureWithRequestID(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	ctx := WithRequestID(context.Background(), "req-1")
	err := errors.New("boom")
	Time(ctx, "matrix.build")(&err)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Level != log.WarnLevel {
		t.Fatalf("level = %v, want warn", entry.Level)
	}
	if entry.Data["req_id"] != "req-1" || entry.Data["op"] != "matrix.build" {
		t.Fatalf("unexpected fields: %v", entry.Data)
	}
}

func TestRequestIDMissing(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("RequestID = %q, want empty", got)
	}
}
