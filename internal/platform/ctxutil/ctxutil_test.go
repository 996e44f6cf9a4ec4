package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRequestDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := UserID(ctx); got != uuid.Nil {
		t.Fatalf("UserID on empty ctx: want=nil got=%s", got)
	}
	id := uuid.New()
	ctx = WithRequestData(ctx, &RequestData{UserID: id})
	if got := UserID(ctx); got != id {
		t.Fatalf("UserID: want=%s got=%s", id, got)
	}
	ctx = WithTraceData(ctx, &TraceData{TraceID: "t-1", RequestID: "r-1"})
	if td := GetTraceData(ctx); td == nil || td.RequestID != "r-1" {
		t.Fatalf("GetTraceData: got=%v", td)
	}
}

func TestLogFields(t *testing.T) {
	if kv := LogFields(context.Background()); len(kv) != 0 {
		t.Fatalf("LogFields on empty ctx: got=%v", kv)
	}
	id := uuid.New()
	ctx := WithRequestData(context.Background(), &RequestData{UserID: id})
	ctx = WithTraceData(ctx, &TraceData{RequestID: "r-1"})
	kv := LogFields(ctx)
	want := []any{"request_id", "r-1", "user_id", id.String()}
	if len(kv) != len(want) {
		t.Fatalf("LogFields: want=%v got=%v", want, kv)
	}
	for i := range want {
		if kv[i] != want[i] {
			t.Fatalf("LogFields[%d]: want=%v got=%v", i, want[i], kv[i])
		}
	}
}
