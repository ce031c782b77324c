package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSink_AppendsToStream(t *testing.T) {
	srv := miniredis.RunT(t)

	ctx := context.Background()
	sink, err := OpenRedisSink(ctx, srv.Addr(), "rampart:decisions")
	if err != nil {
		t.Fatalf("OpenRedisSink: %v", err)
	}
	defer sink.Close()

	rec := testRecord("r1", 55)
	rec.Action = "warn"
	if err := sink.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := srv.Stream("rampart:decisions")
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d stream entries, want 1", len(entries))
	}

	values := map[string]string{}
	kv := entries[0].Values
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i]] = kv[i+1]
	}
	if values["record_id"] != "r1" {
		t.Errorf("record_id = %q, want r1", values["record_id"])
	}
	if values["action"] != "warn" {
		t.Errorf("action = %q, want warn", values["action"])
	}

	var stored Record
	if err := json.Unmarshal([]byte(values["payload"]), &stored); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if stored.Score != 55 {
		t.Errorf("stored score = %d, want 55", stored.Score)
	}
	if stored.Timestamp == "" {
		t.Error("stored record has empty timestamp")
	}
}

func TestOpenRedisSink_Unreachable(t *testing.T) {
	if _, err := OpenRedisSink(context.Background(), "127.0.0.1:1", "s"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
