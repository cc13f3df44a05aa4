package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return conn
}

func TestRun_appliesEmbeddedMigrations(t *testing.T) {
	conn := openMemDB(t)
	ctx := context.Background()

	if err := Run(ctx, conn, "sqlite3"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Errorf("applied migrations = %d; want 2", n)
	}

	if _, err := conn.Exec(`INSERT INTO station_status (station_id, ebike) VALUES (429, 3)`); err != nil {
		t.Fatalf("station_status not usable: %v", err)
	}
}

func TestRun_isIdempotent(t *testing.T) {
	conn := openMemDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := Run(ctx, conn, "sqlite3"); err != nil {
			t.Fatalf("Run #%d: %v", i+1, err)
		}
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Errorf("applied migrations = %d; want 2 after second run", n)
	}
}

func TestRun_ordersByVersionAndSkipsUnknownFiles(t *testing.T) {
	conn := openMemDB(t)
	fsys := fstest.MapFS{
		"sql/0002_add.sql":  {Data: []byte("INSERT INTO t (id) VALUES (1);")},
		"sql/0001_init.sql": {Data: []byte("-- table\nCREATE TABLE t (id INTEGER);")},
		"sql/readme.txt":    {Data: []byte("ignored")},
	}

	if err := run(context.Background(), conn, "sqlite3", fsys); err != nil {
		t.Fatalf("run: %v", err)
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count t: %v", err)
	}
	if n != 1 {
		t.Errorf("rows in t = %d; want 1", n)
	}
}

func TestRun_failedMigrationIsNotRecorded(t *testing.T) {
	conn := openMemDB(t)
	fsys := fstest.MapFS{
		"sql/0001_broken.sql": {Data: []byte("CREATE TABLE ( ;")},
	}

	if err := run(context.Background(), conn, "sqlite3", fsys); err == nil {
		t.Fatal("run() = nil; want error for broken migration")
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 0 {
		t.Errorf("recorded migrations = %d; want 0", n)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{in: "0001_station_status.sql", wantVersion: "0001", wantName: "station_status", wantOK: true},
		{in: "1_short.sql", wantOK: false},
		{in: "0003_no_ext", wantOK: false},
	}
	for _, tt := range tests {
		v, n, ok := parseMigrationFilename(tt.in)
		if ok != tt.wantOK || v != tt.wantVersion || n != tt.wantName {
			t.Errorf("parseMigrationFilename(%q) = %q, %q, %v; want %q, %q, %v", tt.in, v, n, ok, tt.wantVersion, tt.wantName, tt.wantOK)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- header\nCREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	if len(got) != 2 {
		t.Fatalf("splitStatements() = %d statements; want 2: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x INT)" {
		t.Errorf("first = %q", got[0])
	}
}
