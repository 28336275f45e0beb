package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const articlesJSON = `{"status":"ok","articles":[
	{"author":"Ada","title":"Compilers","source":{"name":"Wire"},"publishedAt":"2024-03-01T10:00:00Z"},
	{"author":"Ada","title":"Linkers","source":{"name":"Wire"},"publishedAt":"2024-03-02T10:00:00Z"},
	{"author":"Bob","title":"Gardens","type":"blog","source":{"name":"Home"},"publishedAt":"2024-03-02T12:00:00Z"}
]}`

// setupEnv points every command at a temp sqlite db and article fixture.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "articles.json")
	if err := os.WriteFile(fixture, []byte(articlesJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgFile := filepath.Join(dir, "config.yaml")
	cfg := "settings_backend: sqlite\n" +
		"sqlite_db_path: " + filepath.Join(dir, "payboard.db") + "\n" +
		"news_backend: memory\n" +
		"news_fixture_path: " + fixture + "\n"
	if err := os.WriteFile(cfgFile, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(configPathEnv, cfgFile)
	for _, k := range []string{"SETTINGS_BACKEND", "SQLITE_DB_PATH", "NEWS_BACKEND", "NEWS_FIXTURE_PATH",
		"AMQP_URL", "SHEETS_BACKEND", "GOOGLE_SPREADSHEET_ID", "PORT", "LOG_FORMAT", "TREND_TIMEZONE"} {
		t.Setenv(k, "")
	}
	return fixture
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagConfig, flagArticles, flagOut, flagQuery, flagFrom, flagTo = "", "", "", "", "", ""
	flagFormat, flagType = "text", "all"
	flagNewsRate, flagBlogRate = "", ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "payboard dev") {
		t.Fatalf("version output = %q", out)
	}
}

func TestReportFromArticlesFile(t *testing.T) {
	fixture := setupEnv(t)

	out, err := execute(t, "report", "--articles", fixture, "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	want := "Author,Articles,Payout\nAda,2,$20.00\nBob,1,$15.00\nTotal,3,$35.00\n"
	if out != want {
		t.Fatalf("report = %q, want %q", out, want)
	}
}

func TestReportFromSourceWithFilter(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "report", "--format", "csv", "--type", "blog")
	if err != nil {
		t.Fatal(err)
	}
	want := "Author,Articles,Payout\nBob,1,$15.00\nTotal,1,$15.00\n"
	if out != want {
		t.Fatalf("report = %q, want %q", out, want)
	}

	if _, err := execute(t, "report", "--type", "podcast"); err == nil {
		t.Fatal("expected an invalid type error")
	}
	if _, err := execute(t, "report", "--format", "xlsx"); err == nil {
		t.Fatal("expected an unknown format error")
	}
}

func TestReportWritesFile(t *testing.T) {
	fixture := setupEnv(t)
	dest := filepath.Join(t.TempDir(), "report.csv")

	out, err := execute(t, "report", "--articles", fixture, "--format", "csv", "-o", dest)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Fatalf("stdout should stay empty, got %q", out)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Author,Articles,Payout\n") {
		t.Fatalf("unexpected file content %q", data)
	}
}

func TestRatesPersistAcrossRuns(t *testing.T) {
	fixture := setupEnv(t)

	out, err := execute(t, "rates", "get")
	if err != nil {
		t.Fatal(err)
	}
	if out != "news\t$10.00\nblog\t$15.00\n" {
		t.Fatalf("default rates = %q", out)
	}

	if _, err := execute(t, "rates", "set", "--news", "$12.50"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "rates", "get")
	if err != nil {
		t.Fatal(err)
	}
	if out != "news\t$12.50\nblog\t$15.00\n" {
		t.Fatalf("rates after set = %q", out)
	}

	out, err = execute(t, "report", "--articles", fixture, "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Ada,2,$25.00") {
		t.Fatalf("report should use persisted rates: %q", out)
	}

	if _, err := execute(t, "rates", "set"); err == nil {
		t.Fatal("expected an error without flags")
	}
	if _, err := execute(t, "rates", "set", "--blog=-1"); err == nil {
		t.Fatal("expected a negative rate to be rejected")
	}
}
