package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rendis/yelptap/internal/model"
)

func sampleEntries() []model.Entry {
	return []model.Entry{
		{Business: model.Business{Name: "Joe's, Pizza", URL: "https://www.yelp.com/biz/joes", Rating: 4.5, Lat: 42.36, Lng: -71.06}, Count: 3},
		{Business: model.Business{Name: "Nowhere Cafe", URL: "https://www.yelp.com/biz/nowhere"}, Count: 1},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleEntries()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[1][0] != "Joe's, Pizza" || rows[1][2] != "3" || rows[1][9] != "42.360000" {
		t.Errorf("row 1 = %q", rows[1])
	}
	if rows[2][9] != "" || rows[2][10] != "" {
		t.Errorf("row 2 coords = %q, %q", rows[2][9], rows[2][10])
	}
}

func TestWriteGeoJSONSkipsUnlocated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, sampleEntries()); err != nil {
		t.Fatalf("WriteGeoJSON: %v", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("got %s with %d features", fc.Type, len(fc.Features))
	}
	if fc.Features[0].Properties["count"] != float64(3) {
		t.Errorf("properties = %v", fc.Features[0].Properties)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteFile(path, FormatCSV, sampleEntries()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "name,url,count") {
		t.Errorf("file starts with %q", string(data[:20]))
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("geojson"); err != nil || f.Ext() != ".geojson" {
		t.Errorf("geojson = %v, %v", f, err)
	}
	if f, err := ParseFormat("csv"); err != nil || f.ContentType() != "text/csv" {
		t.Errorf("csv = %v, %v", f, err)
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("want error for xlsx")
	}
}

func TestTable(t *testing.T) {
	out := Table(sampleEntries(), model.ModeVariants)
	for _, want := range []string{"Name", "Variants", "Joe's, Pizza", "https://www.yelp.com/biz/nowhere"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if i, j := strings.Index(out, "Joe's"), strings.Index(out, "Nowhere"); i > j {
		t.Error("rows out of order")
	}
	if !strings.Contains(Table(nil, model.ModeReviews), "Review hits") {
		t.Error("reviews header missing")
	}
}

func TestUploadFile(t *testing.T) {
	endpoint := os.Getenv("YELPTAP_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("YELPTAP_TEST_S3_ENDPOINT not set")
	}
	u, err := NewUploader(endpoint, os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_SECRET_KEY"), "yelptap-test", "us-east-1", false)
	if err != nil {
		t.Fatalf("NewUploader: %v", err)
	}
	ctx := context.Background()
	if err := u.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}

	path := filepath.Join(t.TempDir(), "report.geojson")
	if err := WriteFile(path, FormatGeoJSON, sampleEntries()); err != nil {
		t.Fatal(err)
	}
	key, err := u.UploadFile(ctx, path, "runs/test")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if key != "runs/test/report.geojson" {
		t.Errorf("key = %q", key)
	}
}
