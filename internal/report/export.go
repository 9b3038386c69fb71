package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rendis/yelptap/internal/engine/geo"
	"github.com/rendis/yelptap/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a -format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatGeoJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s (csv or geojson)", s)
}

// Ext is the file extension for f, with the dot.
func (f Format) Ext() string {
	if f == FormatGeoJSON {
		return ".geojson"
	}
	return ".csv"
}

// ContentType is the MIME type used when uploading f.
func (f Format) ContentType() string {
	if f == FormatGeoJSON {
		return "application/geo+json"
	}
	return "text/csv"
}

var csvHeader = []string{
	"name", "url", "count", "rating", "review_count", "price", "phone",
	"categories", "address", "lat", "lng", "yelp_id",
}

// WriteCSV writes one row per entry in the given order.
func WriteCSV(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		lat, lng := "", ""
		if e.HasCoords() {
			lat = strconv.FormatFloat(e.Lat, 'f', 6, 64)
			lng = strconv.FormatFloat(e.Lng, 'f', 6, 64)
		}
		err := cw.Write([]string{
			e.Name,
			e.URL,
			strconv.Itoa(e.Count),
			fmt.Sprintf("%.1f", e.Rating),
			strconv.Itoa(e.ReviewCount),
			e.Price,
			e.Phone,
			e.Categories,
			e.Address,
			lat,
			lng,
			e.ID,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGeoJSON writes located entries as a FeatureCollection.
func WriteGeoJSON(w io.Writer, entries []model.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(geo.FeatureCollection(entries))
}

// WriteFile writes entries to path in format f.
func WriteFile(path string, f Format, entries []model.Entry) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	switch f {
	case FormatGeoJSON:
		err = WriteGeoJSON(out, entries)
	default:
		err = WriteCSV(out, entries)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", f, err)
	}
	return out.Close()
}
