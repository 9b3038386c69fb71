package yelp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rendis/yelptap/internal/model"
)

type searchResponse struct {
	Total      *int           `json:"total"`
	Businesses *[]apiBusiness `json:"businesses"`
	Error      *apiError      `json:"error"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type apiBusiness struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Price       string  `json:"price"`
	Phone       string  `json:"display_phone"`
	Categories  []struct {
		Alias string `json:"alias"`
		Title string `json:"title"`
	} `json:"categories"`
	Coordinates struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"coordinates"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Distance     float64  `json:"distance"`
	Transactions []string `json:"transactions"`
}

// Page is one decoded page of search results.
type Page struct {
	Total      int
	Businesses []model.Business
}

// decodePage interprets a search response. A structured error wins over the
// status code; a success body must carry both total and businesses.
func decodePage(status int, body []byte) (*Page, error) {
	var raw searchResponse
	jsonErr := json.Unmarshal(body, &raw)
	if jsonErr == nil && raw.Error != nil {
		return nil, &APIError{
			StatusCode:  status,
			Code:        raw.Error.Code,
			Description: raw.Error.Description,
		}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &TransportError{StatusCode: status}
	}
	if jsonErr != nil {
		return nil, &TransportError{StatusCode: status, Err: fmt.Errorf("decoding body: %w", jsonErr)}
	}
	if raw.Total == nil {
		return nil, &MissingFieldError{Field: "total"}
	}
	if raw.Businesses == nil {
		return nil, &MissingFieldError{Field: "businesses"}
	}

	page := &Page{
		Total:      *raw.Total,
		Businesses: make([]model.Business, 0, len(*raw.Businesses)),
	}
	for _, b := range *raw.Businesses {
		page.Businesses = append(page.Businesses, b.toModel())
	}
	return page, nil
}

func (b apiBusiness) toModel() model.Business {
	var cats []string
	for _, c := range b.Categories {
		if c.Title != "" {
			cats = append(cats, c.Title)
		}
	}

	out := model.Business{
		ID:           b.ID,
		Name:         b.Name,
		URL:          model.CanonicalURL(b.URL),
		Rating:       b.Rating,
		ReviewCount:  b.ReviewCount,
		Price:        b.Price,
		Phone:        b.Phone,
		Categories:   strings.Join(cats, ", "),
		Address:      strings.Join(b.Location.DisplayAddress, ", "),
		Distance:     b.Distance,
		Transactions: strings.Join(b.Transactions, ","),
	}
	if b.Coordinates.Latitude != nil && b.Coordinates.Longitude != nil {
		out.Lat = *b.Coordinates.Latitude
		out.Lng = *b.Coordinates.Longitude
	}
	return out
}
