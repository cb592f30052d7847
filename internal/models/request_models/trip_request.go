package request_models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

type TripRequest struct {
	Destination   string   `json:"destination" validate:"max=200"`
	StartDate     string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Budget        *float64 `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Currency      string   `json:"currency" validate:"omitempty,len=3"`
	Travelers     int      `json:"travelers" validate:"gte=1,lte=50"`
	Preferences   string   `json:"preferences" validate:"required,max=4000"`
	Accommodation string   `json:"accommodation"`
	// UserLocation is either "lat,lng" or a free-text place name.
	UserLocation string `json:"user_location"`
	Language     string `json:"language" validate:"omitempty,max=16"`
}

type UpdateTripRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

var validate = validator.New()

func (r *TripRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	start, okStart := r.Start()
	end, okEnd := r.End()
	if okStart && okEnd && end.Before(start) {
		return fmt.Errorf("end_date %s is before start_date %s", r.EndDate, r.StartDate)
	}
	return nil
}

func (r *UpdateTripRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message is required")
	}
	return validate.Struct(r)
}

func (r *TripRequest) Start() (time.Time, bool) {
	return parseDate(r.StartDate)
}

func (r *TripRequest) End() (time.Time, bool) {
	return parseDate(r.EndDate)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
