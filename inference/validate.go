package inference

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"rent-estimator/models"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator. Field names in errors are the
// JSON names, and the "finite" tag rejects NaN and ±Inf floats.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			switch fl.Field().Kind() {
			case reflect.Float32, reflect.Float64:
				v := fl.Field().Float()
				return !math.IsNaN(v) && !math.IsInf(v, 0)
			default:
				return true
			}
		})
	})
	return validate
}

// Limits bounds what a prediction request and its result may contain.
type Limits struct {
	MaxSize float64 // square feet
	MaxRent float64
}

// DefaultLimits matches the ranges the service accepts out of the box.
func DefaultLimits() Limits {
	return Limits{MaxSize: 10000, MaxRent: 10_000_000}
}

// ValidateRequest checks req against the struct tags and lim. The first
// failing field is reported as a *models.ValidationError.
func ValidateRequest(req *models.PredictionRequest, lim Limits) error {
	if err := GetValidator().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return toValidationError(verrs[0])
		}
		return &models.ValidationError{Field: "request", Message: err.Error()}
	}
	if lim.MaxSize > 0 && req.Size > lim.MaxSize {
		return &models.ValidationError{
			Field:   "size",
			Message: fmt.Sprintf("must be at most %g", lim.MaxSize),
		}
	}
	return nil
}

func toValidationError(fe validator.FieldError) *models.ValidationError {
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "finite":
		msg = "must be a finite number"
	case "gt":
		msg = "must be greater than " + fe.Param()
	case "min":
		msg = "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			msg = "must be at most " + fe.Param() + " characters"
		} else {
			msg = "must be at most " + fe.Param()
		}
	case "oneof":
		msg = "must be one of " + strings.Join(strings.Fields(strings.ReplaceAll(fe.Param(), "'", "")), ", ")
	default:
		msg = "failed " + fe.Tag() + " validation"
	}
	return &models.ValidationError{Field: fe.Field(), Message: msg}
}

// ParseRequest builds a request from string form values, as submitted by a
// query string. Numeric fields must parse; a missing count means 0.
func ParseRequest(get func(string) string) (*models.PredictionRequest, error) {
	req := &models.PredictionRequest{
		City:             strings.TrimSpace(get("city")),
		FurnishingStatus: strings.TrimSpace(get("furnishing_status")),
		TenantPreferred:  strings.TrimSpace(get("tenant_preferred")),
		AreaType:         strings.TrimSpace(get("area_type")),
	}

	size := strings.TrimSpace(get("size"))
	if size == "" {
		return nil, &models.ValidationError{Field: "size", Message: "is required"}
	}
	v, err := strconv.ParseFloat(size, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: "size", Message: "must be a number"}
	}
	req.Size = v

	for _, f := range []struct {
		name string
		dst  *int
	}{{"bedrooms", &req.Bedrooms}, {"bathrooms", &req.Bathrooms}} {
		s := strings.TrimSpace(get(f.name))
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, &models.ValidationError{Field: f.name, Message: "must be a whole number"}
		}
		*f.dst = n
	}
	return req, nil
}
