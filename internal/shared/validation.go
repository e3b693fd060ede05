package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/platform/httpx"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// MaxMoney is the exclusive upper bound of a NUMERIC(20,2) column.
var MaxMoney = decimal.New(1, 18)

// CheckMoney rejects amounts that a NUMERIC(20,2) column would round or
// overflow: negatives, fractions of a cent and magnitudes of MaxMoney or more.
func CheckMoney(d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", httpx.ErrValidation)
	case !d.Equal(d.Truncate(2)):
		return fmt.Errorf("%w: amount must not have more than 2 decimal places", httpx.ErrValidation)
	case d.Abs().GreaterThanOrEqual(MaxMoney):
		return fmt.Errorf("%w: amount must be less than %s", httpx.ErrValidation, MaxMoney.String())
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process-wide validator with the custom tags
// "money" (non-negative decimal string with at most 2 decimal places) and "date" (YYYY-MM-DD) registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
			return err == nil && CheckMoney(d) == nil
		})
		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(DateLayout, fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// ValidateStruct runs the validator and flattens failures to field messages.
// A nil map means the value is valid.
func ValidateStruct(v any) map[string]string {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"general": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

// ParseDate parses a YYYY-MM-DD string as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// Today truncates now to its UTC calendar date.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "money":
		return "must be a non-negative amount with at most 2 decimal places, below 1e18"
	case "date":
		return "must be a date in YYYY-MM-DD format"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
