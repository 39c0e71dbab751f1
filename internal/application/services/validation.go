package services

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/visit"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

var validate *validator.Validate

var validationMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"min":      "must be at least %s characters",
	"max":      "must be at most %s characters",
	"date_ymd": "must be a date in YYYY-MM-DD format",
	"role":     "must be admin or user",
}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	validate.RegisterValidation("date_ymd", validateDateYMD)
	validate.RegisterValidation("role", validateRole)
}

func validateDateYMD(fl validator.FieldLevel) bool {
	_, err := visit.ParseDateOfBirth(fl.Field().String())
	return err == nil
}

func validateRole(fl validator.FieldLevel) bool {
	_, ok := entities.ParseRole(fl.Field().String())
	return ok
}

// validateStruct runs struct tag validation and turns failures into a
// single ValidationError
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error())
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := validationMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}
		messages = append(messages, fe.Field()+" "+msg)
	}
	return apperrors.NewValidationError(strings.Join(messages, ", "))
}

// checkMaxLength rejects a value wider than its column
func checkMaxLength(field, value string, width int) error {
	limit := strconv.Itoa(width)
	if err := validate.Var(value, "max="+limit); err != nil {
		return apperrors.NewValidationError(field + " " + fmt.Sprintf(validationMessages["max"], limit))
	}
	return nil
}
