package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/types"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags on gin's validator.
// It is safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})

		if err := v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
			_, ok := database.ParseGenre(fl.Field().String())
			return ok
		}); err != nil {
			registerErr = err
			return
		}

		registerErr = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return database.ValidUsername(fl.Field().String())
		})
	})
	return registerErr
}

// BindJSON binds the request body and writes a validation error response
// on failure. It returns false when the handler should stop.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondWithError(c, BindingError(err))
		return false
	}
	return true
}

// BindQuery binds query parameters like BindJSON binds bodies
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		RespondWithError(c, BindingError(err))
		return false
	}
	return true
}

// BindingError turns a gin binding failure into a validation AppError with
// one message per offending field.
func BindingError(err error) *types.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewValidationError("invalid request body", err.Error())
	}

	appErr := types.NewValidationError("invalid request")
	for _, fe := range verrs {
		appErr.WithField(fe.Field(), fieldMessage(fe))
	}
	return appErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "genre":
		names := make([]string, len(database.Genres))
		for i, g := range database.Genres {
			names[i] = string(g)
		}
		return fmt.Sprintf("Must be one of %s.", strings.Join(names, ", "))
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed the %q check.", fe.Tag())
	}
}
