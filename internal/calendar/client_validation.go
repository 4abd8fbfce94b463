package calendar

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Leganyst/fitness-booking/internal/model"
)

var validate = newValidator()

// newValidator называет поля в отказах по json-тегу, если он есть.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Client: нормализованные данные клиента из запроса на бронь.
type Client struct {
	Name  string `validate:"required,min=2,max=100"`
	Email string `validate:"required,email,max=255"`
}

// ValidateClient:
//   - обрезает пробелы и приводит email к нижнему регистру;
//   - проверяет имя и формат адреса;
//   - возвращает нормализованный результат или отказ INVALID_ARGUMENT.
func ValidateClient(name, email string) (Client, *Rejection) {
	c := Client{
		Name:  strings.TrimSpace(name),
		Email: model.NormalizeEmail(email),
	}
	if err := validate.Struct(c); err != nil {
		return Client{}, validationRejection(err)
	}
	return c, nil
}

// ValidateEmail делает то же для одного адреса (поиск броней по email).
func ValidateEmail(email string) (string, *Rejection) {
	email = model.NormalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", Invalid("invalid email %q", email)
	}
	return email, nil
}

func validationRejection(err error) *Rejection {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return Invalid("field %s failed on %s", strings.ToLower(fe.Field()), fe.Tag())
	}
	return Invalid("%v", err)
}

// ValidateStruct проверяет теги validate у запроса транспорта.
func ValidateStruct(v any) *Rejection {
	if err := validate.Struct(v); err != nil {
		return validationRejection(err)
	}
	return nil
}
