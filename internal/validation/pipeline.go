package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
)

// Rule выполняет одну проверку конвейера.
type Rule func() error

// Run выполняет проверки по порядку и возвращает первую ошибку.
func Run(rules ...Rule) error {
	for _, rule := range rules {
		if err := rule(); err != nil {
			return err
		}
	}
	return nil
}

// Money возвращает проверку точности денежного поля.
func Money(field string, value money.Money, precision int32) Rule {
	return func() error {
		return ValidateMoney(field, value, precision)
	}
}

// NonNegative возвращает проверку, что сумма не отрицательна.
func NonNegative(field string, value money.Money) Rule {
	return func() error {
		if value.IsNegative() {
			return model.NewValidationError(field, "must not be negative")
		}
		return nil
	}
}

// Positive возвращает проверку, что количество больше нуля.
func Positive(field string, value int64) Rule {
	return func() error {
		if value <= 0 {
			return model.NewValidationError(field, "must be positive")
		}
		return nil
	}
}

// Percentage возвращает проверку, что ставка лежит в диапазоне 0..100 включительно.
func Percentage(field string, value decimal.Decimal) Rule {
	return func() error {
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return model.NewValidationError(field, "must be between 0 and 100")
		}
		return nil
	}
}

// StrictlyPositive возвращает проверку, что десятичное значение больше нуля.
func StrictlyPositive(field string, value decimal.Decimal) Rule {
	return func() error {
		if !value.IsPositive() {
			return model.NewValidationError(field, "must be strictly positive")
		}
		return nil
	}
}

// Notes возвращает проверку типов примечаний: тип известен и не повторяется.
func Notes(field string, notes []model.Note) Rule {
	return func() error {
		seen := make(map[model.NoteType]bool, len(notes))
		for _, n := range notes {
			if !n.Type.IsValid() {
				return model.NewValidationError(field, "unknown note type %q", n.Type)
			}
			if seen[n.Type] {
				return model.NewValidationError(field, "duplicate note type %q", n.Type)
			}
			if strings.TrimSpace(n.Content) == "" {
				return model.NewValidationError(field, "note %q has no content", n.Type)
			}
			seen[n.Type] = true
		}
		return nil
	}
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct возвращает проверку структуры по тегам validate.
// Первое нарушение превращается в model.ValidationError.
func Struct(v any) Rule {
	return func() error {
		err := structValidator.Struct(v)
		if err == nil {
			return nil
		}

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return model.NewValidationError(fe.Field(), "failed %q constraint", fe.Tag())
		}
		return err
	}
}
