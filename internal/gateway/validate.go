package gateway

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"order-gateway/internal/types"
)

// Fields checked per operation, by struct field name.
var (
	placeFields  = []string{"Symbol", "Exchange", "Action", "Quantity"}
	smartFields  = []string{"Symbol", "Exchange", "PositionSize"}
	modifyFields = []string{"OrderID", "Symbol", "Exchange", "Quantity"}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates s, or only the named fields when any are given. Absent
// or zero values are reported as missing, anything else as invalid, by
// wire name.
func check(op string, s any, fields ...string) error {
	var err error
	if len(fields) > 0 {
		err = validate.StructPartial(s, fields...)
	} else {
		err = validate.Struct(s)
	}
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.InputError(op, err, err.Error())
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" || isZero(fe.Value()) {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	sort.Strings(missing)
	sort.Strings(invalid)
	if len(missing) > 0 {
		return types.InputError(op, types.ErrMissingField, "Missing mandatory field(s): "+strings.Join(missing, ", "))
	}
	return types.InputError(op, err, "Invalid value for field(s): "+strings.Join(invalid, ", "))
}

func isZero(v any) bool {
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || rv.IsZero()
}
