package web

import (
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// Gte accepts values greater than or equal to the bound.
func Gte(bound int64) ParamValidator {
	return newComparisonValidator(bound, func(argValue, closedValue int64) bool {
		return argValue >= closedValue
	})
}

// Lte accepts values less than or equal to the bound.
func Lte(bound int64) ParamValidator {
	return newComparisonValidator(bound, func(argValue, closedValue int64) bool {
		return argValue <= closedValue
	})
}

// QueryInt reads an optional integer query parameter. A missing or empty value yields def.
// A value that does not parse or fails any validator is answered with 400 and message.
func QueryInt(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string, def int32, message string, validators ...ParamValidator) (int32, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, message)
		return 0, false
	}
	for _, v := range validators {
		if !v(intValue) {
			RespondError(w, logger, http.StatusBadRequest, message)
			return 0, false
		}
	}
	return int32(intValue), true
}
