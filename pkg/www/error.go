package www

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cyclopcam/logs"
)

// HTTPError is an object that can be panic'ed, and the outer HTTP handler function
// will return the appropriate HTTP error message.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%v %v", e.Code, e.Message)
}

func Error(code int, message string) HTTPError {
	return HTTPError{code, message}
}

// PanicBadRequestf panics with a 400 Bad Request.
func PanicBadRequestf(format string, args ...interface{}) {
	panic(HTTPError{http.StatusBadRequest, fmt.Sprintf(format, args...)})
}

// PanicNotFound panics with a 404 Not Found.
func PanicNotFound() {
	panic(HTTPError{http.StatusNotFound, "Not Found"})
}

// PanicServerErrorf panics with a 500 Internal Server Error
func PanicServerErrorf(format string, args ...interface{}) {
	panic(HTTPError{http.StatusInternalServerError, fmt.Sprintf(format, args...)})
}

// Check causes a panic if err is not nil.
func Check(err error) {
	if err != nil {
		panic(err)
	}
}

// CheckLogged writes the error to the log, and then causes a panic, if err is not nil.
func CheckLogged(l logs.Log, err error) {
	if err != nil {
		if l != nil {
			l.Errorf("CheckLogged: %v", err)
		}
		panic(err)
	}
}

// Returns the named form value (typically query value), or panics if the item is empty or missing
func RequiredFormValue(r *http.Request, key string) string {
	v := r.FormValue(key)
	if v == "" {
		PanicBadRequestf("Must specify %v", key)
	}
	return v
}

// Returns the named form value as an int64, or panics if the item is empty, missing, or not parseable as an integer
func RequiredFormInt64(r *http.Request, key string) int64 {
	v := RequiredFormValue(r, key)
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		PanicBadRequestf("Must specify an integer for %v", key)
	}
	return i
}

// Returns the named form value as an int, or zero if the item is missing or not parseable as an integer
func FormInt(r *http.Request, key string) int {
	i, _ := strconv.ParseInt(r.FormValue(key), 10, 64)
	return int(i)
}

// ParseID parses a path parameter as an int64 ID, or panics with a 400.
func ParseID(v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		PanicBadRequestf("Invalid id '%v'", v)
	}
	return i
}
