package www

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
)

// SendJSON encodes obj as JSON into the response.
func SendJSON(w http.ResponseWriter, obj any) {
	w.Header().Set("Content-Type", "application/json")
	Check(json.NewEncoder(w).Encode(obj))
}

// SendText sends a plain text response.
func SendText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(text))
}

// SendOK sends a "200 OK" text response.
func SendOK(w http.ResponseWriter) {
	SendText(w, "OK")
}

// ReadJSON decodes the request body (up to maxBodyBytes) into obj, or panics with a 400.
func ReadJSON(w http.ResponseWriter, r *http.Request, obj any, maxBodyBytes int64) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	Check(err)
	if err := json.Unmarshal(b, obj); err != nil {
		PanicBadRequestf("Invalid JSON: %v", err)
	}
}

// Handle wraps an httprouter handler so that a panic'ed HTTPError (or generic error)
// becomes the appropriate HTTP response instead of killing the process.
func Handle(log logs.Log, router *httprouter.Router, method, route string, handle httprouter.Handle) {
	wrapper := func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		defer func() {
			if rec := recover(); rec != nil {
				switch err := rec.(type) {
				case HTTPError:
					http.Error(w, err.Message, err.Code)
				case error:
					log.Errorf("%v %v: %v", method, route, err)
					http.Error(w, err.Error(), http.StatusInternalServerError)
				default:
					log.Errorf("%v %v: %v", method, route, rec)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}
		}()
		handle(w, r, params)
	}
	router.Handle(method, route, wrapper)
}
