package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/litescript/ls-orbit/internal/ephem"
	"github.com/litescript/ls-orbit/internal/logging"
	"github.com/litescript/ls-orbit/internal/version"
)

// NotLoadedHint is returned when a query arrives before any data is loaded.
const NotLoadedHint = "Empty data; repost data using 'curl -X POST localhost:5000/post-data'"

// errFetch marks a failure to obtain the feed during /post-data.
var errFetch = errors.New("fetch feed")

// writeJSON encodes v fully before the status line is written; an
// unencodable value is answered with 500.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.FromContext(r.Context(), s.log).Error("%s %s: encode response: %v", r.Method, r.URL.Path, err)
		code = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))
}

func writeText(w http.ResponseWriter, code int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, s)
}

// statusFor maps an error to an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ephem.ErrNotLoaded):
		return http.StatusBadRequest, NotLoadedHint
	case errors.Is(err, ephem.ErrInvalidParameter), errors.Is(err, ephem.ErrOutOfRange):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ephem.ErrEpochNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ephem.ErrMalformedField), errors.Is(err, ephem.ErrMalformedEpoch):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, errFetch), errors.Is(err, ephem.ErrInvalidData):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	log := logging.FromContext(r.Context(), s.log)
	if code >= http.StatusInternalServerError {
		log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		log.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	s.writeJSON(w, r, code, map[string]string{"error": msg})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.Dataset()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleEpochs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit, err := ephem.ParseWindow(q.Get("offset"), q.Get("limit"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.tracker.Epochs(offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleStateVector(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.StateVector(r.PathValue("epoch"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.Speed(r.PathValue("epoch"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.Location(r.Context(), r.PathValue("epoch"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.Now(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.Comments()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.Header()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.Metadata()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handlePostData(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		s.fail(w, r, fmt.Errorf("%w: no loader configured", errFetch))
		return
	}
	res, err := s.loader.Load(r.Context())
	if err != nil {
		// A fetch failure leaves res.Error set; a load rejection does not.
		if res.Error != nil {
			err = fmt.Errorf("%w: %w", errFetch, err)
		}
		s.fail(w, r, err)
		return
	}
	writeText(w, http.StatusOK, "Data reloaded.\n")
}

func (s *Server) handleDeleteData(w http.ResponseWriter, r *http.Request) {
	s.tracker.Store().Clear()
	writeText(w, http.StatusOK, "Data deleted.\n")
}

type route struct {
	path string
	desc string
}

var routes = []route{
	{"/", "Return the entire data set"},
	{"/epochs", "Return list of all epochs in the data set"},
	{"/epochs?limit=int&offset=int", "Return modified list of epochs given query parameters"},
	{"/epochs/<epoch>", "Return state vectors for a specific epoch from the data set"},
	{"/epochs/<epoch>/speed", "Return instantaneous speed for a specific epoch in the data set"},
	{"/epochs/<epoch>/location", "Return latitude, longitude, altitude, and geoposition for a specific epoch"},
	{"/now", "Return latitude, longitude, altitude, and geoposition for the epoch nearest now"},
	{"/comment", "Return the comment list from the data set"},
	{"/header", "Return the header from the data set"},
	{"/metadata", "Return the metadata from the data set"},
	{"/help", "Return help text that briefly describes each route"},
	{"/delete-data", "Delete all data from the data set (DELETE)"},
	{"/post-data", "Reload the data set from the web (POST)"},
	{"/status", "Return load status and recent load events"},
	{"/healthz", "Liveness probe"},
	{"/readyz", "Readiness probe; 503 until data is loaded"},
	{"/metrics", "Prometheus metrics"},
}

// HelpText renders the route list.
func HelpText() string {
	text := fmt.Sprintf("ls-orbit %s\n\n", version.Version)
	for _, rt := range routes {
		text += fmt.Sprintf("[%s]  %s\n", rt.path, rt.desc)
	}
	return text
}

func handleHelp(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, HelpText())
}

// maxStatusEvents bounds the event list returned by /status.
const maxStatusEvents = 20

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	store := s.tracker.Store()
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"version": version.Version,
		"status":  store.Status(),
		"events":  store.RecentEvents(maxStatusEvents),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.Store().IsLoaded() {
		s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{"ready": false, "error": NotLoadedHint})
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"ready": true})
}
