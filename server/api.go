package server

import (
	"net/http"
	"os"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/vigilcam/vigil/pkg/gen"
	"github.com/vigilcam/vigil/pkg/www"
	"github.com/vigilcam/vigil/server/configdb"
	"github.com/vigilcam/vigil/server/monitor"
)

func (s *Server) setupRouter() *httprouter.Router {
	router := httprouter.New()
	www.Handle(s.Log, router, "GET", "/api/ping", s.httpPing)
	www.Handle(s.Log, router, "GET", "/api/status", s.httpStatus)
	www.Handle(s.Log, router, "GET", "/api/sources", s.httpSourcesList)
	www.Handle(s.Log, router, "POST", "/api/sources", s.httpSourcesAdd)
	www.Handle(s.Log, router, "DELETE", "/api/sources/:id", s.httpSourcesDelete)
	www.Handle(s.Log, router, "POST", "/api/playback", s.httpPlaybackStart)
	www.Handle(s.Log, router, "POST", "/api/playback/:id/stop", s.httpPlaybackStop)
	www.Handle(s.Log, router, "GET", "/api/history", s.httpHistory)
	www.Handle(s.Log, router, "GET", "/api/ws", s.httpWebSocket)
	return router
}

type pingJSON struct {
	Greeting string `json:"greeting"`
	Hostname string `json:"hostname"`
	Time     int64  `json:"time"`
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	hostname, _ := os.Hostname()
	www.SendJSON(w, &pingJSON{
		Greeting: "I am Vigil",
		Hostname: hostname,
		Time:     time.Now().Unix(),
	})
}

// statusJSON is what the dashboard polls: one entry per running source,
// plus whether we're running without models.
type statusJSON struct {
	Degraded bool                  `json:"degraded"`
	Sources  []monitor.SourceState `json:"sources"`
}

func (s *Server) httpStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, &statusJSON{
		Degraded: s.degraded,
		Sources:  s.monitor.SourceStates(),
	})
}

func (s *Server) httpSourcesList(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sources, err := s.configDB.ListSources()
	www.Check(err)
	www.SendJSON(w, sources)
}

func (s *Server) httpSourcesAdd(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	src := configdb.VideoSource{}
	www.ReadJSON(w, r, &src, 1024*1024)
	if src.Kind != configdb.SourceKindCamera && src.Kind != configdb.SourceKindFile {
		www.PanicBadRequestf("Invalid source kind '%v'", src.Kind)
	}
	www.Check(s.configDB.AddSource(&src))
	www.SendJSON(w, &src)
}

func (s *Server) httpSourcesDelete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("id"))
	www.Check(s.configDB.DeleteSource(id))
	www.SendOK(w)
}

type playbackStartJSON struct {
	Path string `json:"path"`
}

func (s *Server) httpPlaybackStart(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := playbackStartJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if req.Path == "" {
		www.PanicBadRequestf("Must specify path")
	}
	id, err := s.StartFilePlayback(req.Path)
	if err != nil {
		www.PanicBadRequestf("Failed to start playback: %v", err)
	}
	www.SendJSON(w, map[string]int64{"id": id})
}

func (s *Server) httpPlaybackStop(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("id"))
	if !s.monitor.StopSource(id) {
		www.PanicNotFound()
	}
	www.SendOK(w)
}

func (s *Server) httpHistory(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	limit := www.FormInt(r, "limit")
	if limit <= 0 {
		limit = 50
	}
	limit = gen.Clamp(limit, 1, 1000)
	summaries, err := s.configDB.RecentRunSummaries(limit)
	www.Check(err)
	www.SendJSON(w, summaries)
}
