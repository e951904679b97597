package web

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gekko3d/balok"
)

// Server exposes the figure to browsers. It never touches the figure
// itself: reads come from the Hub's last frame, writes go through Queue.
type Server struct {
	Hub     *Hub
	Queue   *balok.InputQueue
	Assets  *balok.AssetServer
	Texture balok.AssetId

	// WebPath holds the data/ directory with the static client.
	WebPath   string
	AccessLog io.Writer
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/json/figure", s.HandlerJsonFigure).Methods(http.MethodGet)
	r.HandleFunc("/json/joints", s.HandlerJsonJoints).Methods(http.MethodGet)
	r.HandleFunc("/json/pose", s.HandlerJsonPose).Methods(http.MethodGet)
	r.HandleFunc("/action/pose", s.HandlerActionPose).Methods(http.MethodPost)
	r.HandleFunc("/texture", s.HandlerTexture).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.Hub.ServeWs)
	r.HandleFunc("/action/joint/{name}", s.HandlerActionJoint).Methods(http.MethodPost)
	r.HandleFunc("/action/spin/{mode}", s.HandlerActionSpin).Methods(http.MethodPost)
	r.HandleFunc("/action/reset", s.HandlerActionReset).Methods(http.MethodPost)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(s.WebPath, "data"))))

	out := s.AccessLog
	if out == nil {
		out = os.Stdout
	}
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.LoggingHandler(out, h)
}

// StartServer serves until ctx is done, then shuts down and drops every
// websocket client.
func StartServer(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Hub.Logger.Infof("[web] Starting server %v", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	s.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
