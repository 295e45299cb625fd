package session

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextKey = "jobboard.session"

// Middleware loads the visitor's state before the handler runs and writes it
// back, if it changed, just before the response headers go out.
func Middleware(store Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := store.Load(c.Request)
		if err != nil {
			logger.Warn("discarding unreadable session", zap.Error(err))
			st = New()
			st.touch()
		}
		c.Set(contextKey, st)

		w := &persistingWriter{ResponseWriter: c.Writer}
		w.persist = func() {
			if !st.Dirty() {
				return
			}
			if err := store.Save(w.ResponseWriter, c.Request, st); err != nil {
				logger.Error("session save failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
				return
			}
			st.dirty = false
		}
		c.Writer = w

		c.Next()

		if st.Dirty() && !w.Written() {
			w.persist()
		} else if st.Dirty() {
			logger.Warn("session changed after response was written", zap.String("path", c.Request.URL.Path))
		}
	}
}

// FromContext returns the state loaded by Middleware. Without the middleware
// a throwaway default state is returned.
func FromContext(c *gin.Context) *State {
	if v, ok := c.Get(contextKey); ok {
		if st, ok := v.(*State); ok {
			return st
		}
	}
	return New()
}

// persistingWriter flushes the session into the headers before the status
// line is committed, the last moment a Set-Cookie can still be added.
type persistingWriter struct {
	gin.ResponseWriter
	persist func()
	done    bool
}

func (w *persistingWriter) flush() {
	if w.done {
		return
	}
	w.done = true
	w.persist()
}

func (w *persistingWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *persistingWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *persistingWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *persistingWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}
