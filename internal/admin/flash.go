package admin

import (
	"github.com/gin-gonic/gin"
)

const (
	sessionName  = "catalog-admin"
	flashSuccess = "success"
	flashError   = "error"
)

// flash queues a message for the next page rendered for this browser.
func (s *Server) flash(c *gin.Context, kind, message string) {
	sess, err := s.sessions.Get(c.Request, sessionName)
	if err != nil {
		// A cookie that fails to decode still yields a fresh session.
		s.logger.Warn("decode session", "error", err)
	}
	if sess == nil {
		return
	}
	sess.AddFlash(message, kind)
	if err := sess.Save(c.Request, c.Writer); err != nil {
		s.logFailure(c, "save session", err)
	}
}

func (s *Server) takeFlashes(c *gin.Context) (success, errs []string) {
	sess, err := s.sessions.Get(c.Request, sessionName)
	if err != nil || sess == nil {
		return nil, nil
	}

	success = flashStrings(sess.Flashes(flashSuccess))
	errs = flashStrings(sess.Flashes(flashError))
	if len(success) == 0 && len(errs) == 0 {
		return nil, nil
	}

	if err := sess.Save(c.Request, c.Writer); err != nil {
		s.logFailure(c, "save session", err)
	}
	return success, errs
}

func flashStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if msg, ok := v.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}
