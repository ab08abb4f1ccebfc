package observe

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jspencer/fieldlink/internal/location"
	"github.com/jspencer/fieldlink/internal/session"
)

// registerRoutes sets up the observe API on the Gin router.
func registerRoutes(router *gin.Engine, sess Session, loc *location.Source) {
	router.GET("/api/status", handleStatus(sess))
	router.GET("/api/events", handleEvents(sess))

	router.POST("/api/online", handleSetOnline(sess, true))
	router.POST("/api/offline", handleSetOnline(sess, false))
	router.POST("/api/reconnect", handleReconnect(sess))
	router.POST("/api/location", handleLocation(loc))

	jobs := router.Group("/api/jobs/:id")
	jobs.POST("/accept", handleAccept(sess))
	jobs.POST("/reject", handleReject(sess))
	jobs.POST("/complete", handleComplete(sess))
	jobs.POST("/cancel", handleCancel(sess))
}

func handleStatus(sess Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, sess.Status())
	}
}

func handleSetOnline(sess Session, online bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sess.SetOnline(c.Request.Context(), online); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sess.Status())
	}
}

func handleReconnect(sess Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess.Reconnect()
		c.JSON(http.StatusOK, sess.Status())
	}
}

func handleLocation(loc *location.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		if loc == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "no location source"})
			return
		}
		var body struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		loc.Update(location.Position{Latitude: body.Latitude, Longitude: body.Longitude})
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleAccept(sess Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := jobIDParam(c)
		if !ok {
			return
		}
		if err := sess.AcceptJob(c.Request.Context(), jobID); err != nil {
			if errors.Is(err, session.ErrJobUnavailable) {
				c.JSON(http.StatusGone, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sess.Status())
	}
}

func handleReject(sess Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := jobIDParam(c)
		if !ok {
			return
		}
		sess.RejectJob(c.Request.Context(), jobID)
		c.JSON(http.StatusOK, sess.Status())
	}
}

func handleComplete(sess Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := jobIDParam(c)
		if !ok {
			return
		}
		var body struct {
			Price float64 `json:"price"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := sess.CompleteJob(c.Request.Context(), jobID, body.Price); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sess.Status())
	}
}

func handleCancel(sess Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := jobIDParam(c)
		if !ok {
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := sess.CancelJob(c.Request.Context(), jobID, body.Reason); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sess.Status())
	}
}

func jobIDParam(c *gin.Context) (int64, bool) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || jobID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return 0, false
	}
	return jobID, true
}
