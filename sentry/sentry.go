package sentry

import (
	"os"
	"time"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"songbird/sentryhelper"
)

// Init configures the global Sentry client. With an empty dsn the SDK stays
// a no-op, which is what tests and local runs want.
func Init(dsn string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          os.Getenv("RELEASE"),
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return err
	}
	if dsn == "" {
		log.WithFields(log.Fields{"module": "sentry"}).Debug("SENTRY_DSN not set, error reporting disabled")
	}
	return nil
}

func Flush() {
	sentry.Flush(2 * time.Second)
}

func GetSentryGin() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// BindHub puts the per-request hub created by the sentrygin middleware into
// the request context, where sentryhelper looks for it. It must run after
// GetSentryGin.
func BindHub() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			c.Request = c.Request.WithContext(sentryhelper.WithHub(c.Request.Context(), hub))
		}
		c.Next()
	}
}
