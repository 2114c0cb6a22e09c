package logging

import (
	"os"
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. format is "json" or "text".
func Setup(level, format string) {
	log.SetOutput(os.Stdout)
	log.SetLevel(ParseLevel(level))

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}

	log.SetFormatter(&nested.Formatter{
		FieldsOrder:     []string{"module", "function"},
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		ShowFullLevel:   true,
	})
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
