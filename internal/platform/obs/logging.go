package obs

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Configure sets the global logger level and format.
// Unknown levels fall back to info.
func Configure(level string, json bool) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)

	if json {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
