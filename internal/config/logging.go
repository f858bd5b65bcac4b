package config

import (
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// SetupLogging configures the package-level apex logger.
func SetupLogging(w io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	switch format {
	case "json":
		log.SetHandler(json.New(w))
	default:
		log.SetHandler(text.New(w))
	}
	return nil
}
