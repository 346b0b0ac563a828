package tetherarm

import (
	"os"

	"github.com/sirupsen/logrus"
)

// defaultLogger builds a standalone logger for when Config.Logger is
// nil, with the same JSON formatting as Valkyrie/pkg/utils/logger.go's
// NewLogger, without exposing level/output knobs as a public,
// driver-level subsystem: a caller who wants those builds its own
// *logrus.Entry and passes it in.
func defaultLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	return logrus.NewEntry(l).WithField("component", "tetherarm")
}
