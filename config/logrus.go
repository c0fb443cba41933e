package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ServiceName tags every log line and the tracer.
const ServiceName = "gem-ledger"

var (
	appLogger *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return appLogger
}

// serviceHook stamps the service and deployment onto every entry.
type serviceHook struct {
	env string
}

func (serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = ServiceName
	if h.env != "" {
		entry.Data["env"] = h.env
	}
	return nil
}

func init() {
	appLogger = newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("GO_ENV"))
}

// newLogger defaults to JSON at error level. LOG_FORMAT=text is for local runs.
func newLogger(level, format, env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	l.SetLevel(logrus.ErrorLevel)
	if lvl, err := logrus.ParseLevel(strings.TrimSpace(level)); err == nil {
		l.SetLevel(lvl)
	}
	l.AddHook(serviceHook{env: strings.TrimSpace(env)})
	return l
}

// LogError logs err with where it happened. data is omitted when nil.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
