package core

// Logger is any service that can report application events.
// expected args: error, map[string]interface{}, or any value the implementation knows how to tag.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
