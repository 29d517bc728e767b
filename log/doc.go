// Package log provides the leveled logging interface used across the critiq
// agent runtime.
//
// Components never log through a package-level global; a Logger is injected at
// construction time so tests can substitute a silent or recording logger.
//
// Two implementations ship with the package:
//
//   - DefaultLogger, backed by the standard library log package
//   - GologLogger, a thin wrapper around github.com/kataras/golog
//
//	glogger := golog.New()
//	glogger.SetPrefix("[critiq] ")
//	logger := log.NewGologLogger(glogger)
//	logger.SetLevel(log.LevelDebug)
//
// Anything implementing Logger can be plugged in instead.
package log
