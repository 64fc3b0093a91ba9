package logger

import "go.uber.org/zap"

var global *zap.Logger = zap.NewNop()

// Init настраивает глобальный логгер: dev — консоль, prod — JSON.
func Init(isDev bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if isDev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	global = l
	return nil
}

func L() *zap.Logger { return global }

func Sync() { _ = global.Sync() }
