package logger

import (
	"go.uber.org/zap"
)

func Init(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
