// Package logger provides the standard logging setup for mvdb, built on zap.
package logger

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`
	// Format is the output format ("json" or "console").
	Format string `yaml:"format"`
	// OutputFile is the file to write logs to; "stdout" or "stderr" log
	// to the console.
	OutputFile string `yaml:"output_file"`
}

// New creates a zap.Logger from the configuration. expected to be called
// once when the engine is opened.
func New(config Config) (*zap.Logger, error) {
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(config.Level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	ws, err := getWriteSyncer(config.OutputFile)
	if err != nil {
		return nil, errors.Wrap(err, "getWriteSyncer failed")
	}

	core := zapcore.NewCore(getEncoder(config.Format), ws, logLevel)
	return zap.New(core, zap.AddCaller()), nil
}

// getEncoder selects the encoder for the configured format
func getEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.ToLower(format) == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// getWriteSyncer selects the output destination
func getWriteSyncer(outputFile string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(outputFile) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		file, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", outputFile)
		}
		return zapcore.AddSync(file), nil
	}
}
