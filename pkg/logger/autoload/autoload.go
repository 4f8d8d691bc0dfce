// Package autoload initializes the global logger from LOG_* environment
// variables as a blank-import side effect.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/prepforge/interview-agent/pkg/logger"
)

func init() {
	var cfg logx.Config
	if err := envconfig.Process("LOG", &cfg); err != nil {
		cfg = *logx.DefaultConfig
	}
	logx.Init(cfg)
}
