package main

import (
	"github.com/planrag/backend/internal/server"
	"github.com/planrag/backend/internal/util"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
