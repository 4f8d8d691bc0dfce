package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
	"github.com/prepforge/interview-agent/agent/document"
	"github.com/prepforge/interview-agent/agent/orchestrator"
	"github.com/prepforge/interview-agent/agent/prompt"
	toolx "github.com/prepforge/interview-agent/agent/tool"
	configx "github.com/prepforge/interview-agent/pkg/config"
	_ "github.com/prepforge/interview-agent/pkg/logger/autoload"
	objstorex "github.com/prepforge/interview-agent/pkg/objstore"
	openrouterx "github.com/prepforge/interview-agent/pkg/openrouter"
	researchx "github.com/prepforge/interview-agent/pkg/research"
	serverx "github.com/prepforge/interview-agent/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}

	storeCfg := configx.MustNew[objstorex.Config]("STORAGE")
	var store contractx.ObjectStore
	switch storeCfg.Mode {
	case "memory":
		store = objstorex.NewMemory()
		log.Warn().Msg("using in-memory object store, data will not survive restarts")
	default:
		gcs, err := objstorex.NewGCS(ctx, *storeCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize object store")
		}
		store = gcs
	}

	researchCfg := configx.MustNew[researchx.Config]("RESEARCH")
	researcher := researchx.MustNew(*researchCfg)

	catalog, err := toolx.NewCatalog(store, researcher, document.NewPDF())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build toolbox")
	}

	orch, err := orchestrator.New(
		openRouterClient,
		openRouterCfg.Model,
		catalog,
		toolx.Infos(),
		prompt.Instructions(),
		orchestrator.WithMaxCompletionTokens(int64(openRouterCfg.MaxCompletionToken)),
		orchestrator.WithTemperature(openRouterCfg.Temperature),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv, err := serverx.New(*serverCfg, orch)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}
