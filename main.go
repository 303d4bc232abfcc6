package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
	knowledgex "github.com/Toni872/script9-sub002/agent/knowledge"
	leadx "github.com/Toni872/script9-sub002/agent/lead"
	orchestratorx "github.com/Toni872/script9-sub002/agent/orchestrator"
	quotex "github.com/Toni872/script9-sub002/agent/quote"
	toolx "github.com/Toni872/script9-sub002/agent/tool"
	configx "github.com/Toni872/script9-sub002/pkg/config"
	_ "github.com/Toni872/script9-sub002/pkg/logger/autoload"
	notifyx "github.com/Toni872/script9-sub002/pkg/notify"
	openrouterx "github.com/Toni872/script9-sub002/pkg/openrouter"
)

type DatabaseConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

func main() {
	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	chatModel, err := openrouterx.NewChatModel(*openRouterCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize chat model")
	}

	embedderCfg := configx.MustNew[knowledgex.EmbedderConfig]("EMBEDDING")
	embedder, err := knowledgex.NewOpenAIEmbedder(openrouterx.NewClient(*openRouterCfg), *embedderCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize embedder")
	}

	dbCfg := configx.MustNew[DatabaseConfig]("DATABASE")
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dbCfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	store, err := knowledgex.NewStore(db, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize knowledge store")
	}
	retriever, err := knowledgex.NewRetriever(embedder, store)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize retriever")
	}

	notifyCfg := configx.MustNew[notifyx.Config]("NOTIFY")
	leads, err := leadx.NewStore(db, leadx.WithNotifier(notifyx.MustNew(*notifyCfg)))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize lead store")
	}

	dispatcher, err := toolx.NewDispatcher(retriever, quotex.NewCalculator(), leads)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize tool dispatcher")
	}

	service, err := orchestratorx.New(chatModel, dispatcher, toolx.Definitions(), orchestratorx.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("initialize orchestrator")
	}

	runREPL(service)
}

func runREPL(service *orchestratorx.Service) {
	var history []contractx.Message
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Script9 commercial agent. Empty line exits.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}

		reply, err := service.Chat(context.Background(), append(history, contractx.Message{
			Role:    contractx.RoleUser,
			Content: text,
		}))
		if err != nil {
			log.Error().Err(err).Msg("chat failed")
			continue
		}

		history = append(history,
			contractx.Message{Role: contractx.RoleUser, Content: text},
			contractx.Message{Role: contractx.RoleAssistant, Content: reply},
		)
		fmt.Println(reply)
	}
}
