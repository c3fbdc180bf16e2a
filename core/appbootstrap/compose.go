package appbootstrap

import (
	"database/sql"

	"github.com/m-mizutani/goerr/v2"

	"github.com/SoloAWS/incident-command-service/api"
	"github.com/SoloAWS/incident-command-service/config"
	"github.com/SoloAWS/incident-command-service/core/auth"
	"github.com/SoloAWS/incident-command-service/core/directory"
	"github.com/SoloAWS/incident-command-service/core/incidents"
	"github.com/SoloAWS/incident-command-service/core/rbac"
	"github.com/SoloAWS/incident-command-service/core/store"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

type runtimeComposition struct {
	server *api.Server
}

func composeRuntime(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*runtimeComposition, error) {
	verifier, err := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create token verifier")
	}
	policy, err := rbac.NewPolicy(rbac.DefaultRules())
	if err != nil {
		return nil, err
	}
	incidentsStore := store.NewIncidentsStore(db)
	directoryClient := directory.NewClient(cfg.Directory.BaseURL, cfg.EffectiveDirectoryTimeout())
	incidentsSvc := incidents.NewService(incidentsStore, directoryClient, policy, logger)

	return &runtimeComposition{
		server: api.NewServer(cfg, logger, verifier, incidentsSvc),
	}, nil
}
