package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atrox/maestro/pkg/persistence"
	"github.com/atrox/maestro/pkg/persistence/file"
	"github.com/atrox/maestro/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"file", "postgresql", "postgres"}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgresql", "postgres":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
