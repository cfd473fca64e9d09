package mongo

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"twitch-giveaway-backend/internal/features/giveaway/repository"
	"twitch-giveaway-backend/internal/features/giveaway/repository/repotest"
)

var testClient *mongo.Client

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo container: %v\n", err)
		os.Exit(1)
	}

	code := 1
	uri, err := container.ConnectionString(ctx)
	if err == nil {
		testClient, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to mongo: %v\n", err)
	} else {
		code = m.Run()
		_ = testClient.Disconnect(ctx)
	}

	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate mongo container: %v\n", err)
	}
	os.Exit(code)
}

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	repo := NewRepository(testClient.Database("giveaway_test"))
	require.NoError(t, repo.EnsureIndexes(ctx))
	require.NoError(t, repo.Clear(ctx))
	return repo
}

func TestRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Repository {
		return setupTestRepo(t)
	})
}
