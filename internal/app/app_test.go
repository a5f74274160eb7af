// Package app_test contains unit tests for the app container.
package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjaros/linksync/internal/app"
	"github.com/mjaros/linksync/internal/config"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Corpus.Path = filepath.Join(dir, "newsletters.jsonl")
	cfg.Crawler.SeenFile = filepath.Join(dir, "seen.txt")
	return cfg
}

func TestNewWiresLocalServices(t *testing.T) {
	a, err := app.New(context.Background(), localConfig(t))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Logger())
	require.NotNil(t, a.Cache())
	require.NotNil(t, a.Store())
	require.NotNil(t, a.Seen())
	require.NotNil(t, a.Archive())
	require.NotNil(t, a.Queue())
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	cfg := localConfig(t)
	cfg.Corpus.Backend = "sqlite"
	_, err := app.New(context.Background(), cfg)
	require.Error(t, err)

	cfg = localConfig(t)
	cfg.Archive.Backend = "s3"
	_, err = app.New(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewLocalArchive(t *testing.T) {
	cfg := localConfig(t)
	cfg.Archive.Backend = "local"
	cfg.Archive.Dir = filepath.Join(t.TempDir(), "pages")

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Archive())
}
