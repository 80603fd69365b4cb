package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addressmap/internal/app"
	"github.com/stwalsh4118/addressmap/internal/config"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/repository/repositorytest"
)

func memoryOpener(store *repositorytest.Store) opener {
	cfg := &config.Config{Address: config.AddressConfig{
		PageLength:    20,
		ImportColumns: []string{"street", "city", "state"},
	}}
	return func(ctx context.Context, envFile string) (*toolEnv, error) {
		return &toolEnv{
			svc:   app.New(cfg, store, logger.New("test")),
			close: func() {},
		}, nil
	}
}

func runTool(t *testing.T, store *repositorytest.Store, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(memoryOpener(store))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportAddresses(t *testing.T) {
	store := repositorytest.New()
	path := writeFile(t, "county.csv", "City,Street,State\nConroe,1 Elm St,TX\nConroe,1 ELM STREET,tx\n")

	out, err := runTool(t, store, "import-addresses", "--tag", "spring", "--file", path,
		"--columns", "city,street,state", "--skip-header", "--actor", "ann")
	require.NoError(t, err)
	assert.Contains(t, out, `batch "spring": 1 saved, 1 duplicates skipped`)

	addresses := store.AddressList()
	require.Len(t, addresses, 1)
	assert.Equal(t, "ann", addresses[0].ImportedBy)
	assert.Equal(t, "county.csv", addresses[0].ImportSource)
}

func TestImportAddresses_RequiresTag(t *testing.T) {
	_, err := runTool(t, repositorytest.New(), "import-addresses", "--file", "x.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tag")
}

func TestLoadParcels(t *testing.T) {
	store := repositorytest.New()
	path := writeFile(t, "parcels.geojson", `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"PL":"R1001","OWNER_NAME":"Smith"},
		 "geometry":{"type":"Polygon","coordinates":[[[-95.45,30.34],[-95.44,30.34],[-95.44,30.35],[-95.45,30.34]]]}}
	]}`)

	out, err := runTool(t, store, "load-parcels", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 1/1")
	assert.Contains(t, out, "1 parcels loaded")
}

func TestCreateTestAddresses(t *testing.T) {
	store := repositorytest.New()

	out, err := runTool(t, store, "create-test-addresses", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "3 saved")

	addresses := store.AddressList()
	require.Len(t, addresses, 3)
	assert.Equal(t, "Testville", addresses[0].City)
	require.Len(t, store.BatchList(), 1)
	assert.True(t, strings.HasPrefix(store.BatchList()[0].Tag, "test-"))

	_, err = runTool(t, store, "create-test-addresses", "zero")
	assert.Error(t, err)
}
