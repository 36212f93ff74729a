package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/storetest"
	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
	"github.com/wadjakorntonsri/custom-links/pkg/core/services"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

func TestExportThenImport(t *testing.T) {
	ctx := context.Background()
	src := services.NewLinkService(storetest.NewMemory(t), nil, services.Options{})
	for _, user := range []string{"alice@example.com", "bob@example.com"} {
		_, err := src.FindOrCreateUser(ctx, user)
		require.NoError(t, err)
	}
	_, err := src.CreateLink(ctx, "/b", "https://b.example.com", "bob@example.com")
	require.NoError(t, err)
	_, err = src.CreateLink(ctx, "/a", "https://a.example.com", "alice@example.com")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exportLinks(ctx, src, &buf))

	var exported []domain.Link
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, "/a", exported[0].Path)
	assert.Equal(t, "/b", exported[1].Path)

	dst := services.NewLinkService(storetest.NewMemory(t), nil, services.Options{})
	_, err = dst.FindOrCreateUser(ctx, "carol@example.com")
	require.NoError(t, err)
	_, err = dst.CreateLink(ctx, "/b", "https://other.example.com", "carol@example.com")
	require.NoError(t, err)

	res, err := importLinks(ctx, dst, slog.New(slog.DiscardHandler), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, importResult{Imported: 1, Skipped: 1}, res)

	owned, err := dst.GetOwnedLinks(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "https://a.example.com", owned[0].Target)

	linked, err := dst.GetLinksToTarget(ctx, "https://a.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, linked)

	kept, err := dst.GetLink(ctx, "/b", ports.GetLinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", kept.Owner)
}

func TestImportRejectsMalformedInput(t *testing.T) {
	svc := services.NewLinkService(storetest.NewMemory(t), nil, services.Options{})
	_, err := importLinks(context.Background(), svc, slog.New(slog.DiscardHandler), strings.NewReader("{"))
	assert.ErrorContains(t, err, "decode failed")

	res, err := importLinks(context.Background(), svc, slog.New(slog.DiscardHandler),
		strings.NewReader(`[{"path":"/x","target":"https://x.example.com"}]`))
	require.NoError(t, err)
	assert.Equal(t, importResult{Skipped: 1}, res)
}
