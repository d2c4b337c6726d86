// Package notion reads vault snapshots from the user's Notion databases.
package notion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jomei/notionapi"

	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/ports"
)

const queryPageSize = 100

// databaseQuerier is the slice of the Notion client the snapshot needs.
// Narrowed to an interface so tests can run without the real API.
type databaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// VaultSource materializes read-only snapshots of configured collections.
type VaultSource struct {
	databases   databaseQuerier
	collections map[string]string
	logger      *slog.Logger
}

var _ ports.VaultSource = (*VaultSource)(nil)

// NewVaultSource builds a source over the official API client.
func NewVaultSource(apiKey string, collections map[string]string, log *slog.Logger) *VaultSource {
	client := notionapi.NewClient(notionapi.Token(apiKey))
	return &VaultSource{
		databases:   client.Database,
		collections: collections,
		logger:      log,
	}
}

// Snapshot loads every configured collection. Any failure aborts the whole
// snapshot; scoring against a partial vault would silently re-propose items
// that are already stored.
func (v *VaultSource) Snapshot(ctx context.Context) ([]domain.VaultEntry, error) {
	var entries []domain.VaultEntry

	for name, databaseID := range v.collections {
		collectionEntries, err := v.loadCollection(ctx, name, databaseID)
		if err != nil {
			return nil, domain.VaultUnavailableError(err)
		}
		v.debug("collection loaded", "collection", name, "entries", len(collectionEntries))
		entries = append(entries, collectionEntries...)
	}

	return entries, nil
}

func (v *VaultSource) loadCollection(ctx context.Context, name, databaseID string) ([]domain.VaultEntry, error) {
	var entries []domain.VaultEntry
	var cursor notionapi.Cursor

	for {
		resp, err := v.databases.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return nil, err
		}

		for _, page := range resp.Results {
			entries = append(entries, pageToEntry(name, page))
		}

		if !resp.HasMore {
			return entries, nil
		}
		cursor = resp.NextCursor
	}
}

func pageToEntry(collection string, page notionapi.Page) domain.VaultEntry {
	entry := domain.VaultEntry{
		ID:          page.ID.String(),
		Collection:  collection,
		LastUpdated: page.LastEditedTime,
	}

	for propName, prop := range page.Properties {
		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			entry.Name = richTextPlain(p.Title)
		case *notionapi.URLProperty:
			if entry.URL == "" || strings.EqualFold(propName, "url") {
				entry.URL = p.URL
			}
		case *notionapi.MultiSelectProperty:
			if strings.EqualFold(propName, "aliases") {
				for _, option := range p.MultiSelect {
					if option.Name != "" {
						entry.Aliases = append(entry.Aliases, option.Name)
					}
				}
			}
		case *notionapi.RichTextProperty:
			if strings.EqualFold(propName, "aliases") {
				entry.Aliases = append(entry.Aliases, splitAliases(richTextPlain(p.RichText))...)
			}
		}
	}

	return entry
}

func richTextPlain(parts []notionapi.RichText) string {
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

func splitAliases(raw string) []string {
	var aliases []string
	for _, piece := range strings.Split(raw, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			aliases = append(aliases, piece)
		}
	}
	return aliases
}

func (v *VaultSource) debug(msg string, args ...any) {
	if v.logger != nil {
		v.logger.Debug(msg, args...)
	}
}
