package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/volley-tournament/models"
)

// BracketSnapshot is the archived form of a generated bracket.
type BracketSnapshot struct {
	TournamentID int                     `json:"tournament_id"`
	Format       models.TournamentFormat `json:"format"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Structure    models.Structure        `json:"structure"`
	Matches      []*models.Match         `json:"matches"`
}

type BracketArchiver interface {
	Archive(ctx context.Context, snapshot BracketSnapshot) (*UploadResult, error)
}

type uploaderArchiver struct {
	uploader FileUploader
}

func NewBracketArchiver(uploader FileUploader) BracketArchiver {
	return &uploaderArchiver{uploader: uploader}
}

// SnapshotKey is brackets/tournament_<id>/<UTC timestamp>.json, so snapshots of one tournament sort by time.
func SnapshotKey(tournamentID int, at time.Time) string {
	return fmt.Sprintf("brackets/tournament_%d/%s.json", tournamentID, at.UTC().Format("20060102T150405.000000000Z"))
}

func (a *uploaderArchiver) Archive(ctx context.Context, snapshot BracketSnapshot) (*UploadResult, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket snapshot for tournament %d: %w", snapshot.TournamentID, err)
	}
	return a.uploader.Upload(ctx, SnapshotKey(snapshot.TournamentID, snapshot.GeneratedAt), "application/json", bytes.NewReader(body))
}

// NoopArchiver discards snapshots.
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, BracketSnapshot) (*UploadResult, error) {
	return nil, nil
}
